package models

import "time"

const (
	PaymentStateApproved  = "approved"
	PaymentStateRejected  = "rejected"
	PaymentStatePending   = "pending"
	PaymentStateCancelled = "cancelled"
	PaymentStateRefunded  = "refunded"
)

// Payment is one record per external payment attempt. ExternalID carries the
// gateway payment id and is the idempotency key for webhook processing: a
// second callback for the same id must be a no-op, never an error.
type Payment struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	ExternalID      string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_payments_external_id" json:"external_id"`
	UserID          *uint      `gorm:"index" json:"user_id,omitempty"`
	SubscriptionID  *uint      `gorm:"index" json:"subscription_id,omitempty"`
	State           string     `gorm:"type:varchar(32);not null;default:'pending';index" json:"state"`
	AmountCents     int64      `gorm:"not null;default:0" json:"amount_cents"`
	Currency        string     `gorm:"type:varchar(8);not null;default:'ARS'" json:"currency"`
	PaymentMethod   string     `gorm:"type:varchar(64)" json:"payment_method"`
	PayerEmail      string     `gorm:"type:varchar(200);index" json:"payer_email"`
	PaidAt          *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	RawMetadataJSON string     `gorm:"type:longtext" json:"raw_metadata_json"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminalState reports whether a payment state can never change again
// through reconciliation.
func IsTerminalState(state string) bool {
	switch state {
	case PaymentStateApproved, PaymentStateRejected, PaymentStateCancelled, PaymentStateRefunded:
		return true
	default:
		return false
	}
}
