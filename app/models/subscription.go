package models

import "time"

const (
	PlanBasic        = "basic"
	PlanProfessional = "professional"
	PlanPremium      = "premium"
	PlanAnnual       = "annual"
)

const (
	SubscriptionStatePendingPayment = "pending_payment"
	SubscriptionStateActive         = "active"
	SubscriptionStateGracePeriod    = "grace_period"
	SubscriptionStateExpired        = "expired"
	SubscriptionStateCancelled      = "cancelled"
)

// GracePeriod is the fixed window after expiration during which access is not
// yet revoked but reminders escalate to critical.
const GracePeriod = 7 * 24 * time.Hour

// Subscription is one paid-tier grant for a provider profile. Rows are
// append-only: a reactivation creates a new row instead of mutating the old
// one, so the table doubles as billing history.
type Subscription struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;index:idx_subscriptions_user_state,priority:1" json:"user_id"`
	User          User       `gorm:"foreignKey:UserID" json:"-"`
	Plan          string     `gorm:"type:varchar(32);not null" json:"plan" validate:"oneof=basic professional premium annual"`
	State         string     `gorm:"type:varchar(32);not null;default:'pending_payment';index:idx_subscriptions_user_state,priority:2;index:idx_subscriptions_state_expires,priority:1" json:"state"`
	StartsAt      time.Time  `gorm:"type:timestamp;not null" json:"starts_at"`
	ExpiresAt     time.Time  `gorm:"type:timestamp;not null;index:idx_subscriptions_state_expires,priority:2" json:"expires_at"`
	AutoRenew     bool       `gorm:"default:false" json:"auto_renew"`
	PriceCents    int64      `gorm:"not null;default:0" json:"price_cents"`
	Currency      string     `gorm:"type:varchar(8);not null;default:'ARS'" json:"currency"`
	PaymentMethod string     `gorm:"type:varchar(64)" json:"payment_method"`
	CancelledAt   *time.Time `gorm:"type:timestamp;default:null" json:"cancelled_at,omitempty"`
	CancelReason  string     `gorm:"type:varchar(255)" json:"cancel_reason,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActiveAt reports whether the grant is the gating source of truth at t.
func (s *Subscription) IsActiveAt(t time.Time) bool {
	return s.State == SubscriptionStateActive && t.Before(s.ExpiresAt)
}

// InGraceAt reports whether t falls inside the post-expiration grace window.
func (s *Subscription) InGraceAt(t time.Time) bool {
	if s.State != SubscriptionStateActive && s.State != SubscriptionStateGracePeriod {
		return false
	}
	return !t.Before(s.ExpiresAt) && t.Before(s.ExpiresAt.Add(GracePeriod))
}

// PlanInterval returns the paid interval granted by a plan: one year for the
// annual plan, one month for everything else.
func PlanInterval(plan string) (months int, years int) {
	if plan == PlanAnnual {
		return 0, 1
	}
	return 1, 0
}

// ExpiryFor computes the expiration timestamp for a plan starting at start.
func ExpiryFor(plan string, start time.Time) time.Time {
	months, years := PlanInterval(plan)
	return start.AddDate(years, months, 0)
}

// IsValidPlan reports whether plan is one of the sellable plan identifiers.
func IsValidPlan(plan string) bool {
	switch plan {
	case PlanBasic, PlanProfessional, PlanPremium, PlanAnnual:
		return true
	default:
		return false
	}
}
