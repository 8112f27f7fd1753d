package models

import "time"

// PushToken is a device registration for push delivery. The unique index on
// UserID keeps at most one live token per user: re-registration overwrites,
// and the push adapter clears the row when the provider reports the token as
// dead.
type PushToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:ux_push_tokens_user" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Token     string    `gorm:"type:varchar(255);not null;index" json:"-"`
	Platform  string    `gorm:"type:varchar(32);default:''" json:"platform"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
