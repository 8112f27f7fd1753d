package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationCategory is the closed set of user-facing event categories.
// Keeping it a named type forces new categories through the presentation
// tables in the notify package instead of loose strings.
type NotificationCategory string

const (
	CategoryMatch   NotificationCategory = "match"
	CategoryMessage NotificationCategory = "message"
	CategoryRating  NotificationCategory = "rating"
	CategorySystem  NotificationCategory = "system"
	CategoryPayment NotificationCategory = "payment"
)

// IsValid reports whether c is one of the known categories.
func (c NotificationCategory) IsValid() bool {
	switch c {
	case CategoryMatch, CategoryMessage, CategoryRating, CategorySystem, CategoryPayment:
		return true
	default:
		return false
	}
}

// Notification is a persisted in-app event. Rows are created once and only
// mutated to flip IsRead, or removed by the retention sweep.
type Notification struct {
	ID       uint                 `gorm:"primaryKey" json:"id"`
	UserID   uint                 `gorm:"index" json:"user_id"`
	User     User                 `gorm:"foreignKey:UserID" json:"-"`
	Category NotificationCategory `gorm:"type:varchar(32);not null;index" json:"category" validate:"oneof=match message rating system payment"`
	Title    string               `gorm:"type:varchar(200);not null" json:"title"`
	Body     string               `gorm:"type:text" json:"body"`
	IsRead   bool                 `gorm:"default:false;index" json:"is_read"`
	// PayloadJSON carries category-specific structured data (match id, chat
	// id, action_url, reminder metadata) for deep-link construction.
	PayloadJSON string `gorm:"type:longtext" json:"payload_json"`
	// DedupeKey is set only for scheduled reminders and is queried together
	// with CreatedAt to suppress re-sends inside the dedupe window.
	DedupeKey string         `gorm:"type:varchar(128);default:'';index:idx_notifications_dedupe,priority:1" json:"-"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index:idx_notifications_dedupe,priority:2" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// MarkAsRead flips the read flag on a stored notification
func (n *Notification) MarkAsRead(db *gorm.DB) error {
	n.IsRead = true
	return db.Model(n).Update("is_read", true).Error
}
