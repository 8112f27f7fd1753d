package repository

import (
	"time"

	"github.com/fixia-app/FixiaCore/app/models"
	"gorm.io/gorm"
)

// notificationRepository implements the NotificationRepository interface
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository instance
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create persists a notification record
func (r *notificationRepository) Create(n *models.Notification) error {
	return r.db.Create(n).Error
}

// GetByID retrieves a notification by its ID
func (r *notificationRepository) GetByID(id uint) (*models.Notification, error) {
	var n models.Notification
	err := r.db.First(&n, id).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByUser retrieves notifications for a user, newest first
func (r *notificationRepository) ListByUser(userID uint, offset, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

// CountUnread returns the number of unread notifications for a user
func (r *notificationRepository) CountUnread(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flips the read flag, scoped to the owning user
func (r *notificationRepository) MarkRead(id uint, userID uint) error {
	tx := r.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ExistsDedupe reports whether a notification with the dedupe key exists for
// the user since the given time. This is the reminder suppression check.
func (r *notificationRepository) ExistsDedupe(userID uint, dedupeKey string, since time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("user_id = ? AND dedupe_key = ? AND created_at >= ?", userID, dedupeKey, since).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteReadOlderThan removes read notifications created before the cutoff
func (r *notificationRepository) DeleteReadOlderThan(cutoff time.Time) (int64, error) {
	tx := r.db.
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	return tx.RowsAffected, tx.Error
}
