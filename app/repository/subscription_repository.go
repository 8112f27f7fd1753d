package repository

import (
	"time"

	"github.com/fixia-app/FixiaCore/app/models"
	"gorm.io/gorm"
)

// subscriptionRepository implements the SubscriptionRepository interface
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Create creates a new subscription row
func (r *subscriptionRepository) Create(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

// GetByID retrieves a subscription by its ID
func (r *subscriptionRepository) GetByID(id uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.First(&sub, id).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetCurrentByUserID returns the newest subscription row for a user
func (r *subscriptionRepository) GetCurrentByUserID(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Update saves a subscription row
func (r *subscriptionRepository) Update(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}

// CreateActive inserts a new active subscription row and raises the owner's
// subscription_active flag. Both writes commit together or not at all.
func (r *subscriptionRepository) CreateActive(sub *models.Subscription) error {
	sub.State = models.SubscriptionStateActive
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", sub.UserID).
			Update("subscription_active", true).Error
	})
}

// CancelWithFlag marks a subscription cancelled and clears the owner's flag.
// The row is kept for audit, never deleted.
func (r *subscriptionRepository) CancelWithFlag(subID uint, userID uint, reason string) error {
	now := time.Now()
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Subscription{}).
			Where("id = ?", subID).
			Updates(map[string]interface{}{
				"state":         models.SubscriptionStateCancelled,
				"cancelled_at":  &now,
				"cancel_reason": reason,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("subscription_active", false).Error
	})
}

// UpdateStateAndFlag transitions a subscription and the owner's denormalized
// subscription_active flag atomically. Both rows change or neither does.
func (r *subscriptionRepository) UpdateStateAndFlag(subID uint, userID uint, state string, active bool) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Subscription{}).
			Where("id = ?", subID).
			Update("state", state).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("subscription_active", active).Error
	})
}

// liveStates are the states a sweep still has work to do on: active rows and
// rows already moved into the grace window.
var liveStates = []string{models.SubscriptionStateActive, models.SubscriptionStateGracePeriod}

// FindExpiredActive returns live subscriptions expired before the cutoff
func (r *subscriptionRepository) FindExpiredActive(cutoff time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.
		Where("state IN ? AND expires_at < ?", liveStates, cutoff).
		Order("expires_at ASC").
		Find(&subs).Error
	return subs, err
}

// FindExpiringBetween returns live subscriptions with expiration in [from, to)
func (r *subscriptionRepository) FindExpiringBetween(from, to time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.
		Where("state IN ? AND expires_at >= ? AND expires_at < ?", liveStates, from, to).
		Order("expires_at ASC").
		Find(&subs).Error
	return subs, err
}
