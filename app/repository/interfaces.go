package repository

import (
	"time"

	"github.com/fixia-app/FixiaCore/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	Update(user *models.User) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	ListProviderIDs() ([]uint, error)
}

// SubscriptionRepository defines the interface for subscription rows and the
// sweep queries run by the scheduled jobs.
type SubscriptionRepository interface {
	Create(sub *models.Subscription) error
	GetByID(id uint) (*models.Subscription, error)
	// GetCurrentByUserID returns the newest subscription row for a user, or
	// gorm.ErrRecordNotFound when the user never subscribed.
	GetCurrentByUserID(userID uint) (*models.Subscription, error)
	Update(sub *models.Subscription) error
	// CreateActive inserts a new active subscription row and raises the
	// denormalized users.subscription_active flag in a single transaction.
	CreateActive(sub *models.Subscription) error
	// CancelWithFlag marks a subscription cancelled (kept for audit) and
	// clears the flag in a single transaction.
	CancelWithFlag(subID uint, userID uint, reason string) error
	// UpdateStateAndFlag writes the subscription state and the denormalized
	// users.subscription_active flag in a single transaction.
	UpdateStateAndFlag(subID uint, userID uint, state string, active bool) error
	// FindExpiredActive returns active or in-grace subscriptions whose
	// expiration lies before the cutoff (cutoff = now - grace for the
	// expiry sweep).
	FindExpiredActive(cutoff time.Time) ([]models.Subscription, error)
	// FindExpiringBetween returns active or in-grace subscriptions expiring
	// inside [from, to), used for the exact-day reminder buckets and the
	// grace window.
	FindExpiringBetween(from, to time.Time) ([]models.Subscription, error)
}

// PaymentRepository defines the interface for payment attempt rows keyed by
// the external gateway payment id.
type PaymentRepository interface {
	// CreateIfNotExists inserts a payment unless its external id is already
	// present; reports whether a row was created.
	CreateIfNotExists(payment *models.Payment) (bool, *models.Payment, error)
	GetByExternalID(externalID string) (*models.Payment, error)
	Update(payment *models.Payment) error
	UpdateStateByExternalID(externalID, state string) error
	// FindPendingOlderThan returns non-terminal payments created before the
	// cutoff, for the reconciliation re-poll sweep.
	FindPendingOlderThan(cutoff time.Time, limit int) ([]models.Payment, error)
}

// NotificationRepository defines the interface for persisted notification
// records and reminder deduplication lookups.
type NotificationRepository interface {
	Create(n *models.Notification) error
	GetByID(id uint) (*models.Notification, error)
	ListByUser(userID uint, offset, limit int) ([]models.Notification, error)
	CountUnread(userID uint) (int64, error)
	MarkRead(id uint, userID uint) error
	// ExistsDedupe reports whether a notification with the given dedupe key
	// was created for the user after the given time.
	ExistsDedupe(userID uint, dedupeKey string, since time.Time) (bool, error)
	// DeleteReadOlderThan removes read notifications created before the
	// cutoff and returns the number of rows removed.
	DeleteReadOlderThan(cutoff time.Time) (int64, error)
}

// PushTokenRepository defines the interface for device token registrations.
type PushTokenRepository interface {
	// Upsert stores the token for a user, overwriting any previous
	// registration for the same user.
	Upsert(token *models.PushToken) error
	GetByUserID(userID uint) (*models.PushToken, error)
	GetByToken(token string) (*models.PushToken, error)
	ListAll(offset, limit int) ([]models.PushToken, error)
	DeleteByUserID(userID uint) error
	DeleteByToken(token string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Subscription SubscriptionRepository
	Payment      PaymentRepository
	Notification NotificationRepository
	PushToken    PushTokenRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Payment:      NewPaymentRepository(db),
		Notification: NewNotificationRepository(db),
		PushToken:    NewPushTokenRepository(db),
	}
}
