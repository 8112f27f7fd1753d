package repository

import (
	"time"

	"github.com/fixia-app/FixiaCore/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// paymentRepository implements the PaymentRepository interface
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// CreateIfNotExists inserts a payment row unless the external id is taken.
// The unique index on external_id makes this the idempotency barrier for
// duplicated gateway callbacks.
func (r *paymentRepository) CreateIfNotExists(payment *models.Payment) (bool, *models.Payment, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(payment)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.Payment
	if err := r.db.Where("external_id = ?", payment.ExternalID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

// GetByExternalID retrieves a payment by its gateway payment id
func (r *paymentRepository) GetByExternalID(externalID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Where("external_id = ?", externalID).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Update saves a payment row
func (r *paymentRepository) Update(payment *models.Payment) error {
	return r.db.Save(payment).Error
}

// UpdateStateByExternalID sets the state of an existing payment row
func (r *paymentRepository) UpdateStateByExternalID(externalID, state string) error {
	return r.db.Model(&models.Payment{}).
		Where("external_id = ?", externalID).
		Update("state", state).Error
}

// FindPendingOlderThan returns non-terminal payments created before the cutoff
func (r *paymentRepository) FindPendingOlderThan(cutoff time.Time, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.
		Where("state = ? AND created_at < ?", models.PaymentStatePending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}
