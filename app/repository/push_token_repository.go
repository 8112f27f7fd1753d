package repository

import (
	"github.com/fixia-app/FixiaCore/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// pushTokenRepository implements the PushTokenRepository interface
type pushTokenRepository struct {
	db *gorm.DB
}

// NewPushTokenRepository creates a new push token repository instance
func NewPushTokenRepository(db *gorm.DB) PushTokenRepository {
	return &pushTokenRepository{db: db}
}

// Upsert stores a token registration, overwriting any previous one for the
// same user (one live token per user).
func (r *pushTokenRepository) Upsert(token *models.PushToken) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"token",
			"platform",
			"updated_at",
		}),
	}).Create(token).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("user_id = ?", token.UserID).First(token).Error
}

// GetByUserID retrieves the live token registration for a user
func (r *pushTokenRepository) GetByUserID(userID uint) (*models.PushToken, error) {
	var token models.PushToken
	err := r.db.Where("user_id = ?", userID).First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// GetByToken retrieves a registration by its token value
func (r *pushTokenRepository) GetByToken(token string) (*models.PushToken, error) {
	var reg models.PushToken
	err := r.db.Where("token = ?", token).First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// ListAll retrieves token registrations with pagination (broadcast audience)
func (r *pushTokenRepository) ListAll(offset, limit int) ([]models.PushToken, error) {
	var tokens []models.PushToken
	err := r.db.Order("id ASC").Offset(offset).Limit(limit).Find(&tokens).Error
	return tokens, err
}

// DeleteByUserID removes the token registration for a user
func (r *pushTokenRepository) DeleteByUserID(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.PushToken{}).Error
}

// DeleteByToken removes a registration by token value, used when the push
// provider reports the token as dead.
func (r *pushTokenRepository) DeleteByToken(token string) error {
	return r.db.Where("token = ?", token).Delete(&models.PushToken{}).Error
}
