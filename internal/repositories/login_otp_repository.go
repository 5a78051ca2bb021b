package repositories

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rksaklani/pgimer-psy-sub000/internal/models"
	"gorm.io/gorm"
)

type LoginOTPRepository interface {
	Create(otp *models.LoginOTP) error
	// GetActiveByUser returns the newest unconsumed code for the user, expired
	// or not; the caller decides between not-found and expired.
	GetActiveByUser(userID uuid.UUID) (*models.LoginOTP, error)
	// MarkUsed consumes the code; false means another request got there first.
	MarkUsed(id uuid.UUID, at time.Time) (bool, error)
	// InvalidateActive marks every unconsumed code for the user as used,
	// enforcing the newest-wins issuance policy.
	InvalidateActive(userID uuid.UUID, at time.Time) error
}

type gormLoginOTPRepository struct {
	db *gorm.DB
}

func NewLoginOTPRepository(db *gorm.DB) LoginOTPRepository {
	return &gormLoginOTPRepository{db: db}
}

func (r *gormLoginOTPRepository) Create(otp *models.LoginOTP) error {
	return r.db.Create(otp).Error
}

func (r *gormLoginOTPRepository) GetActiveByUser(userID uuid.UUID) (*models.LoginOTP, error) {
	var otp models.LoginOTP
	err := r.db.
		Where("user_id = ? AND used_at IS NULL", userID).
		Order("created_at DESC").
		First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &otp, nil
}

func (r *gormLoginOTPRepository) MarkUsed(id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.Model(&models.LoginOTP{}).
		Where("id = ? AND used_at IS NULL", id).
		UpdateColumn("used_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormLoginOTPRepository) InvalidateActive(userID uuid.UUID, at time.Time) error {
	return r.db.Model(&models.LoginOTP{}).
		Where("user_id = ? AND used_at IS NULL", userID).
		UpdateColumn("used_at", at).Error
}
