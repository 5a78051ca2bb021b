package repositories

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rksaklani/pgimer-psy-sub000/internal/models"
	"gorm.io/gorm"
)

type PasswordResetRepository interface {
	Create(otp *models.PasswordResetOTP) error
	GetByToken(token string) (*models.PasswordResetOTP, error)
	// MarkUsed consumes the reset token; false means it was already consumed.
	MarkUsed(token string, at time.Time) (bool, error)
	InvalidateActive(userID uuid.UUID, at time.Time) error
}

type gormPasswordResetRepository struct {
	db *gorm.DB
}

func NewPasswordResetRepository(db *gorm.DB) PasswordResetRepository {
	return &gormPasswordResetRepository{db: db}
}

func (r *gormPasswordResetRepository) Create(otp *models.PasswordResetOTP) error {
	return r.db.Create(otp).Error
}

func (r *gormPasswordResetRepository) GetByToken(token string) (*models.PasswordResetOTP, error) {
	var otp models.PasswordResetOTP
	if err := r.db.First(&otp, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &otp, nil
}

func (r *gormPasswordResetRepository) MarkUsed(token string, at time.Time) (bool, error) {
	res := r.db.Model(&models.PasswordResetOTP{}).
		Where("token = ? AND used_at IS NULL", token).
		UpdateColumn("used_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormPasswordResetRepository) InvalidateActive(userID uuid.UUID, at time.Time) error {
	return r.db.Model(&models.PasswordResetOTP{}).
		Where("user_id = ? AND used_at IS NULL", userID).
		UpdateColumn("used_at", at).Error
}
