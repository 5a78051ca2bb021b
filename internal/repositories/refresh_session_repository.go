package repositories

import (
	"errors"
	"time"

	"github.com/rksaklani/pgimer-psy-sub000/internal/models"
	"gorm.io/gorm"
)

// RefreshSessionRepository persists the store-backed half of the session
// lifecycle. UpdateActivity and Revoke are conditional updates guarded on
// revoked_at IS NULL; the returned bool reports whether a row actually
// changed, which is what lets concurrent callers agree on who won.
type RefreshSessionRepository interface {
	Create(session *models.RefreshSession) error
	GetByToken(token string) (*models.RefreshSession, error)
	UpdateActivity(token string, at time.Time) (bool, error)
	Revoke(token string, at time.Time) (bool, error)
}

type gormRefreshSessionRepository struct {
	db *gorm.DB
}

func NewRefreshSessionRepository(db *gorm.DB) RefreshSessionRepository {
	return &gormRefreshSessionRepository{db: db}
}

func (r *gormRefreshSessionRepository) Create(session *models.RefreshSession) error {
	return r.db.Create(session).Error
}

func (r *gormRefreshSessionRepository) GetByToken(token string) (*models.RefreshSession, error) {
	var session models.RefreshSession
	if err := r.db.First(&session, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *gormRefreshSessionRepository) UpdateActivity(token string, at time.Time) (bool, error) {
	res := r.db.Model(&models.RefreshSession{}).
		Where("token = ? AND revoked_at IS NULL", token).
		UpdateColumn("last_activity", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRefreshSessionRepository) Revoke(token string, at time.Time) (bool, error) {
	res := r.db.Model(&models.RefreshSession{}).
		Where("token = ? AND revoked_at IS NULL", token).
		UpdateColumn("revoked_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
