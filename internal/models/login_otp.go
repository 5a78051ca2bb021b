package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoginOTP is a six-digit second-factor code issued after a successful
// password check. Valid while UsedAt is null and ExpiresAt is in the future.
type LoginOTP struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	Code      string     `gorm:"type:char(6);not null"`
	ExpiresAt time.Time  `gorm:"type:timestamptz;not null"`
	UsedAt    *time.Time `gorm:"type:timestamptz"`
	CreatedAt time.Time  `gorm:"type:timestamptz;not null;default:now()"`
}

func (LoginOTP) TableName() string {
	return "login_otps"
}

func (o *LoginOTP) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
