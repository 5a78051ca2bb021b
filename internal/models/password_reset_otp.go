package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PasswordResetOTP carries both halves of the two-phase reset flow: the
// six-digit code the user types in, and the opaque token that authorizes the
// actual password change once the code has been verified. Only the token is
// marked used, and only at the final step.
type PasswordResetOTP struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Token     string     `gorm:"type:varchar(64);uniqueIndex;not null"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	Code      string     `gorm:"type:char(6);not null"`
	ExpiresAt time.Time  `gorm:"type:timestamptz;not null"`
	UsedAt    *time.Time `gorm:"type:timestamptz"`
	CreatedAt time.Time  `gorm:"type:timestamptz;not null;default:now()"`
}

func (PasswordResetOTP) TableName() string {
	return "password_reset_otps"
}

func (o *PasswordResetOTP) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
