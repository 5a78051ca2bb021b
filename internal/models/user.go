package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleDoctor   UserRole = "doctor"
	RoleResident UserRole = "resident"
	RoleStaff    UserRole = "staff"
)

type User struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	FullName         string     `gorm:"type:varchar(120);not null" json:"full_name"`
	Email            string     `gorm:"type:citext;uniqueIndex;not null" json:"email"`
	Role             UserRole   `gorm:"type:user_role;default:'staff'" json:"role"`
	PasswordHash     string     `gorm:"type:varchar(255);not null" json:"-"`
	IsActive         bool       `gorm:"not null;default:true" json:"is_active"`
	TwoFactorEnabled bool       `gorm:"not null;default:false" json:"two_factor_enabled"`
	LastLoginAt      *time.Time `gorm:"type:timestamptz" json:"last_login_at"`
	CreatedAt        time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
