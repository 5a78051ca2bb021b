package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshSession is the store-backed credential behind the HTTP-only session
// cookie. The opaque token is the primary key; a user may hold several live
// sessions, one per device. RevokedAt is terminal: a revoked session is never
// reactivated.
type RefreshSession struct {
	Token        string     `gorm:"type:varchar(64);primaryKey" json:"-"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	DeviceInfo   string     `gorm:"type:varchar(255)" json:"device_info"`
	IPAddress    string     `gorm:"type:varchar(45)" json:"ip_address"`
	LastActivity time.Time  `gorm:"type:timestamptz;not null" json:"last_activity"`
	CreatedAt    time.Time  `gorm:"type:timestamptz;not null;default:now()" json:"created_at"`
	RevokedAt    *time.Time `gorm:"type:timestamptz" json:"revoked_at"`
}

func (RefreshSession) TableName() string {
	return "refresh_sessions"
}
