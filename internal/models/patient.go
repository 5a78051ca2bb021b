package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Patient struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	MRNumber  string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"mr_number"`
	FullName  string    `gorm:"type:varchar(120);not null" json:"full_name"`
	DOB       *time.Time `gorm:"type:date" json:"dob"`
	Sex       string    `gorm:"type:varchar(16)" json:"sex"`
	Phone     string    `gorm:"type:varchar(20)" json:"phone"`
	Address   string    `gorm:"type:text" json:"address"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	Documents []ClinicalDocument `gorm:"foreignKey:PatientID" json:"-"`
}

func (Patient) TableName() string {
	return "patients"
}

func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
