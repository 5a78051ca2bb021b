package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClinicalDocument records a scanned report or proforma attachment stored in
// the document backend (local disk or Azure Blob).
type ClinicalDocument struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	PatientID   uuid.UUID `gorm:"type:uuid;not null;index" json:"patient_id"`
	FileName    string    `gorm:"type:varchar(255);not null" json:"file_name"`
	ContentType string    `gorm:"type:varchar(128)" json:"content_type"`
	SizeBytes   int64     `gorm:"not null;default:0" json:"size_bytes"`
	Container   string    `gorm:"type:varchar(16);not null" json:"-"`
	StoragePath string    `gorm:"type:text;not null" json:"-"`
	UploadedBy  uuid.UUID `gorm:"type:uuid;not null" json:"uploaded_by"`
	CreatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ClinicalDocument) TableName() string {
	return "clinical_documents"
}

func (d *ClinicalDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
