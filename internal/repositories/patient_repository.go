package repositories

import (
	"errors"

	"github.com/google/uuid"
	"github.com/rksaklani/pgimer-psy-sub000/internal/models"
	"gorm.io/gorm"
)

type PatientRepository interface {
	Create(patient *models.Patient) error
	GetByID(id uuid.UUID) (*models.Patient, error)
	GetByMRNumber(mrNumber string) (*models.Patient, error)
	GetAll(limit, offset int) ([]models.Patient, int64, error)
	Update(patient *models.Patient) error
	Delete(id uuid.UUID) error

	CreateDocument(doc *models.ClinicalDocument) error
	GetDocument(patientID, docID uuid.UUID) (*models.ClinicalDocument, error)
	ListDocuments(patientID uuid.UUID) ([]models.ClinicalDocument, error)
}

type gormPatientRepository struct {
	db *gorm.DB
}

func NewPatientRepository(db *gorm.DB) PatientRepository {
	return &gormPatientRepository{db: db}
}

func (r *gormPatientRepository) Create(patient *models.Patient) error {
	return r.db.Create(patient).Error
}

func (r *gormPatientRepository) GetByID(id uuid.UUID) (*models.Patient, error) {
	var patient models.Patient
	if err := r.db.First(&patient, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &patient, nil
}

func (r *gormPatientRepository) GetByMRNumber(mrNumber string) (*models.Patient, error) {
	var patient models.Patient
	if err := r.db.First(&patient, "mr_number = ?", mrNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &patient, nil
}

func (r *gormPatientRepository) GetAll(limit, offset int) ([]models.Patient, int64, error) {
	var patients []models.Patient
	var count int64

	if err := r.db.Model(&models.Patient{}).Count(&count).Error; err != nil {
		return nil, 0, err
	}
	if err := r.db.Limit(limit).Offset(offset).Order("created_at DESC").Find(&patients).Error; err != nil {
		return nil, 0, err
	}
	return patients, count, nil
}

func (r *gormPatientRepository) Update(patient *models.Patient) error {
	return r.db.Save(patient).Error
}

func (r *gormPatientRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.Patient{}, "id = ?", id).Error
}

func (r *gormPatientRepository) CreateDocument(doc *models.ClinicalDocument) error {
	return r.db.Create(doc).Error
}

func (r *gormPatientRepository) GetDocument(patientID, docID uuid.UUID) (*models.ClinicalDocument, error) {
	var doc models.ClinicalDocument
	err := r.db.First(&doc, "id = ? AND patient_id = ?", docID, patientID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (r *gormPatientRepository) ListDocuments(patientID uuid.UUID) ([]models.ClinicalDocument, error) {
	var docs []models.ClinicalDocument
	if err := r.db.Where("patient_id = ?", patientID).Order("created_at DESC").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}
