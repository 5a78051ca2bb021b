package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rksaklani/pgimer-psy-sub000/internal/models"
	"github.com/rksaklani/pgimer-psy-sub000/internal/repositories"
	"github.com/rksaklani/pgimer-psy-sub000/internal/storage"
)

var (
	ErrPatientNotFound  = errors.New("patient not found")
	ErrDuplicateMR      = errors.New("mr number already registered")
	ErrDocumentNotFound = errors.New("document not found")
)

type PatientService struct {
	patients repositories.PatientRepository
	archive  storage.Store
}

func NewPatientService(patients repositories.PatientRepository, archive storage.Store) *PatientService {
	return &PatientService{patients: patients, archive: archive}
}

type PatientInput struct {
	MRNumber string     `json:"mr_number" binding:"required"`
	FullName string     `json:"full_name" binding:"required"`
	DOB      *time.Time `json:"dob"`
	Sex      string     `json:"sex"`
	Phone    string     `json:"phone"`
	Address  string     `json:"address"`
}

func (s *PatientService) Create(input *PatientInput, createdBy uuid.UUID) (*models.Patient, error) {
	existing, err := s.patients.GetByMRNumber(input.MRNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateMR
	}

	patient := &models.Patient{
		MRNumber:  input.MRNumber,
		FullName:  input.FullName,
		DOB:       input.DOB,
		Sex:       input.Sex,
		Phone:     input.Phone,
		Address:   input.Address,
		CreatedBy: createdBy,
	}
	if err := s.patients.Create(patient); err != nil {
		return nil, err
	}
	return patient, nil
}

func (s *PatientService) Get(id uuid.UUID) (*models.Patient, error) {
	patient, err := s.patients.GetByID(id)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}
	return patient, nil
}

func (s *PatientService) List(limit, offset int) ([]models.Patient, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.patients.GetAll(limit, offset)
}

func (s *PatientService) Update(id uuid.UUID, input *PatientInput) (*models.Patient, error) {
	patient, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	patient.FullName = input.FullName
	patient.DOB = input.DOB
	patient.Sex = input.Sex
	patient.Phone = input.Phone
	patient.Address = input.Address
	patient.UpdatedAt = time.Now().UTC()

	if err := s.patients.Update(patient); err != nil {
		return nil, err
	}
	return patient, nil
}

func (s *PatientService) Delete(id uuid.UUID) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return s.patients.Delete(id)
}

type DocumentUploadInput struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

func (in *DocumentUploadInput) sanitizedFileName() string {
	if in == nil || in.FileName == "" {
		return uuid.NewString()
	}
	name := strings.TrimSpace(filepath.Base(in.FileName))
	if name == "" || name == "." {
		return uuid.NewString()
	}
	return name
}

// UploadDocument streams a scanned report into the document archive and
// records it against the patient. Clinical documents always go to the records
// container, which is never served without authentication.
func (s *PatientService) UploadDocument(ctx context.Context, patientID, uploadedBy uuid.UUID, input *DocumentUploadInput) (*models.ClinicalDocument, error) {
	if input == nil || input.Reader == nil {
		return nil, fmt.Errorf("patient service: invalid upload input")
	}
	if s.archive == nil {
		return nil, fmt.Errorf("patient service: document archive is not configured")
	}

	patient, err := s.Get(patientID)
	if err != nil {
		return nil, err
	}

	fileName := input.sanitizedFileName()
	ref, err := s.archive.Save(ctx, &storage.Upload{
		Container:   storage.ContainerRecords,
		Key:         fmt.Sprintf("%s/%s-%s", patient.ID, uuid.NewString(), fileName),
		ContentType: input.ContentType,
		Size:        input.Size,
		Body:        input.Reader,
	})
	if err != nil {
		return nil, err
	}

	doc := &models.ClinicalDocument{
		PatientID:   patient.ID,
		FileName:    fileName,
		ContentType: input.ContentType,
		SizeBytes:   input.Size,
		Container:   ref.Container.String(),
		StoragePath: ref.Key,
		UploadedBy:  uploadedBy,
	}
	if err := s.patients.CreateDocument(doc); err != nil {
		_ = s.archive.Remove(ctx, ref)
		return nil, err
	}
	return doc, nil
}

func (s *PatientService) ListDocuments(patientID uuid.UUID) ([]models.ClinicalDocument, error) {
	if _, err := s.Get(patientID); err != nil {
		return nil, err
	}
	return s.patients.ListDocuments(patientID)
}

func (s *PatientService) DownloadDocument(ctx context.Context, patientID, docID uuid.UUID) (*models.ClinicalDocument, *storage.Stream, error) {
	doc, err := s.patients.GetDocument(patientID, docID)
	if err != nil {
		return nil, nil, err
	}
	if doc == nil {
		return nil, nil, ErrDocumentNotFound
	}

	stream, err := s.archive.Open(ctx, &storage.Ref{
		Container: storage.Container(doc.Container),
		Key:       doc.StoragePath,
	})
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return doc, stream, nil
}
