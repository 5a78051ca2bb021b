package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rksaklani/pgimer-psy-sub000/internal/services"
	"go.uber.org/zap"
)

type PatientController struct {
	patients *services.PatientService
	log      *zap.Logger
}

func NewPatientController(patients *services.PatientService, log *zap.Logger) *PatientController {
	return &PatientController{patients: patients, log: log}
}

// Create - register a new patient
// POST /patients
func (pc *PatientController) Create(c *gin.Context) {
	var input services.PatientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	userID := c.MustGet("userID").(uuid.UUID)
	patient, err := pc.patients.Create(&input, userID)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateMR) {
			c.JSON(http.StatusConflict, gin.H{"error": "MR number already registered"})
			return
		}
		pc.serverError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"patient": patient})
}

// List - paginated patient listing
// GET /patients
func (pc *PatientController) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	patients, total, err := pc.patients.List(limit, offset)
	if err != nil {
		pc.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patients": patients, "total": total})
}

// Get - single patient
// GET /patients/:id
func (pc *PatientController) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid patient id"})
		return
	}

	patient, err := pc.patients.Get(id)
	if err != nil {
		pc.patientError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patient": patient})
}

// Update - edit patient demographics
// PUT /patients/:id
func (pc *PatientController) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid patient id"})
		return
	}

	var input services.PatientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	patient, err := pc.patients.Update(id, &input)
	if err != nil {
		pc.patientError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patient": patient})
}

// Delete - remove a patient record
// DELETE /patients/:id
func (pc *PatientController) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid patient id"})
		return
	}

	if err := pc.patients.Delete(id); err != nil {
		pc.patientError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Patient deleted"})
}

// UploadDocument - attach a scanned report
// POST /patients/:id/documents
func (pc *PatientController) UploadDocument(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid patient id"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		pc.serverError(c, err)
		return
	}
	defer file.Close()

	userID := c.MustGet("userID").(uuid.UUID)
	doc, err := pc.patients.UploadDocument(c.Request.Context(), patientID, userID, &services.DocumentUploadInput{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Reader:      file,
	})
	if err != nil {
		pc.patientError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"document": doc})
}

// ListDocuments - attachments for a patient
// GET /patients/:id/documents
func (pc *PatientController) ListDocuments(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid patient id"})
		return
	}

	docs, err := pc.patients.ListDocuments(patientID)
	if err != nil {
		pc.patientError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// DownloadDocument - stream an attachment back
// GET /patients/:id/documents/:docID
func (pc *PatientController) DownloadDocument(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid patient id"})
		return
	}
	docID, err := uuid.Parse(c.Param("docID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document id"})
		return
	}

	doc, stream, err := pc.patients.DownloadDocument(c.Request.Context(), patientID, docID)
	if err != nil {
		pc.patientError(c, err)
		return
	}
	defer stream.Body.Close()

	contentType := stream.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	c.DataFromReader(http.StatusOK, stream.Size, contentType, stream.Body, nil)
}

func (pc *PatientController) patientError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPatientNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Patient not found"})
	case errors.Is(err, services.ErrDocumentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
	default:
		pc.serverError(c, err)
	}
}

func (pc *PatientController) serverError(c *gin.Context, err error) {
	pc.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
