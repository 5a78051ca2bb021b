package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rksaklani/pgimer-psy-sub000/internal/controllers"
)

func RegisterPatientRoutes(router *gin.RouterGroup, patientController *controllers.PatientController, authMiddleware gin.HandlerFunc) {
	router.Use(authMiddleware)

	router.POST("", patientController.Create)
	router.GET("", patientController.List)
	router.GET("/:id", patientController.Get)
	router.PUT("/:id", patientController.Update)
	router.DELETE("/:id", patientController.Delete)

	router.POST("/:id/documents", patientController.UploadDocument)
	router.GET("/:id/documents", patientController.ListDocuments)
	router.GET("/:id/documents/:docID", patientController.DownloadDocument)
}
