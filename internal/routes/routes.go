package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rksaklani/pgimer-psy-sub000/internal/controllers"
)

// SetupRoutes registers all application routes.
func SetupRoutes(
	router *gin.Engine,
	authController *controllers.AuthController,
	patientController *controllers.PatientController,
	authMiddleware gin.HandlerFunc,
) {
	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/")

	// Auth routes: /auth/*
	authGroup := api.Group("/auth")
	RegisterAuthRoutes(authGroup, authController)

	// User profile route: /user
	userGroup := api.Group("/user")
	userGroup.Use(authMiddleware)
	{
		userGroup.GET("", authController.Profile)
	}

	// Patient routes: /patients/*
	patientGroup := api.Group("/patients")
	RegisterPatientRoutes(patientGroup, patientController, authMiddleware)
}
