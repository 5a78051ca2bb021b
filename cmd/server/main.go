package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rksaklani/pgimer-psy-sub000/internal/config"
	"github.com/rksaklani/pgimer-psy-sub000/internal/controllers"
	"github.com/rksaklani/pgimer-psy-sub000/internal/database"
	"github.com/rksaklani/pgimer-psy-sub000/internal/mailer"
	"github.com/rksaklani/pgimer-psy-sub000/internal/middleware"
	"github.com/rksaklani/pgimer-psy-sub000/internal/repositories"
	"github.com/rksaklani/pgimer-psy-sub000/internal/routes"
	"github.com/rksaklani/pgimer-psy-sub000/internal/services"
	"github.com/rksaklani/pgimer-psy-sub000/internal/storage"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Connect(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Error("error closing database", zap.Error(err))
		}
	}()

	if os.Getenv("AUTO_MIGRATE") == "true" {
		if err := database.RunMigrations(&cfg.Database); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	store, err := buildStorage(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize storage", zap.Error(err))
	}

	var mail mailer.Mailer
	if cfg.Email.Enabled {
		mail = mailer.NewSMTPMailer(cfg.Email)
	} else {
		mail = mailer.NewLogMailer(logger)
	}

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	sessionRepo := repositories.NewRefreshSessionRepository(db)
	loginOTPRepo := repositories.NewLoginOTPRepository(db)
	resetRepo := repositories.NewPasswordResetRepository(db)
	patientRepo := repositories.NewPatientRepository(db)

	idleTimeout, err := cfg.Session.GetIdleTimeout()
	if err != nil {
		logger.Fatal("invalid session.idle_timeout", zap.Error(err))
	}
	absoluteLifetime, err := cfg.Session.GetAbsoluteLifetime()
	if err != nil {
		logger.Fatal("invalid session.absolute_lifetime", zap.Error(err))
	}
	otpExpiry, err := cfg.OTP.GetExpiry()
	if err != nil {
		logger.Fatal("invalid otp.expiry", zap.Error(err))
	}

	// Services
	tokenService := services.NewTokenService(cfg)
	sessionService := services.NewSessionService(sessionRepo, userRepo, idleTimeout, absoluteLifetime, logger)
	otpService := services.NewOTPService(loginOTPRepo, resetRepo, otpExpiry, cfg.OTP.Digits)
	authService := services.NewAuthService(userRepo, tokenService, sessionService, otpService, mail, logger)
	resetService := services.NewPasswordResetService(userRepo, otpService, mail, logger)
	patientService := services.NewPatientService(patientRepo, store)

	// Controllers
	authController := controllers.NewAuthController(authService, sessionService, resetService, userRepo, cfg, logger)
	patientController := controllers.NewPatientController(patientService, logger)

	// Setup router
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(corsMiddleware(cfg))
	routes.SetupRoutes(router, authController, patientController, middleware.JWTAuthMiddleware(tokenService))

	addr := cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port)
	go func() {
		logger.Info("server running", zap.String("addr", addr))
		if err := router.Run(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to run server", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Logging.Format == "console" || cfg.Server.Mode == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func buildStorage(cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	if cfg.CloudStorage.Enabled {
		azStore, err := storage.NewAzureBlobStore(
			cfg.CloudStorage.Endpoint,
			cfg.CloudStorage.AccessKey,
			cfg.CloudStorage.SecretKey,
			cfg.CloudStorage.PublicContainer,
			cfg.CloudStorage.PrivateContainer,
		)
		if err != nil {
			logger.Warn("Azure Blob init failed, falling back to local storage", zap.Error(err))
			return storage.NewDiskStore(localStoragePath(cfg)), nil
		}
		return azStore, nil
	}
	return storage.NewDiskStore(localStoragePath(cfg)), nil
}

func localStoragePath(cfg *config.Config) string {
	if cfg.Storage.Path != "" {
		return cfg.Storage.Path
	}
	return "./storage/documents"
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down server")
}

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	origin := "*"
	if len(cfg.CORS.AllowedOrigins) > 0 {
		origin = strings.Join(cfg.CORS.AllowedOrigins, ", ")
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
		if cfg.CORS.AllowCredentials {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
