package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rksaklani/pgimer-psy-sub000/internal/config"
	"github.com/rksaklani/pgimer-psy-sub000/internal/repositories"
	"github.com/rksaklani/pgimer-psy-sub000/internal/services"
	"go.uber.org/zap"
)

const sessionCookieName = "refresh_token"

// AuthController exposes the login, session-lifecycle, and password-reset
// endpoints. The refresh-session token only ever travels inside an HTTP-only
// cookie.
type AuthController struct {
	auth     *services.AuthService
	sessions *services.SessionService
	resets   *services.PasswordResetService
	userRepo repositories.UserRepository
	cfg      *config.Config
	log      *zap.Logger
}

func NewAuthController(
	auth *services.AuthService,
	sessions *services.SessionService,
	resets *services.PasswordResetService,
	userRepo repositories.UserRepository,
	cfg *config.Config,
	log *zap.Logger,
) *AuthController {
	return &AuthController{
		auth:     auth,
		sessions: sessions,
		resets:   resets,
		userRepo: userRepo,
		cfg:      cfg,
		log:      log,
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginOTPRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Code   string    `json:"code" binding:"required,len=6"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type verifyResetOTPRequest struct {
	Token string `json:"token" binding:"required"`
	Code  string `json:"code" binding:"required,len=6"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// Login - password step
// POST /auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	creds, pending, err := ac.auth.Login(req.Email, req.Password, c.GetHeader("User-Agent"), c.ClientIP())
	if err != nil {
		ac.loginError(c, err)
		return
	}

	if pending != nil {
		c.JSON(http.StatusOK, gin.H{
			"two_factor_required": true,
			"user_id":             pending.UserID,
			"email":               pending.Email,
			"message":             "A verification code has been sent to your email",
		})
		return
	}

	ac.setSessionCookie(c, creds.SessionToken)
	c.JSON(http.StatusOK, gin.H{
		"access_token": creds.AccessToken,
		"user":         userPayload(creds),
	})
}

// LoginOTP - second factor step
// POST /auth/login/otp
func (ac *AuthController) LoginOTP(c *gin.Context) {
	var req loginOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	creds, err := ac.auth.VerifyLoginOTP(req.UserID, req.Code, c.GetHeader("User-Agent"), c.ClientIP())
	if err != nil {
		ac.loginError(c, err)
		return
	}

	ac.setSessionCookie(c, creds.SessionToken)
	c.JSON(http.StatusOK, gin.H{
		"access_token": creds.AccessToken,
		"user":         userPayload(creds),
	})
}

// Refresh - exchange the session cookie for a fresh access token
// POST /auth/refresh
func (ac *AuthController) Refresh(c *gin.Context) {
	token, err := c.Cookie(sessionCookieName)
	if err != nil || token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No active session"})
		return
	}

	creds, err := ac.auth.Refresh(token)
	if err != nil {
		ac.sessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": creds.AccessToken,
		"user":         userPayload(creds),
	})
}

// TouchSession - keep-alive without issuing a new access token
// POST /auth/session/touch
func (ac *AuthController) TouchSession(c *gin.Context) {
	token, err := c.Cookie(sessionCookieName)
	if err != nil || token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No active session"})
		return
	}

	if err := ac.sessions.Touch(token); err != nil {
		ac.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session extended"})
}

// SessionInfo - read-only session projection; never extends the session
// GET /auth/session
func (ac *AuthController) SessionInfo(c *gin.Context) {
	token, err := c.Cookie(sessionCookieName)
	if err != nil || token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No active session"})
		return
	}

	info, err := ac.sessions.Info(token)
	if err != nil {
		ac.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Logout - revoke the session; always succeeds, even for unknown tokens
// POST /auth/logout
func (ac *AuthController) Logout(c *gin.Context) {
	token, _ := c.Cookie(sessionCookieName)
	if err := ac.sessions.Revoke(token); err != nil {
		ac.log.Error("logout revoke failed", zap.Error(err))
	}
	ac.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "User logged out successfully"})
}

// ForgotPassword - request a reset code
// POST /auth/password/forgot
func (ac *AuthController) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := ac.resets.RequestReset(req.Email); err != nil {
		ac.log.Error("password reset request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not process request, try again later"})
		return
	}

	// Same response whether or not the account exists.
	c.JSON(http.StatusOK, gin.H{
		"message": "If this account exists, a reset code has been sent to its email",
	})
}

// VerifyResetOTP - code step of the reset flow
// POST /auth/password/verify-otp
func (ac *AuthController) VerifyResetOTP(c *gin.Context) {
	var req verifyResetOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	verification, err := ac.resets.VerifyResetOTP(req.Token, req.Code)
	if err != nil {
		if errors.Is(err, services.ErrResetTokenInvalid) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired code"})
			return
		}
		ac.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     verification.Token,
		"full_name": verification.FullName,
		"email":     verification.Email,
	})
}

// ResetPassword - token step of the reset flow
// POST /auth/password/reset
func (ac *AuthController) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := ac.resets.ResetPassword(req.Token, req.Password); err != nil {
		if errors.Is(err, services.ErrResetTokenInvalid) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired reset token"})
			return
		}
		ac.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

// Profile - current user
// GET /user
func (ac *AuthController) Profile(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid authentication token"})
		return
	}

	user, err := ac.userRepo.GetByID(userID.(uuid.UUID))
	if err != nil || user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to retrieve user profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": gin.H{
		"id":                 user.ID,
		"full_name":          user.FullName,
		"email":              user.Email,
		"role":               user.Role,
		"two_factor_enabled": user.TwoFactorEnabled,
		"last_login_at":      user.LastLoginAt,
	}})
}

func (ac *AuthController) loginError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
	case errors.Is(err, services.ErrAccountDeactivated):
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is deactivated"})
	case errors.Is(err, services.ErrInvalidOTP):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired code"})
	default:
		ac.serverError(c, err)
	}
}

func (ac *AuthController) sessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrSessionRevoked),
		errors.Is(err, services.ErrSessionExpired):
		ac.clearSessionCookie(c)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired, please log in again"})
	default:
		ac.serverError(c, err)
	}
}

func (ac *AuthController) serverError(c *gin.Context, err error) {
	ac.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func (ac *AuthController) setSessionCookie(c *gin.Context, token string) {
	lifetime, err := ac.cfg.Session.GetAbsoluteLifetime()
	if err != nil || lifetime <= 0 {
		lifetime = 7 * 24 * time.Hour
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(sessionCookieName, token, int(lifetime.Seconds()), "/", "", ac.cfg.Server.Mode == "release", true)
}

func (ac *AuthController) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(sessionCookieName, "", -1, "/", "", ac.cfg.Server.Mode == "release", true)
}

func userPayload(creds *services.Credentials) gin.H {
	return gin.H{
		"id":                 creds.User.ID,
		"full_name":          creds.User.FullName,
		"email":              creds.User.Email,
		"role":               creds.User.Role,
		"two_factor_enabled": creds.User.TwoFactorEnabled,
	}
}
