package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rksaklani/pgimer-psy-sub000/internal/controllers"
)

func RegisterAuthRoutes(router *gin.RouterGroup, authController *controllers.AuthController) {
	// Public auth endpoints
	// POST /auth/login - Login user (password step)
	router.POST("/login", authController.Login)

	// POST /auth/login/otp - Login with emailed OTP after password step
	router.POST("/login/otp", authController.LoginOTP)

	// Session lifecycle; authenticated by the HTTP-only session cookie,
	// not by a bearer token.
	// POST /auth/refresh - Exchange the session cookie for a new access token
	router.POST("/refresh", authController.Refresh)

	// POST /auth/session/touch - Keep-alive, extends the idle window
	router.POST("/session/touch", authController.TouchSession)

	// GET /auth/session - Session info without extending it
	router.GET("/session", authController.SessionInfo)

	// POST /auth/logout - Revoke the session (idempotent)
	router.POST("/logout", authController.Logout)

	// Password reset flow
	// POST /auth/password/forgot - Request a reset code
	router.POST("/password/forgot", authController.ForgotPassword)

	// POST /auth/password/verify-otp - Verify the code, keep the token live
	router.POST("/password/verify-otp", authController.VerifyResetOTP)

	// POST /auth/password/reset - Change the password with the reset token
	router.POST("/password/reset", authController.ResetPassword)
}
