package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rksaklani/pgimer-psy-sub000/internal/mailer"
	"github.com/rksaklani/pgimer-psy-sub000/internal/models"
	"github.com/rksaklani/pgimer-psy-sub000/internal/repositories"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrInvalidOTP         = errors.New("invalid or expired code")
)

// Credentials is the payload of a completed login: the short-lived access
// token plus the opaque refresh-session token destined for the cookie.
type Credentials struct {
	User         *models.User
	AccessToken  string
	SessionToken string
}

// PendingLogin is returned when the password checked out but a second factor
// is still owed. No tokens exist yet.
type PendingLogin struct {
	UserID uuid.UUID
	Email  string
}

// AuthService orchestrates the login state machine: password check, the
// conditional two-factor branch, and session completion.
type AuthService struct {
	users    repositories.UserRepository
	tokens   *TokenService
	sessions *SessionService
	otps     *OTPService
	mail     mailer.Mailer
	log      *zap.Logger
}

func NewAuthService(
	users repositories.UserRepository,
	tokens *TokenService,
	sessions *SessionService,
	otps *OTPService,
	mail mailer.Mailer,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		otps:     otps,
		mail:     mail,
		log:      log,
	}
}

// Login validates the password and either completes the session directly or
// parks the attempt behind an emailed one-time code. Unknown email and wrong
// password collapse into the same error so responses cannot be used to probe
// which accounts exist.
func (s *AuthService) Login(email, password, deviceInfo, ipAddress string) (*Credentials, *PendingLogin, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, nil, fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return nil, nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, nil, ErrAccountDeactivated
	}

	if !user.TwoFactorEnabled {
		creds, err := s.completeLogin(user, deviceInfo, ipAddress)
		if err != nil {
			return nil, nil, err
		}
		return creds, nil, nil
	}

	otp, err := s.otps.IssueLoginOTP(user.ID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.mail.Send(
		user.Email,
		"Your login verification code",
		fmt.Sprintf("Your verification code is %s. It expires in 5 minutes.", otp.Code),
	); err != nil {
		return nil, nil, fmt.Errorf("deliver login code: %w", err)
	}

	return nil, &PendingLogin{UserID: user.ID, Email: user.Email}, nil
}

// VerifyLoginOTP finishes the two-factor branch. Any engine failure (missing,
// expired, mismatched, already consumed) surfaces as the same error; the
// account-active check is repeated because the account may have been
// deactivated between code issuance and verification.
func (s *AuthService) VerifyLoginOTP(userID uuid.UUID, code, deviceInfo, ipAddress string) (*Credentials, error) {
	otp, err := s.otps.VerifyLoginOTP(userID, code)
	if err != nil {
		if isOTPFailure(err) {
			return nil, ErrInvalidOTP
		}
		return nil, err
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	if err := s.otps.ConsumeLoginOTP(otp.ID); err != nil {
		if isOTPFailure(err) {
			return nil, ErrInvalidOTP
		}
		return nil, err
	}

	return s.completeLogin(user, deviceInfo, ipAddress)
}

// Refresh exchanges a live refresh session for a fresh access token, sliding
// the session's idle window forward.
func (s *AuthService) Refresh(sessionToken string) (*Credentials, error) {
	userID, err := s.sessions.ValidateAndTouch(sessionToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionRevoked
	}

	accessToken, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	return &Credentials{User: user, AccessToken: accessToken, SessionToken: sessionToken}, nil
}

// completeLogin is the single exit into a logged-in state. Access token and
// refresh session are treated as a unit: if the session cannot be persisted,
// no token leaves this function.
func (s *AuthService) completeLogin(user *models.User, deviceInfo, ipAddress string) (*Credentials, error) {
	accessToken, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	sessionToken, err := s.sessions.Create(user.ID, deviceInfo, ipAddress)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(user.ID, now); err != nil {
		s.log.Warn("failed to update last login", zap.String("user_id", user.ID.String()), zap.Error(err))
	} else {
		user.LastLoginAt = &now
	}

	s.log.Info("login completed",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)

	return &Credentials{
		User:         user,
		AccessToken:  accessToken,
		SessionToken: sessionToken,
	}, nil
}

func isOTPFailure(err error) bool {
	return errors.Is(err, ErrOTPNotFound) ||
		errors.Is(err, ErrOTPExpired) ||
		errors.Is(err, ErrOTPMismatch) ||
		errors.Is(err, ErrOTPAlreadyUsed)
}
