package services

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rksaklani/pgimer-psy-sub000/internal/models"
	"github.com/rksaklani/pgimer-psy-sub000/internal/repositories"
)

var (
	ErrOTPNotFound    = errors.New("no pending code")
	ErrOTPExpired     = errors.New("code expired")
	ErrOTPMismatch    = errors.New("code mismatch")
	ErrOTPAlreadyUsed = errors.New("code already used")

	ErrResetTokenInvalid = errors.New("invalid or expired reset token")
)

// OTPService is the single-use, time-boxed code engine behind both the
// two-factor login step and the password-reset flow. Issuing a new code
// invalidates any unconsumed codes for the same user and purpose, so the most
// recently delivered code is the only valid one.
type OTPService struct {
	loginOTPs repositories.LoginOTPRepository
	resetOTPs repositories.PasswordResetRepository
	expiry    time.Duration
	digits    int
}

func NewOTPService(
	loginOTPs repositories.LoginOTPRepository,
	resetOTPs repositories.PasswordResetRepository,
	expiry time.Duration,
	digits int,
) *OTPService {
	return &OTPService{
		loginOTPs: loginOTPs,
		resetOTPs: resetOTPs,
		expiry:    expiry,
		digits:    digits,
	}
}

func (s *OTPService) IssueLoginOTP(userID uuid.UUID) (*models.LoginOTP, error) {
	code, err := generateNumericCode(s.digits)
	if err != nil {
		return nil, fmt.Errorf("generate login code: %w", err)
	}

	now := time.Now().UTC()
	if err := s.loginOTPs.InvalidateActive(userID, now); err != nil {
		return nil, fmt.Errorf("invalidate prior login codes: %w", err)
	}

	otp := &models.LoginOTP{
		UserID:    userID,
		Code:      code,
		ExpiresAt: now.Add(s.expiry),
		CreatedAt: now,
	}
	if err := s.loginOTPs.Create(otp); err != nil {
		return nil, fmt.Errorf("persist login code: %w", err)
	}
	return otp, nil
}

// VerifyLoginOTP checks the submitted code against the newest unconsumed one
// for the user. It does not consume; callers pair it with ConsumeLoginOTP so
// the read and the mark-used form one logical operation.
func (s *OTPService) VerifyLoginOTP(userID uuid.UUID, code string) (*models.LoginOTP, error) {
	otp, err := s.loginOTPs.GetActiveByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("load login code: %w", err)
	}
	if otp == nil {
		return nil, ErrOTPNotFound
	}
	if !time.Now().UTC().Before(otp.ExpiresAt) {
		return nil, ErrOTPExpired
	}
	if subtle.ConstantTimeCompare([]byte(otp.Code), []byte(code)) != 1 {
		return nil, ErrOTPMismatch
	}
	return otp, nil
}

// ConsumeLoginOTP marks the code used. Exactly one of any set of racing
// callers gets a nil error; the rest see ErrOTPAlreadyUsed.
func (s *OTPService) ConsumeLoginOTP(id uuid.UUID) error {
	used, err := s.loginOTPs.MarkUsed(id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("consume login code: %w", err)
	}
	if !used {
		return ErrOTPAlreadyUsed
	}
	return nil
}

// IssueResetOTP mints a code plus the opaque reset token that later
// authorizes the actual password change.
func (s *OTPService) IssueResetOTP(userID uuid.UUID) (*models.PasswordResetOTP, error) {
	code, err := generateNumericCode(s.digits)
	if err != nil {
		return nil, fmt.Errorf("generate reset code: %w", err)
	}
	token, err := newOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("generate reset token: %w", err)
	}

	now := time.Now().UTC()
	if err := s.resetOTPs.InvalidateActive(userID, now); err != nil {
		return nil, fmt.Errorf("invalidate prior reset codes: %w", err)
	}

	otp := &models.PasswordResetOTP{
		Token:     token,
		UserID:    userID,
		Code:      code,
		ExpiresAt: now.Add(s.expiry),
		CreatedAt: now,
	}
	if err := s.resetOTPs.Create(otp); err != nil {
		return nil, fmt.Errorf("persist reset code: %w", err)
	}
	return otp, nil
}

// VerifyResetOTP establishes code-correctness for the token without consuming
// anything; the token stays live for the final reset step.
func (s *OTPService) VerifyResetOTP(token, code string) (*models.PasswordResetOTP, error) {
	otp, err := s.getLiveResetOTP(token)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(otp.Code), []byte(code)) != 1 {
		return nil, ErrOTPMismatch
	}
	return otp, nil
}

// GetResetOTP returns the live (unconsumed, unexpired) record for the token.
func (s *OTPService) GetResetOTP(token string) (*models.PasswordResetOTP, error) {
	return s.getLiveResetOTP(token)
}

func (s *OTPService) getLiveResetOTP(token string) (*models.PasswordResetOTP, error) {
	otp, err := s.resetOTPs.GetByToken(token)
	if err != nil {
		return nil, fmt.Errorf("load reset token: %w", err)
	}
	if otp == nil || otp.UsedAt != nil {
		return nil, ErrResetTokenInvalid
	}
	if !time.Now().UTC().Before(otp.ExpiresAt) {
		return nil, ErrResetTokenInvalid
	}
	return otp, nil
}

// ConsumeResetOTP burns the reset token at the moment the password actually
// changes.
func (s *OTPService) ConsumeResetOTP(token string) error {
	used, err := s.resetOTPs.MarkUsed(token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if !used {
		return ErrResetTokenInvalid
	}
	return nil
}
