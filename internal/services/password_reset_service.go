package services

import (
	"errors"
	"fmt"

	"github.com/rksaklani/pgimer-psy-sub000/internal/mailer"
	"github.com/rksaklani/pgimer-psy-sub000/internal/repositories"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ResetVerification is what the client gets back after the code checks out:
// the still-live reset token plus enough display info for the confirm screen.
type ResetVerification struct {
	Token    string
	FullName string
	Email    string
}

// PasswordResetService runs the two-phase reset flow: code first (yields a
// bearer token reusable within the expiry window), token second (performs the
// actual change and is consumed then).
type PasswordResetService struct {
	users repositories.UserRepository
	otps  *OTPService
	mail  mailer.Mailer
	log   *zap.Logger
}

func NewPasswordResetService(
	users repositories.UserRepository,
	otps *OTPService,
	mail mailer.Mailer,
	log *zap.Logger,
) *PasswordResetService {
	return &PasswordResetService{users: users, otps: otps, mail: mail, log: log}
}

// RequestReset issues a reset code for the account, if one exists. A nil
// error carries no information about account existence: unknown emails and
// deactivated accounts return success without issuing anything. Only delivery
// failures surface, as a server error.
func (s *PasswordResetService) RequestReset(email string) error {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil
	}

	otp, err := s.otps.IssueResetOTP(user.ID)
	if err != nil {
		return err
	}

	if err := s.mail.Send(
		user.Email,
		"Password reset code",
		fmt.Sprintf("Your password reset code is %s. It expires in 5 minutes. If you did not request this, ignore this email.", otp.Code),
	); err != nil {
		return fmt.Errorf("deliver reset code: %w", err)
	}
	return nil
}

// VerifyResetOTP establishes that the caller holds the right code for the
// token. Nothing is consumed here; the token stays valid for ResetPassword.
func (s *PasswordResetService) VerifyResetOTP(token, code string) (*ResetVerification, error) {
	otp, err := s.otps.VerifyResetOTP(token, code)
	if err != nil {
		if errors.Is(err, ErrResetTokenInvalid) || errors.Is(err, ErrOTPMismatch) {
			return nil, ErrResetTokenInvalid
		}
		return nil, err
	}

	user, err := s.users.GetByID(otp.UserID)
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return nil, ErrResetTokenInvalid
	}

	return &ResetVerification{
		Token:    otp.Token,
		FullName: user.FullName,
		Email:    user.Email,
	}, nil
}

// ResetPassword changes the password and burns the token. The conditional
// mark-used means a replayed token loses cleanly even when two submissions
// race.
func (s *PasswordResetService) ResetPassword(token, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("password too short, minimum 8 characters required")
	}

	otp, err := s.otps.GetResetOTP(token)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(otp.UserID)
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return ErrResetTokenInvalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.otps.ConsumeResetOTP(token); err != nil {
		return err
	}

	if err := s.users.UpdatePassword(user.ID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.log.Info("password reset completed", zap.String("user_id", user.ID.String()))

	// Best effort: a failed confirmation email never overturns the reset.
	if err := s.mail.Send(
		user.Email,
		"Your password was changed",
		"Your account password was just changed. If this was not you, contact the administrator immediately.",
	); err != nil {
		s.log.Warn("failed to send reset confirmation", zap.Error(err))
	}

	return nil
}
