package services_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rksaklani/pgimer-psy-sub000/internal/models"
	"github.com/rksaklani/pgimer-psy-sub000/internal/services"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type resetRig struct {
	svc       *services.PasswordResetService
	resets    *fakeResetStore
	mail      *captureMailer
	passwords map[uuid.UUID]string
}

func newResetRig(t *testing.T, user *models.User) *resetRig {
	t.Helper()

	rig := &resetRig{
		resets:    newFakeResetStore(),
		mail:      &captureMailer{},
		passwords: make(map[uuid.UUID]string),
	}
	users := &mockUserRepo{
		getByEmailFunc: func(email string) (*models.User, error) {
			if user != nil && strings.EqualFold(user.Email, email) {
				return user, nil
			}
			return nil, nil
		},
		getByIDFunc: func(id uuid.UUID) (*models.User, error) {
			if user != nil && user.ID == id {
				return user, nil
			}
			return nil, nil
		},
		updatePasswordFunc: func(id uuid.UUID, passwordHash string) error {
			rig.passwords[id] = passwordHash
			return nil
		},
	}

	otps := services.NewOTPService(newFakeLoginOTPStore(), rig.resets, 5*time.Minute, 6)
	rig.svc = services.NewPasswordResetService(users, otps, rig.mail, zap.NewNop())
	return rig
}

func resetTestUser() *models.User {
	return &models.User{
		ID:       uuid.New(),
		FullName: "Meera Nair",
		Email:    "meera@hospital.test",
		Role:     models.RoleStaff,
		IsActive: true,
	}
}

// Requesting a reset for an unknown account must look exactly like requesting
// one for a real account: nil error, no observable branching.
func TestPasswordReset_RequestHidesAccountExistence(t *testing.T) {
	user := resetTestUser()
	rig := newResetRig(t, user)

	if err := rig.svc.RequestReset("ghost@hospital.test"); err != nil {
		t.Fatalf("unknown email must not error, got %v", err)
	}
	if len(rig.mail.messages()) != 0 {
		t.Fatal("no email may be sent for unknown accounts")
	}

	if err := rig.svc.RequestReset(user.Email); err != nil {
		t.Fatalf("known email failed: %v", err)
	}
	if len(rig.mail.messages()) != 1 {
		t.Fatalf("expected one reset email, got %d", len(rig.mail.messages()))
	}
}

func TestPasswordReset_DeliveryFailureSurfaces(t *testing.T) {
	user := resetTestUser()
	rig := newResetRig(t, user)
	rig.mail.err = errors.New("smtp connection refused")

	if err := rig.svc.RequestReset(user.Email); err == nil {
		t.Fatal("delivery failure must surface as an error")
	}
}

func TestPasswordReset_FullFlow(t *testing.T) {
	user := resetTestUser()
	rig := newResetRig(t, user)

	if err := rig.svc.RequestReset(user.Email); err != nil {
		t.Fatalf("RequestReset failed: %v", err)
	}

	issued := rig.issuedOTP(t, user.ID)

	verification, err := rig.svc.VerifyResetOTP(issued.Token, issued.Code)
	if err != nil {
		t.Fatalf("VerifyResetOTP failed: %v", err)
	}
	if verification.Token != issued.Token {
		t.Fatal("verification must hand back the still-live reset token")
	}
	if verification.Email != user.Email {
		t.Fatalf("unexpected display email %q", verification.Email)
	}

	if err := rig.svc.ResetPassword(issued.Token, "brand-new-pass-1"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	hash, ok := rig.passwords[user.ID]
	if !ok {
		t.Fatal("expected the password hash to be updated")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("brand-new-pass-1")); err != nil {
		t.Fatal("stored hash does not match the new password")
	}

	// Single use: replaying the token must fail.
	if err := rig.svc.ResetPassword(issued.Token, "another-pass-22"); !errors.Is(err, services.ErrResetTokenInvalid) {
		t.Fatalf("second reset with same token must fail, got %v", err)
	}
}

func TestPasswordReset_WrongCode(t *testing.T) {
	user := resetTestUser()
	rig := newResetRig(t, user)

	if err := rig.svc.RequestReset(user.Email); err != nil {
		t.Fatalf("RequestReset failed: %v", err)
	}
	issued := rig.issuedOTP(t, user.ID)

	wrong := "000000"
	if wrong == issued.Code {
		wrong = "000001"
	}
	if _, err := rig.svc.VerifyResetOTP(issued.Token, wrong); !errors.Is(err, services.ErrResetTokenInvalid) {
		t.Fatalf("wrong code must fail, got %v", err)
	}
}

func TestPasswordReset_ConfirmationFailureDoesNotFailReset(t *testing.T) {
	user := resetTestUser()
	rig := newResetRig(t, user)

	if err := rig.svc.RequestReset(user.Email); err != nil {
		t.Fatalf("RequestReset failed: %v", err)
	}
	issued := rig.issuedOTP(t, user.ID)

	// Mail breaks after the code went out; the reset itself must still land.
	rig.mail.err = errors.New("smtp connection refused")

	if err := rig.svc.ResetPassword(issued.Token, "brand-new-pass-1"); err != nil {
		t.Fatalf("reset must succeed despite confirmation failure, got %v", err)
	}
	if _, ok := rig.passwords[user.ID]; !ok {
		t.Fatal("expected the password to be updated")
	}
}

func TestPasswordReset_ShortPasswordRejected(t *testing.T) {
	user := resetTestUser()
	rig := newResetRig(t, user)

	if err := rig.svc.RequestReset(user.Email); err != nil {
		t.Fatalf("RequestReset failed: %v", err)
	}
	issued := rig.issuedOTP(t, user.ID)

	if err := rig.svc.ResetPassword(issued.Token, "short"); err == nil {
		t.Fatal("short password must be rejected")
	}
	// The token must survive the rejected attempt.
	if err := rig.svc.ResetPassword(issued.Token, "long-enough-pass"); err != nil {
		t.Fatalf("token must stay live after a rejected password, got %v", err)
	}
}

func (rig *resetRig) issuedOTP(t *testing.T, userID uuid.UUID) *models.PasswordResetOTP {
	t.Helper()
	rig.resets.mu.Lock()
	defer rig.resets.mu.Unlock()
	for _, otp := range rig.resets.otps {
		if otp.UserID == userID && otp.UsedAt == nil {
			copied := *otp
			return &copied
		}
	}
	t.Fatal("no live reset OTP found")
	return nil
}
