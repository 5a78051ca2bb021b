package services_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rksaklani/pgimer-psy-sub000/internal/models"
	"github.com/rksaklani/pgimer-psy-sub000/internal/services"
	"go.uber.org/zap"
)

func newTestSessionService(store *fakeSessionStore, user *models.User) *services.SessionService {
	users := &mockUserRepo{
		getByIDFunc: func(id uuid.UUID) (*models.User, error) {
			if user != nil && user.ID == id {
				return user, nil
			}
			return nil, nil
		},
	}
	return services.NewSessionService(store, users, 15*time.Minute, 7*24*time.Hour, zap.NewNop())
}

func activeUser() *models.User {
	return &models.User{
		ID:       uuid.New(),
		FullName: "Asha Verma",
		Email:    "asha@hospital.test",
		Role:     models.RoleDoctor,
		IsActive: true,
	}
}

func TestSessionService_CreateAndValidate(t *testing.T) {
	store := newFakeSessionStore()
	user := activeUser()
	svc := newTestSessionService(store, user)

	token, err := svc.Create(user.ID, "Mozilla/5.0", "10.0.0.5")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty session token")
	}

	userID, err := svc.ValidateAndTouch(token)
	if err != nil {
		t.Fatalf("ValidateAndTouch failed: %v", err)
	}
	if userID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, userID)
	}
}

func TestSessionService_UnknownToken(t *testing.T) {
	svc := newTestSessionService(newFakeSessionStore(), activeUser())

	if _, err := svc.ValidateAndTouch("no-such-token"); !errors.Is(err, services.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionService_InactivityExpiryRevokesPermanently(t *testing.T) {
	store := newFakeSessionStore()
	user := activeUser()
	svc := newTestSessionService(store, user)

	token, err := svc.Create(user.ID, "ua", "ip")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	store.setSession(token, func(s *models.RefreshSession) {
		s.LastActivity = time.Now().UTC().Add(-16 * time.Minute)
	})

	if _, err := svc.ValidateAndTouch(token); !errors.Is(err, services.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}

	// Terminal: the same token must now always fail as revoked.
	if _, err := svc.ValidateAndTouch(token); !errors.Is(err, services.ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked on second call, got %v", err)
	}
	if got := store.revokes(token); got != 1 {
		t.Fatalf("expected exactly one revoke, got %d", got)
	}
}

func TestSessionService_SlidingWindow(t *testing.T) {
	store := newFakeSessionStore()
	user := activeUser()
	svc := newTestSessionService(store, user)

	token, err := svc.Create(user.ID, "ua", "ip")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// 14 minutes idle: still inside the window.
	store.setSession(token, func(s *models.RefreshSession) {
		s.LastActivity = time.Now().UTC().Add(-14 * time.Minute)
	})
	if _, err := svc.ValidateAndTouch(token); err != nil {
		t.Fatalf("first touch inside window failed: %v", err)
	}

	// Another 14 minutes from the refreshed activity: still valid, because the
	// window slides rather than counting from creation.
	store.setSession(token, func(s *models.RefreshSession) {
		s.LastActivity = time.Now().UTC().Add(-14 * time.Minute)
	})
	if _, err := svc.ValidateAndTouch(token); err != nil {
		t.Fatalf("second touch inside window failed: %v", err)
	}
}

func TestSessionService_AbsoluteLifetimeDominates(t *testing.T) {
	store := newFakeSessionStore()
	user := activeUser()
	svc := newTestSessionService(store, user)

	token, err := svc.Create(user.ID, "ua", "ip")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Continuously active but past the 7-day ceiling.
	store.setSession(token, func(s *models.RefreshSession) {
		s.CreatedAt = time.Now().UTC().Add(-8 * 24 * time.Hour)
		s.LastActivity = time.Now().UTC().Add(-1 * time.Minute)
	})

	if _, err := svc.ValidateAndTouch(token); !errors.Is(err, services.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired past absolute lifetime, got %v", err)
	}
}

func TestSessionService_TouchSharesExpiryRules(t *testing.T) {
	store := newFakeSessionStore()
	user := activeUser()
	svc := newTestSessionService(store, user)

	token, err := svc.Create(user.ID, "ua", "ip")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	store.setSession(token, func(s *models.RefreshSession) {
		s.LastActivity = time.Now().UTC().Add(-16 * time.Minute)
	})

	if err := svc.Touch(token); !errors.Is(err, services.ErrSessionExpired) {
		t.Fatalf("keep-alive path must reject idle sessions, got %v", err)
	}
}

func TestSessionService_ConcurrentExpiryRevokesOnce(t *testing.T) {
	store := newFakeSessionStore()
	user := activeUser()
	svc := newTestSessionService(store, user)

	token, err := svc.Create(user.ID, "ua", "ip")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	store.setSession(token, func(s *models.RefreshSession) {
		s.LastActivity = time.Now().UTC().Add(-16 * time.Minute)
	})

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ValidateAndTouch(token); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 0 {
		t.Fatalf("timed-out session must never validate, got %d successes", successes)
	}
	if got := store.revokes(token); got != 1 {
		t.Fatalf("expected exactly one revoke under concurrency, got %d", got)
	}
}

func TestSessionService_RevokeIsIdempotent(t *testing.T) {
	store := newFakeSessionStore()
	user := activeUser()
	svc := newTestSessionService(store, user)

	token, err := svc.Create(user.ID, "ua", "ip")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.Revoke(token); err != nil {
		t.Fatalf("first revoke failed: %v", err)
	}
	if err := svc.Revoke(token); err != nil {
		t.Fatalf("second revoke must be a no-op, got %v", err)
	}
	// Logout with a token the store has never seen also succeeds.
	if err := svc.Revoke("never-existed"); err != nil {
		t.Fatalf("revoking unknown token must succeed, got %v", err)
	}
}

func TestSessionService_DeactivatedOwnerRevokesSession(t *testing.T) {
	store := newFakeSessionStore()
	user := activeUser()
	svc := newTestSessionService(store, user)

	token, err := svc.Create(user.ID, "ua", "ip")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	user.IsActive = false
	if _, err := svc.ValidateAndTouch(token); !errors.Is(err, services.ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked for deactivated owner, got %v", err)
	}
	if got := store.revokes(token); got != 1 {
		t.Fatalf("expected session revoked once, got %d", got)
	}
}

func TestSessionService_InfoDoesNotExtendSession(t *testing.T) {
	store := newFakeSessionStore()
	user := activeUser()
	svc := newTestSessionService(store, user)

	token, err := svc.Create(user.ID, "Workstation A", "ip")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	lastActivity := time.Now().UTC().Add(-10 * time.Minute)
	store.setSession(token, func(s *models.RefreshSession) {
		s.LastActivity = lastActivity
	})

	info, err := svc.Info(token)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.DeviceInfo != "Workstation A" {
		t.Fatalf("unexpected device info %q", info.DeviceInfo)
	}
	if info.SecondsUntilExpiry <= 0 || info.SecondsUntilExpiry > 5*60 {
		t.Fatalf("expected ~5 minutes remaining, got %d seconds", info.SecondsUntilExpiry)
	}

	stored, _ := store.GetByToken(token)
	if !stored.LastActivity.Equal(lastActivity) {
		t.Fatal("Info must not write last_activity")
	}
}
