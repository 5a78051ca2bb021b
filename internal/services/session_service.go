package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rksaklani/pgimer-psy-sub000/internal/models"
	"github.com/rksaklani/pgimer-psy-sub000/internal/repositories"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionRevoked  = errors.New("session revoked")
	// ErrSessionExpired covers both the sliding inactivity window and the
	// absolute lifetime ceiling; either way the client must log in again.
	ErrSessionExpired = errors.New("session expired")
)

// SessionInfo is a read-only projection of a live session.
type SessionInfo struct {
	LastActivity       time.Time `json:"last_activity"`
	ExpiresAt          time.Time `json:"expires_at"`
	SecondsUntilExpiry int64     `json:"seconds_until_expiry"`
	DeviceInfo         string    `json:"device_info"`
}

// SessionService manages persisted refresh sessions. It holds no in-process
// state: every decision is a read/compare/conditional-write against the
// repository, so correctness reduces to the store's row-level atomicity.
type SessionService struct {
	sessions repositories.RefreshSessionRepository
	users    repositories.UserRepository
	log      *zap.Logger

	idleTimeout      time.Duration
	absoluteLifetime time.Duration
}

func NewSessionService(
	sessions repositories.RefreshSessionRepository,
	users repositories.UserRepository,
	idleTimeout, absoluteLifetime time.Duration,
	log *zap.Logger,
) *SessionService {
	return &SessionService{
		sessions:         sessions,
		users:            users,
		log:              log,
		idleTimeout:      idleTimeout,
		absoluteLifetime: absoluteLifetime,
	}
}

// Create mints an opaque session token and persists a fresh session record.
// The token travels back to the client as an HTTP-only cookie; it is never
// logged.
func (s *SessionService) Create(userID uuid.UUID, deviceInfo, ipAddress string) (string, error) {
	token, err := newOpaqueToken()
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}

	now := time.Now().UTC()
	session := &models.RefreshSession{
		Token:        token,
		UserID:       userID,
		DeviceInfo:   deviceInfo,
		IPAddress:    ipAddress,
		LastActivity: now,
		CreatedAt:    now,
	}
	if err := s.sessions.Create(session); err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}
	return token, nil
}

// ValidateAndTouch checks the session and slides its activity window forward,
// returning the owning user. An idle or over-age session is revoked as a side
// effect; the conditional update in the repository guarantees the revoke
// happens exactly once even when two refresh attempts race.
func (s *SessionService) ValidateAndTouch(token string) (uuid.UUID, error) {
	return s.touch(token)
}

// Touch is the keep-alive path: same validity evaluation as ValidateAndTouch,
// extends last_activity, issues nothing.
func (s *SessionService) Touch(token string) error {
	_, err := s.touch(token)
	return err
}

func (s *SessionService) touch(token string) (uuid.UUID, error) {
	now := time.Now().UTC()
	session, err := s.sessions.GetByToken(token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return uuid.Nil, ErrSessionNotFound
	}
	if err := s.evaluate(session, now); err != nil {
		return uuid.Nil, err
	}

	updated, err := s.sessions.UpdateActivity(token, now)
	if err != nil {
		return uuid.Nil, fmt.Errorf("update session activity: %w", err)
	}
	if !updated {
		// Lost a race against a concurrent revoke.
		return uuid.Nil, ErrSessionRevoked
	}
	return session.UserID, nil
}

// evaluate applies every expiry rule in one place so the refresh and
// keep-alive paths can never drift apart.
func (s *SessionService) evaluate(session *models.RefreshSession, now time.Time) error {
	if session.RevokedAt != nil {
		return ErrSessionRevoked
	}

	if now.Sub(session.CreatedAt) > s.absoluteLifetime {
		s.revokeExpired(session, "absolute lifetime exceeded", now)
		return ErrSessionExpired
	}

	if now.Sub(session.LastActivity) > s.idleTimeout {
		s.revokeExpired(session, "inactivity timeout", now)
		return ErrSessionExpired
	}

	user, err := s.users.GetByID(session.UserID)
	if err != nil {
		return fmt.Errorf("load session owner: %w", err)
	}
	if user == nil || !user.IsActive {
		s.revokeExpired(session, "owner deactivated", now)
		return ErrSessionRevoked
	}

	return nil
}

func (s *SessionService) revokeExpired(session *models.RefreshSession, reason string, now time.Time) {
	revoked, err := s.sessions.Revoke(session.Token, now)
	if err != nil {
		s.log.Error("failed to revoke session", zap.Error(err), zap.String("reason", reason))
		return
	}
	if revoked {
		s.log.Info("session revoked",
			zap.String("user_id", session.UserID.String()),
			zap.String("reason", reason),
		)
	}
}

// Revoke ends a session. Idempotent: revoking an unknown or already-revoked
// token succeeds, so logout never fails merely because the session is gone.
func (s *SessionService) Revoke(token string) error {
	if token == "" {
		return nil
	}
	if _, err := s.sessions.Revoke(token, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Info reports the session's remaining idle window without extending it.
func (s *SessionService) Info(token string) (*SessionInfo, error) {
	session, err := s.sessions.GetByToken(token)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.RevokedAt != nil {
		return nil, ErrSessionRevoked
	}

	now := time.Now().UTC()
	expiresAt := session.LastActivity.Add(s.idleTimeout)
	secondsLeft := int64(expiresAt.Sub(now).Seconds())
	if secondsLeft < 0 {
		secondsLeft = 0
	}

	return &SessionInfo{
		LastActivity:       session.LastActivity,
		ExpiresAt:          expiresAt,
		SecondsUntilExpiry: secondsLeft,
		DeviceInfo:         session.DeviceInfo,
	}, nil
}
