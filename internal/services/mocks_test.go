package services_test

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rksaklani/pgimer-psy-sub000/internal/config"
	"github.com/rksaklani/pgimer-psy-sub000/internal/models"
)

type mockUserRepo struct {
	getByIDFunc         func(id uuid.UUID) (*models.User, error)
	getByEmailFunc      func(email string) (*models.User, error)
	createFunc          func(user *models.User) error
	updateFunc          func(user *models.User) error
	updateLastLoginFunc func(id uuid.UUID, at time.Time) error
	updatePasswordFunc  func(id uuid.UUID, passwordHash string) error
}

func (m *mockUserRepo) GetByID(id uuid.UUID) (*models.User, error) {
	if m.getByIDFunc == nil {
		return nil, errors.New("not implemented")
	}
	return m.getByIDFunc(id)
}

func (m *mockUserRepo) GetByEmail(email string) (*models.User, error) {
	if m.getByEmailFunc == nil {
		return nil, errors.New("not implemented")
	}
	return m.getByEmailFunc(email)
}

func (m *mockUserRepo) Create(user *models.User) error {
	if m.createFunc == nil {
		return errors.New("not implemented")
	}
	return m.createFunc(user)
}

func (m *mockUserRepo) Update(user *models.User) error {
	if m.updateFunc == nil {
		return errors.New("not implemented")
	}
	return m.updateFunc(user)
}

func (m *mockUserRepo) UpdateLastLogin(id uuid.UUID, at time.Time) error {
	if m.updateLastLoginFunc == nil {
		return nil
	}
	return m.updateLastLoginFunc(id, at)
}

func (m *mockUserRepo) UpdatePassword(id uuid.UUID, passwordHash string) error {
	if m.updatePasswordFunc == nil {
		return errors.New("not implemented")
	}
	return m.updatePasswordFunc(id, passwordHash)
}

// fakeSessionStore mimics the row-level atomicity of the real store: the
// conditional updates run under one lock, so racing goroutines observe the
// same winner-takes-all behavior as racing requests against postgres.
type fakeSessionStore struct {
	mu          sync.Mutex
	sessions    map[string]*models.RefreshSession
	revokeCount map[string]int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions:    make(map[string]*models.RefreshSession),
		revokeCount: make(map[string]int),
	}
}

func (f *fakeSessionStore) Create(session *models.RefreshSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *session
	f.sessions[session.Token] = &copied
	return nil
}

func (f *fakeSessionStore) GetByToken(token string) (*models.RefreshSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[token]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (f *fakeSessionStore) UpdateActivity(token string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[token]
	if !ok || session.RevokedAt != nil {
		return false, nil
	}
	session.LastActivity = at
	return true, nil
}

func (f *fakeSessionStore) Revoke(token string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[token]
	if !ok || session.RevokedAt != nil {
		return false, nil
	}
	session.RevokedAt = &at
	f.revokeCount[token]++
	return true, nil
}

// setSession rewrites stored timestamps so tests can age a session without a
// clock abstraction.
func (f *fakeSessionStore) setSession(token string, mutate func(*models.RefreshSession)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if session, ok := f.sessions[token]; ok {
		mutate(session)
	}
}

func (f *fakeSessionStore) revokes(token string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revokeCount[token]
}

type fakeLoginOTPStore struct {
	mu   sync.Mutex
	otps map[uuid.UUID]*models.LoginOTP
}

func newFakeLoginOTPStore() *fakeLoginOTPStore {
	return &fakeLoginOTPStore{otps: make(map[uuid.UUID]*models.LoginOTP)}
}

func (f *fakeLoginOTPStore) Create(otp *models.LoginOTP) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if otp.ID == uuid.Nil {
		otp.ID = uuid.New()
	}
	copied := *otp
	f.otps[otp.ID] = &copied
	return nil
}

func (f *fakeLoginOTPStore) GetActiveByUser(userID uuid.UUID) (*models.LoginOTP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var newest *models.LoginOTP
	for _, otp := range f.otps {
		if otp.UserID != userID || otp.UsedAt != nil {
			continue
		}
		if newest == nil || otp.CreatedAt.After(newest.CreatedAt) {
			newest = otp
		}
	}
	if newest == nil {
		return nil, nil
	}
	copied := *newest
	return &copied, nil
}

func (f *fakeLoginOTPStore) MarkUsed(id uuid.UUID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	otp, ok := f.otps[id]
	if !ok || otp.UsedAt != nil {
		return false, nil
	}
	otp.UsedAt = &at
	return true, nil
}

func (f *fakeLoginOTPStore) InvalidateActive(userID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, otp := range f.otps {
		if otp.UserID == userID && otp.UsedAt == nil {
			used := at
			otp.UsedAt = &used
		}
	}
	return nil
}

func (f *fakeLoginOTPStore) setOTP(id uuid.UUID, mutate func(*models.LoginOTP)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if otp, ok := f.otps[id]; ok {
		mutate(otp)
	}
}

type fakeResetStore struct {
	mu   sync.Mutex
	otps map[string]*models.PasswordResetOTP
}

func newFakeResetStore() *fakeResetStore {
	return &fakeResetStore{otps: make(map[string]*models.PasswordResetOTP)}
}

func (f *fakeResetStore) Create(otp *models.PasswordResetOTP) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if otp.ID == uuid.Nil {
		otp.ID = uuid.New()
	}
	copied := *otp
	f.otps[otp.Token] = &copied
	return nil
}

func (f *fakeResetStore) GetByToken(token string) (*models.PasswordResetOTP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	otp, ok := f.otps[token]
	if !ok {
		return nil, nil
	}
	copied := *otp
	return &copied, nil
}

func (f *fakeResetStore) MarkUsed(token string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	otp, ok := f.otps[token]
	if !ok || otp.UsedAt != nil {
		return false, nil
	}
	otp.UsedAt = &at
	return true, nil
}

func (f *fakeResetStore) InvalidateActive(userID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, otp := range f.otps {
		if otp.UserID == userID && otp.UsedAt == nil {
			used := at
			otp.UsedAt = &used
		}
	}
	return nil
}

func (f *fakeResetStore) setOTP(token string, mutate func(*models.PasswordResetOTP)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if otp, ok := f.otps[token]; ok {
		mutate(otp)
	}
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type captureMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *captureMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *captureMailer) messages() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

func newAuthTestConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:            "test-secret-key-minimum-32-characters-long",
			AccessTokenExpiry: "5m",
		},
		Session: config.SessionConfig{
			IdleTimeout:      "15m",
			AbsoluteLifetime: "7d",
		},
		OTP: config.OTPConfig{
			Digits: 6,
			Expiry: "5m",
		},
	}
}
