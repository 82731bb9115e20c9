package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"concierge_backend/internal/auth/password"
	"concierge_backend/internal/auth/repository"
	"concierge_backend/platform/apperr"
	"concierge_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	mu     sync.Mutex
	users  map[uuid.UUID]repository.User
	tokens map[string]repository.RefreshToken
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  map[uuid.UUID]repository.User{},
		tokens: map[string]repository.RefreshToken{},
	}
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return repository.User{}, repository.ErrNotFound
}

func (f *fakeStore) GetUserByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) TouchLastLogin(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if ok {
		now := time.Now()
		u.LastLoginAt = &now
		f.users[id] = u
	}
	return nil
}

func (f *fakeStore) StoreRefreshToken(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[tokenHash] = repository.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (f *fakeStore) GetRefreshToken(_ context.Context, tokenHash string) (repository.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[tokenHash]
	if !ok || t.RevokedAt != nil {
		return repository.RefreshToken{}, repository.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) RevokeRefreshToken(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, t := range f.tokens {
		if t.ID == id && t.RevokedAt == nil {
			now := time.Now()
			t.RevokedAt = &now
			f.tokens[hash] = t
		}
	}
	return nil
}

func (f *fakeStore) RevokeAllForUser(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, t := range f.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			now := time.Now()
			t.RevokedAt = &now
			f.tokens[hash] = t
		}
	}
	return nil
}

type authCfg struct{}

func (authCfg) GetJWTAccessSecret() string        { return "access-secret-access-secret-1234" }
func (authCfg) GetAccessTokenTTL() time.Duration  { return 15 * time.Minute }
func (authCfg) GetRefreshTokenTTL() time.Duration { return 30 * 24 * time.Hour }

func seedUser(t *testing.T, store *fakeStore, email, plain, role string) repository.User {
	t.Helper()
	hashed, err := password.Hash(plain)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := repository.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hashed,
		Role:         role,
		CreatedAt:    time.Now(),
	}
	store.users[u.ID] = u
	return u
}

func TestSignIn(t *testing.T) {
	store := newFakeStore()
	svc := New(store, authCfg{}, logger.New("test"))
	seedUser(t, store, "admin@example.com", "correct-horse-battery", "admin")

	session, err := svc.SignIn(context.Background(), "Admin@Example.com ", "correct-horse-battery")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatalf("session missing tokens: %+v", session)
	}
	if session.Role != "admin" {
		t.Fatalf("role = %s, want admin", session.Role)
	}

	// Wrong password and unknown email are indistinguishable.
	_, badPass := svc.SignIn(context.Background(), "admin@example.com", "wrong")
	_, badEmail := svc.SignIn(context.Background(), "ghost@example.com", "correct-horse-battery")
	if !apperr.Is(badPass, apperr.KindUnauthorized) || !apperr.Is(badEmail, apperr.KindUnauthorized) {
		t.Fatalf("bad credentials: %v / %v", badPass, badEmail)
	}
	if badPass.Error() != badEmail.Error() {
		t.Fatalf("credential errors must not reveal which part failed")
	}
}

func TestRefreshRotation(t *testing.T) {
	store := newFakeStore()
	svc := New(store, authCfg{}, logger.New("test"))
	seedUser(t, store, "admin@example.com", "correct-horse-battery", "admin")

	session, err := svc.SignIn(context.Background(), "admin@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	rotated, err := svc.Refresh(context.Background(), session.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.RefreshToken == session.RefreshToken {
		t.Fatalf("rotation must issue a new refresh token")
	}

	// The presented token is dead after rotation.
	if _, err := svc.Refresh(context.Background(), session.RefreshToken); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("replayed refresh: got %v, want unauthorized", err)
	}
	// The new one works.
	if _, err := svc.Refresh(context.Background(), rotated.RefreshToken); err != nil {
		t.Fatalf("second rotation: %v", err)
	}
}

func TestRefreshExpiry(t *testing.T) {
	store := newFakeStore()
	svc := New(store, authCfg{}, logger.New("test"))
	seedUser(t, store, "admin@example.com", "correct-horse-battery", "admin")

	session, err := svc.SignIn(context.Background(), "admin@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }
	if _, err := svc.Refresh(context.Background(), session.RefreshToken); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expired refresh: got %v, want unauthorized", err)
	}
}

func TestSignOut(t *testing.T) {
	store := newFakeStore()
	svc := New(store, authCfg{}, logger.New("test"))
	seedUser(t, store, "admin@example.com", "correct-horse-battery", "admin")

	session, err := svc.SignIn(context.Background(), "admin@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	if err := svc.SignOut(context.Background(), session.RefreshToken); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), session.RefreshToken); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("refresh after signout: got %v, want unauthorized", err)
	}
	// Signing out an unknown token is a quiet no-op.
	if err := svc.SignOut(context.Background(), "unknown"); err != nil {
		t.Fatalf("SignOut unknown: %v", err)
	}
}
