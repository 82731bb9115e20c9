// Package service implements sign-in with short-lived access tokens and
// rotating refresh tokens. Refresh tokens are opaque random values stored only
// as SHA-256 hashes; every refresh revokes the presented token and issues a
// fresh pair.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"concierge_backend/internal/auth/password"
	"concierge_backend/internal/auth/repository"
	"concierge_backend/platform/apperr"
	"concierge_backend/platform/config"
	"concierge_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Store is the persistence surface the auth service needs.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (repository.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
	StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (repository.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id uuid.UUID) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
}

// Service issues and rotates session tokens.
type Service struct {
	store Store
	cfg   config.AuthServiceConfig
	log   *logger.Logger
	now   func() time.Time
}

// New creates the auth service.
func New(store Store, cfg config.AuthServiceConfig, log *logger.Logger) *Service {
	return &Service{store: store, cfg: cfg, log: log, now: time.Now}
}

// Session is a freshly issued token pair.
type Session struct {
	UserID           uuid.UUID
	Email            string
	Role             string
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// SignIn verifies credentials and issues a session. Unknown email and wrong
// password produce the same error.
func (s *Service) SignIn(ctx context.Context, email, plainPassword string) (Session, error) {
	const op = "auth.SignIn"
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.AuthEvent("sign_in", email, false, "unknown email")
			return Session{}, apperr.Unauthorized("invalid email or password").WithOp(op)
		}
		return Session{}, apperr.Wrap(apperr.KindInternal, "could not load user", err).WithOp(op)
	}
	if !password.Verify(user.PasswordHash, plainPassword) {
		s.log.AuthEvent("sign_in", email, false, "wrong password")
		return Session{}, apperr.Unauthorized("invalid email or password").WithOp(op)
	}

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return Session{}, apperr.Wrap(apperr.KindInternal, "could not issue session", err).WithOp(op)
	}

	if err := s.store.TouchLastLogin(ctx, user.ID); err != nil {
		s.log.DatabaseError("users.touch_last_login", err)
	}
	s.log.AuthEvent("sign_in", email, true, "")
	return session, nil
}

// Refresh rotates a refresh token into a new session.
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (Session, error) {
	const op = "auth.Refresh"

	stored, err := s.store.GetRefreshToken(ctx, hashToken(rawRefresh))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, apperr.Unauthorized("invalid refresh token").WithOp(op)
		}
		return Session{}, apperr.Wrap(apperr.KindInternal, "could not load refresh token", err).WithOp(op)
	}
	if s.now().After(stored.ExpiresAt) {
		return Session{}, apperr.Unauthorized("refresh token expired").WithOp(op)
	}

	user, err := s.store.GetUserByID(ctx, stored.UserID)
	if err != nil {
		return Session{}, apperr.Unauthorized("invalid refresh token").WithOp(op)
	}

	// Rotation: the presented token dies whether or not issuing succeeds.
	if err := s.store.RevokeRefreshToken(ctx, stored.ID); err != nil {
		return Session{}, apperr.Wrap(apperr.KindInternal, "could not rotate refresh token", err).WithOp(op)
	}

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return Session{}, apperr.Wrap(apperr.KindInternal, "could not issue session", err).WithOp(op)
	}
	return session, nil
}

// SignOut revokes the presented refresh token. Unknown tokens are a no-op.
func (s *Service) SignOut(ctx context.Context, rawRefresh string) error {
	const op = "auth.SignOut"
	stored, err := s.store.GetRefreshToken(ctx, hashToken(rawRefresh))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return apperr.Wrap(apperr.KindInternal, "could not load refresh token", err).WithOp(op)
	}
	if err := s.store.RevokeRefreshToken(ctx, stored.ID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "could not revoke refresh token", err).WithOp(op)
	}
	return nil
}

// SignOutEverywhere revokes every live session of a user.
func (s *Service) SignOutEverywhere(ctx context.Context, userID uuid.UUID) error {
	const op = "auth.SignOutEverywhere"
	if err := s.store.RevokeAllForUser(ctx, userID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "could not revoke sessions", err).WithOp(op)
	}
	return nil
}

// Me returns the authenticated user's account.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (repository.User, error) {
	const op = "auth.Me"
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.User{}, apperr.NotFound("user not found").WithOp(op)
		}
		return repository.User{}, apperr.Wrap(apperr.KindInternal, "could not load user", err).WithOp(op)
	}
	return user, nil
}

func (s *Service) issueSession(ctx context.Context, user repository.User) (Session, error) {
	now := s.now()
	accessExpiry := now.Add(s.cfg.GetAccessTokenTTL())

	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"roles": []string{user.Role},
		"type":  "access",
		"iat":   now.Unix(),
		"exp":   accessExpiry.Unix(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.GetJWTAccessSecret()))
	if err != nil {
		return Session{}, err
	}

	rawRefresh, err := randomToken()
	if err != nil {
		return Session{}, err
	}
	refreshExpiry := now.Add(s.cfg.GetRefreshTokenTTL())
	if err := s.store.StoreRefreshToken(ctx, user.ID, hashToken(rawRefresh), refreshExpiry); err != nil {
		return Session{}, err
	}

	return Session{
		UserID:           user.ID,
		Email:            user.Email,
		Role:             user.Role,
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     rawRefresh,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
