// Package regtoken mints and checks the single-use registration tokens that
// gate client account creation on admin approval or payment confirmation.
//
// A token is an HS256-signed claim set binding a consultation id and email to
// a "registration" purpose with a fixed expiry. The signed value is handed to
// the lead in a registration URL and only its SHA-256 hash is persisted, so a
// leaked database row cannot be replayed as a token. Statelessness stops here:
// single-use and already-registered checks belong to the services that own the
// consultation row.
package regtoken

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"concierge_backend/platform/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenType = "registration"

// Verification failure reasons. Services map these onto apperr kinds.
var (
	ErrMalformed         = errors.New("registration token malformed")
	ErrExpired           = errors.New("registration token expired")
	ErrAlreadyUsed       = errors.New("registration token already used")
	ErrNotFound          = errors.New("registration token does not match any consultation")
	ErrAlreadyRegistered = errors.New("consultation already has a registered client")
)

// Claims are the verified contents of a registration token.
type Claims struct {
	ConsultationID uuid.UUID
	Email          string
	IssuedAt       time.Time
	ExpiresAt      time.Time
}

// Issued is a freshly minted token together with the values the caller must
// persist on the consultation row.
type Issued struct {
	Token     string
	TokenHash string
	ExpiresAt time.Time
}

// Service mints and verifies registration tokens. Two TTL policies share one
// mint path: the admin-approval token and the longer payment-confirmation
// variant.
type Service struct {
	secret      []byte
	approvalTTL time.Duration
	paymentTTL  time.Duration
	now         func() time.Time
}

// New creates a token service from configuration.
func New(cfg config.RegistrationTokenConfig) *Service {
	return NewWithClock(cfg.GetRegistrationTokenSecret(), cfg.GetRegistrationTokenTTL(), cfg.GetPaymentTokenTTL(), time.Now)
}

// NewWithClock creates a token service with an explicit time source.
func NewWithClock(secret string, approvalTTL, paymentTTL time.Duration, now func() time.Time) *Service {
	return &Service{
		secret:      []byte(secret),
		approvalTTL: approvalTTL,
		paymentTTL:  paymentTTL,
		now:         now,
	}
}

// IssueApproval mints a token under the admin-approval policy (default 72h).
func (s *Service) IssueApproval(consultationID uuid.UUID, email string) (Issued, error) {
	return s.issue(consultationID, email, s.approvalTTL)
}

// IssuePayment mints a token under the payment-confirmation policy (default 7 days).
func (s *Service) IssuePayment(consultationID uuid.UUID, email string) (Issued, error) {
	return s.issue(consultationID, email, s.paymentTTL)
}

func (s *Service) issue(consultationID uuid.UUID, email string, ttl time.Duration) (Issued, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(ttl)

	claims := jwt.MapClaims{
		"sub":   consultationID.String(),
		"email": email,
		"type":  tokenType,
		"iat":   issuedAt.Unix(),
		"exp":   expiresAt.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		Token:     signed,
		TokenHash: Hash(signed),
		ExpiresAt: expiresAt,
	}, nil
}

// VerifyClaims performs the stateless half of verification: signature, expiry,
// and token type. Callers follow up with the stateful checks against the
// persisted consultation row.
func (s *Service) VerifyClaims(rawToken string) (Claims, error) {
	parsed, err := jwt.Parse(rawToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrMalformed
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrMalformed
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrMalformed
	}

	if typ, _ := mapClaims["type"].(string); typ != tokenType {
		return Claims{}, ErrMalformed
	}

	subject, _ := mapClaims["sub"].(string)
	consultationID, err := uuid.Parse(subject)
	if err != nil {
		return Claims{}, ErrMalformed
	}

	email, _ := mapClaims["email"].(string)
	if email == "" {
		return Claims{}, ErrMalformed
	}

	issuedAt := int64Claim(mapClaims, "iat")
	expiresAt := int64Claim(mapClaims, "exp")

	return Claims{
		ConsultationID: consultationID,
		Email:          email,
		IssuedAt:       time.Unix(issuedAt, 0),
		ExpiresAt:      time.Unix(expiresAt, 0),
	}, nil
}

// Hash returns the hex SHA-256 of a token, the only form stored at rest.
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func int64Claim(claims jwt.MapClaims, key string) int64 {
	if value, ok := claims[key].(float64); ok {
		return int64(value)
	}
	return 0
}
