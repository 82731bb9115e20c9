// Package transport defines the request and response shapes for the auth
// surface.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// SignInRequest is the login form.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SessionResponse carries the access token; the refresh token travels only in
// the http-only cookie.
type SessionResponse struct {
	AccessToken     string    `json:"accessToken"`
	AccessExpiresAt time.Time `json:"accessExpiresAt"`
	User            UserBody  `json:"user"`
}

// UserBody is the authenticated account summary.
type UserBody struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}
