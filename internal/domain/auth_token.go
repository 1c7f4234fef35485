package domain

import "errors"

var (
	// ErrNoAuthToken is returned when an authentication token is required but not provided.
	ErrNoAuthToken = errors.New("no auth token")
	// ErrInvalidAuthToken is returned when a token's signature or payload is invalid.
	ErrInvalidAuthToken = errors.New("invalid auth token")
	// ErrUnauthorized is returned when a request carries no active session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrSecretTooShort is returned when the configured signing secret is too weak to use.
	ErrSecretTooShort = errors.New("signing secret too short")
)

// AuthClaims is the payload embedded in a session token.
// Tokens carry no expiry; they stay valid until removed from the user's session set.
type AuthClaims struct {
	UserID   string `json:"_id"`
	IssuedAt int64  `json:"iat"`
}
