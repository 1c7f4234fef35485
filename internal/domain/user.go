package domain

import (
	"errors"
	"slices"
	"time"
)

var (
	// ErrDuplicateEmail is returned when trying to store a user with an email that is already taken.
	ErrDuplicateEmail = errors.New("email already in use")
	// ErrUserNotFound is returned when looking up a non-existent user.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned when the email/password combination is incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrWrongEmail is joined with ErrInvalidCredentials when no user has the given email.
	ErrWrongEmail = errors.New("wrong email")
	// ErrWrongPassword is joined with ErrInvalidCredentials when the password does not match.
	ErrWrongPassword = errors.New("wrong password")
)

// UserUpdatableFields lists the keys a user may change through a partial update.
//
//nolint:gochecknoglobals
var UserUpdatableFields = []string{"name", "email", "password", "age"}

// User is the stored user document.
type User struct {
	ID           string    // Unique identifier
	Name         string    // Display name, trimmed
	Email        string    // Login email, trimmed and lower-cased
	Age          int       // Non-negative age
	PasswordHash string    // One-way hash of the password
	Tokens       []string  // Active session tokens, in issue order
	Avatar       []byte    // Avatar image (PNG), nil if unset
	CreatedAt    time.Time // Creation timestamp
	UpdatedAt    time.Time // Last update timestamp
}

// HasToken reports whether token is one of the user's active session tokens.
func (u *User) HasToken(token string) bool {
	return slices.Contains(u.Tokens, token)
}

// RemoveToken drops every occurrence of token from the active session set.
func (u *User) RemoveToken(token string) {
	u.Tokens = slices.DeleteFunc(u.Tokens, func(t string) bool { return t == token })
}

// HasAvatar reports whether an avatar image is set.
func (u *User) HasAvatar() bool {
	return len(u.Avatar) > 0
}

// Public returns the serializable view of the user. It never carries the
// password hash, the session tokens or the avatar.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Age:       u.Age,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// UserProfile holds the fields accepted when registering a user.
type UserProfile struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      int    `json:"age"`
}

// PublicUser is the JSON representation of a user returned to clients.
type PublicUser struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Age       int       `json:"age"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserTokenResponse is returned by registration and login.
type UserTokenResponse struct {
	User  PublicUser `json:"user"`
	Token string     `json:"token"`
}

// LoginRequest holds the credentials posted to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
