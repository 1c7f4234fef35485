package user

import (
	"context"

	"github.com/mkrupp/taskapp/internal/domain"
)

// Repository defines the interface for user data persistence.
type Repository interface {
	// CreateUser stores a new user, including its initial session tokens.
	// CreatedAt and UpdatedAt are set on user.
	// Returns ErrDuplicateEmail if the email is already taken.
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUserByID retrieves a user by id.
	// Returns ErrUserNotFound if no such user exists.
	GetUserByID(ctx context.Context, id string) (*domain.User, error)

	// GetUserByEmail retrieves a user by normalized email.
	// Returns ErrUserNotFound if no such user exists.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// UpdateUser saves the whole user document: profile, password hash,
	// session tokens and avatar. UpdatedAt is refreshed on user.
	// Returns ErrUserNotFound or ErrDuplicateEmail.
	UpdateUser(ctx context.Context, user *domain.User) error

	// DeleteUser removes a user and its session tokens.
	// Returns ErrUserNotFound if no such user exists.
	DeleteUser(ctx context.Context, id string) error

	// Close releases any resources held by the repository.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func() (Repository, error)
