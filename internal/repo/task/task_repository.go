package task

import (
	"context"

	"github.com/mkrupp/taskapp/internal/domain"
)

// Repository defines the interface for task persistence.
// Every lookup is scoped to an owner; a task owned by someone else is
// reported exactly like a missing one, as ErrTaskNotFound.
type Repository interface {
	// CreateTask stores a new task. CreatedAt and UpdatedAt are set on task.
	CreateTask(ctx context.Context, task *domain.Task) error

	// ListTasks returns owner's tasks in creation order, filtered and paged by query.
	ListTasks(ctx context.Context, owner string, query domain.TaskQuery) ([]*domain.Task, error)

	// GetTask returns the task with id if it belongs to owner.
	GetTask(ctx context.Context, owner, id string) (*domain.Task, error)

	// UpdateTask saves description and completed of an owned task.
	// UpdatedAt is refreshed on task.
	UpdateTask(ctx context.Context, task *domain.Task) error

	// DeleteTask removes an owned task and returns it as it was before removal.
	DeleteTask(ctx context.Context, owner, id string) (*domain.Task, error)

	// DeleteTasksByOwner removes every task of owner and returns how many were removed.
	DeleteTasksByOwner(ctx context.Context, owner string) (int64, error)

	// Close releases any resources held by the repository.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func() (Repository, error)
