package domain

import (
	"errors"
	"time"
)

// ErrTaskNotFound is returned for tasks that do not exist or belong to another user.
var ErrTaskNotFound = errors.New("task not found")

// TaskUpdatableFields lists the keys a task may change through a partial update.
//
//nolint:gochecknoglobals
var TaskUpdatableFields = []string{"description", "completed"}

// Task is a unit of work owned by exactly one user.
type Task struct {
	ID          string    `json:"_id"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Owner       string    `json:"owner"` // ID of the owning user
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TaskFields holds the fields accepted when creating a task.
type TaskFields struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// TaskQuery narrows and pages a task listing.
// A nil Completed matches every task; a zero Limit means no limit.
type TaskQuery struct {
	Completed *bool
	Skip      int64
	Limit     int64
}
