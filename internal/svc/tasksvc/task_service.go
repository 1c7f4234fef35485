package tasksvc

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mkrupp/taskapp/internal/domain"
	"github.com/mkrupp/taskapp/internal/infra/logging"
	"github.com/mkrupp/taskapp/internal/repo/task"
)

const msgDescriptionRequired = "Description is required!"

// TaskService manages tasks on behalf of their owners. Every operation is
// scoped to the owner; other users' tasks behave as if they did not exist.
type TaskService struct {
	TaskRepo task.Repository
	Log      logging.Logger
}

// NewTaskService creates a new TaskService.
// Returns an error if the task repository cannot be created.
func NewTaskService(repoFactory task.RepositoryFactory) (*TaskService, error) {
	taskRepo, err := repoFactory()
	if err != nil {
		return nil, fmt.Errorf("new task repo: %w", err)
	}

	return &TaskService{
		TaskRepo: taskRepo,
		Log:      logging.GetLogger("svc.tasksvc.task_service"),
	}, nil
}

func normalizeDescription(description string) (string, string) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", msgDescriptionRequired
	}

	return description, ""
}

// Create stores a new task owned by owner.
func (s *TaskService) Create(ctx context.Context, owner string, fields domain.TaskFields) (_ *domain.Task, err error) {
	log := s.Log.With(logging.Group("task", "owner", owner))

	defer func() {
		if err != nil {
			log.DebugContext(ctx, "create task failed", "error", err)
		} else {
			log.DebugContext(ctx, "task created")
		}
	}()

	description, msg := normalizeDescription(fields.Description)
	if msg != "" {
		verr := &domain.ValidationError{}
		verr.Add("description", msg)

		return nil, verr
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}

	log = log.With(logging.Group("task", "id", id.String()))

	t := &domain.Task{
		ID:          id.String(),
		Description: description,
		Completed:   fields.Completed,
		Owner:       owner,
	}

	if err := s.TaskRepo.CreateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	return t, nil
}

// List returns the owner's tasks in creation order, filtered and paged by query.
func (s *TaskService) List(ctx context.Context, owner string, query domain.TaskQuery) ([]*domain.Task, error) {
	query.Skip = max(query.Skip, 0)
	query.Limit = max(query.Limit, 0)

	tasks, err := s.TaskRepo.ListTasks(ctx, owner, query)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, nil
}

// Get returns the owner's task with id, or ErrTaskNotFound.
func (s *TaskService) Get(ctx context.Context, owner, id string) (*domain.Task, error) {
	t, err := s.TaskRepo.GetTask(ctx, owner, id)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	return t, nil
}

// Update applies a partial update to the owner's task with id.
// Only description and completed may be changed; any other key fails with
// ErrInvalidUpdate before the task is looked up, and nothing is saved.
func (s *TaskService) Update(
	ctx context.Context,
	owner, id string,
	fields domain.UpdateFields,
) (_ *domain.Task, err error) {
	log := s.Log.With(logging.Group("task", "id", id, "owner", owner, "fields", fields.Keys()))

	defer func() {
		if err != nil {
			log.DebugContext(ctx, "update task failed", "error", err)
		} else {
			log.DebugContext(ctx, "task updated")
		}
	}()

	if err := domain.CheckUpdate(fields, domain.TaskUpdatableFields); err != nil {
		return nil, err
	}

	t, err := s.TaskRepo.GetTask(ctx, owner, id)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	var verr domain.ValidationError

	for _, key := range fields.Keys() {
		var msg string

		switch key {
		case "description":
			if err := fields.Decode(key, &t.Description); err != nil {
				msg = "must be a string"
			} else {
				t.Description, msg = normalizeDescription(t.Description)
			}
		case "completed":
			if err := fields.Decode(key, &t.Completed); err != nil {
				msg = "must be a boolean"
			}
		}

		if msg != "" {
			verr.Add(key, msg)
		}
	}

	if err := verr.Err(); err != nil {
		return nil, err
	}

	if err := s.TaskRepo.UpdateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	return t, nil
}

// Delete removes the owner's task with id and returns it.
func (s *TaskService) Delete(ctx context.Context, owner, id string) (*domain.Task, error) {
	t, err := s.TaskRepo.DeleteTask(ctx, owner, id)
	if err != nil {
		return nil, fmt.Errorf("delete task: %w", err)
	}

	s.Log.DebugContext(ctx, "task deleted", logging.Group("task", "id", id, "owner", owner))

	return t, nil
}

// Close releases resources held by the service, such as database connections.
func (s *TaskService) Close() error {
	return s.TaskRepo.Close()
}
