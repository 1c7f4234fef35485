package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mkrupp/taskapp/internal/domain"
	"github.com/mkrupp/taskapp/internal/infra/logging"
	"github.com/mkrupp/taskapp/internal/repo/sqlite"
)

// SQLiteTaskRepository implements Repository using SQLite as the storage backend.
type SQLiteTaskRepository struct {
	db  *sqlite.DB
	log logging.Logger
}

var _ Repository = (*SQLiteTaskRepository)(nil)

// SQLiteTaskRepositoryFactory creates a factory function that returns a new SQLiteTaskRepository.
func SQLiteTaskRepositoryFactory(db *sqlite.DB) RepositoryFactory {
	return func() (Repository, error) {
		return NewSQLiteTaskRepository(db), nil
	}
}

// NewSQLiteTaskRepository creates a new SQLiteTaskRepository on an opened database.
func NewSQLiteTaskRepository(db *sqlite.DB) *SQLiteTaskRepository {
	return &SQLiteTaskRepository{
		db:  db,
		log: logging.GetLogger("repo.task.sqlite_task_repository"),
	}
}

const taskColumns = "id, description, completed, owner, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task                 domain.Task
		createdAt, updatedAt int64
	)

	if err := row.Scan(&task.ID, &task.Description, &task.Completed, &task.Owner, &createdAt, &updatedAt); err != nil {
		return nil, err //nolint:wrapcheck
	}

	task.CreatedAt = sqlite.Time(createdAt)
	task.UpdatedAt = sqlite.Time(updatedAt)

	return &task, nil
}

// CreateTask implements Repository.CreateTask using SQLite.
func (r *SQLiteTaskRepository) CreateTask(ctx context.Context, task *domain.Task) error {
	unlock := r.db.LockWrites()
	defer unlock()

	now := time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO tasks ("+taskColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		task.ID, task.Description, task.Completed, task.Owner, sqlite.Timestamp(now), sqlite.Timestamp(now),
	); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	task.CreatedAt = now
	task.UpdatedAt = now

	r.log.DebugContext(ctx, "create task", logging.Group("task", "id", task.ID, "owner", task.Owner))

	return nil
}

// ListTasks implements Repository.ListTasks using SQLite.
func (r *SQLiteTaskRepository) ListTasks(
	ctx context.Context,
	owner string,
	query domain.TaskQuery,
) (_ []*domain.Task, err error) {
	var (
		stmt strings.Builder
		args = []any{owner}
	)

	stmt.WriteString("SELECT " + taskColumns + " FROM tasks WHERE owner = ?")

	if query.Completed != nil {
		stmt.WriteString(" AND completed = ?")

		args = append(args, *query.Completed)
	}

	stmt.WriteString(" ORDER BY created_at, rowid")

	// sqlite only accepts OFFSET after LIMIT; -1 means no limit
	if query.Limit > 0 || query.Skip > 0 {
		limit := int64(-1)
		if query.Limit > 0 {
			limit = query.Limit
		}

		stmt.WriteString(" LIMIT ? OFFSET ?")

		args = append(args, limit, max(query.Skip, 0))
	}

	rows, err := r.db.QueryContext(ctx, stmt.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}

	defer func() {
		err = errors.Join(err, rows.Close())
	}()

	tasks := []*domain.Task{}

	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	return tasks, nil
}

// GetTask implements Repository.GetTask using SQLite.
func (r *SQLiteTaskRepository) GetTask(ctx context.Context, owner, id string) (*domain.Task, error) {
	task, err := scanTask(r.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ? AND owner = ?",
		id, owner,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(domain.ErrTaskNotFound, err)
		}

		return nil, fmt.Errorf("query task: %w", err)
	}

	return task, nil
}

// UpdateTask implements Repository.UpdateTask using SQLite.
func (r *SQLiteTaskRepository) UpdateTask(ctx context.Context, task *domain.Task) error {
	unlock := r.db.LockWrites()
	defer unlock()

	now := time.Now().UTC().Truncate(time.Millisecond)

	res, err := r.db.ExecContext(ctx,
		"UPDATE tasks SET description = ?, completed = ?, updated_at = ? WHERE id = ? AND owner = ?",
		task.Description, task.Completed, sqlite.Timestamp(now), task.ID, task.Owner,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if n == 0 {
		return domain.ErrTaskNotFound
	}

	task.UpdatedAt = now

	r.log.DebugContext(ctx, "update task", logging.Group("task", "id", task.ID, "owner", task.Owner))

	return nil
}

// DeleteTask implements Repository.DeleteTask using SQLite.
func (r *SQLiteTaskRepository) DeleteTask(ctx context.Context, owner, id string) (*domain.Task, error) {
	unlock := r.db.LockWrites()
	defer unlock()

	task, err := scanTask(r.db.QueryRowContext(ctx,
		"DELETE FROM tasks WHERE id = ? AND owner = ? RETURNING "+taskColumns,
		id, owner,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(domain.ErrTaskNotFound, err)
		}

		return nil, fmt.Errorf("delete task: %w", err)
	}

	r.log.DebugContext(ctx, "delete task", logging.Group("task", "id", id, "owner", owner))

	return task, nil
}

// DeleteTasksByOwner implements Repository.DeleteTasksByOwner using SQLite.
func (r *SQLiteTaskRepository) DeleteTasksByOwner(ctx context.Context, owner string) (int64, error) {
	unlock := r.db.LockWrites()
	defer unlock()

	res, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE owner = ?", owner)
	if err != nil {
		return 0, fmt.Errorf("delete tasks: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	r.log.DebugContext(ctx, "delete tasks by owner", logging.Group("task", "owner", owner, "count", n))

	return n, nil
}

// Close implements Repository.Close by closing the shared database.
func (r *SQLiteTaskRepository) Close() error {
	return r.db.Close()
}
