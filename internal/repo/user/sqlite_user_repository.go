package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mkrupp/taskapp/internal/domain"
	"github.com/mkrupp/taskapp/internal/infra/logging"
	"github.com/mkrupp/taskapp/internal/repo/sqlite"
)

// SQLiteUserRepository implements Repository using SQLite as the storage backend.
type SQLiteUserRepository struct {
	db  *sqlite.DB
	log logging.Logger
}

var _ Repository = (*SQLiteUserRepository)(nil)

// SQLiteUserRepositoryFactory creates a factory function that returns a new SQLiteUserRepository.
// The factory function implements the RepositoryFactory type.
func SQLiteUserRepositoryFactory(db *sqlite.DB) RepositoryFactory {
	return func() (Repository, error) {
		return NewSQLiteUserRepository(db), nil
	}
}

// NewSQLiteUserRepository creates a new SQLiteUserRepository on an opened database.
func NewSQLiteUserRepository(db *sqlite.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{
		db:  db,
		log: logging.GetLogger("repo.user.sqlite_user_repository"),
	}
}

const userColumns = "id, name, email, age, password_hash, avatar, created_at, updated_at"

// CreateUser implements Repository.CreateUser using SQLite.
func (r *SQLiteUserRepository) CreateUser(ctx context.Context, user *domain.User) (err error) {
	defer r.logResult(ctx, "create user", user.ID, &err)

	unlock := r.db.LockWrites()
	defer unlock()

	now := time.Now().UTC().Truncate(time.Millisecond)

	err = r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			user.ID, user.Name, user.Email, user.Age, user.PasswordHash, nullBlob(user.Avatar),
			sqlite.Timestamp(now), sqlite.Timestamp(now),
		)
		if err != nil {
			return fmt.Errorf("insert user: %w", mapWriteError(err))
		}

		return insertTokens(ctx, tx, user.ID, user.Tokens)
	})
	if err != nil {
		return err
	}

	user.CreatedAt = now
	user.UpdatedAt = now

	return nil
}

// GetUserByID implements Repository.GetUserByID using SQLite.
func (r *SQLiteUserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getUser(ctx, "id", id)
}

// GetUserByEmail implements Repository.GetUserByEmail using SQLite.
func (r *SQLiteUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, "email", email)
}

func (r *SQLiteUserRepository) getUser(ctx context.Context, column, value string) (*domain.User, error) {
	var (
		user                 domain.User
		avatar               []byte
		createdAt, updatedAt int64
	)

	//nolint:gosec
	err := r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+column+" = ?",
		value,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Age, &user.PasswordHash, &avatar, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(domain.ErrUserNotFound, err)
		}

		return nil, fmt.Errorf("query user: %w", err)
	}

	user.Avatar = avatar
	user.CreatedAt = sqlite.Time(createdAt)
	user.UpdatedAt = sqlite.Time(updatedAt)

	user.Tokens, err = r.getTokens(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *SQLiteUserRepository) getTokens(ctx context.Context, userID string) (_ []string, err error) {
	rows, err := r.db.QueryContext(ctx, "SELECT token FROM user_tokens WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}

	defer func() {
		err = errors.Join(err, rows.Close())
	}()

	tokens := []string{}

	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}

		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}

	return tokens, nil
}

// UpdateUser implements Repository.UpdateUser using SQLite.
// The token list is rewritten in the same transaction as the user row.
func (r *SQLiteUserRepository) UpdateUser(ctx context.Context, user *domain.User) (err error) {
	defer r.logResult(ctx, "update user", user.ID, &err)

	unlock := r.db.LockWrites()
	defer unlock()

	now := time.Now().UTC().Truncate(time.Millisecond)

	err = r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE users SET name = ?, email = ?, age = ?, password_hash = ?, avatar = ?, updated_at = ? WHERE id = ?",
			user.Name, user.Email, user.Age, user.PasswordHash, nullBlob(user.Avatar), sqlite.Timestamp(now), user.ID,
		)
		if err != nil {
			return fmt.Errorf("update user: %w", mapWriteError(err))
		}

		if err := requireAffected(res, domain.ErrUserNotFound); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM user_tokens WHERE user_id = ?", user.ID); err != nil {
			return fmt.Errorf("delete tokens: %w", err)
		}

		return insertTokens(ctx, tx, user.ID, user.Tokens)
	})
	if err != nil {
		return err
	}

	user.UpdatedAt = now

	return nil
}

// DeleteUser implements Repository.DeleteUser using SQLite.
func (r *SQLiteUserRepository) DeleteUser(ctx context.Context, id string) (err error) {
	defer r.logResult(ctx, "delete user", id, &err)

	unlock := r.db.LockWrites()
	defer unlock()

	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM user_tokens WHERE user_id = ?", id); err != nil {
			return fmt.Errorf("delete tokens: %w", err)
		}

		res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}

		return requireAffected(res, domain.ErrUserNotFound)
	})
}

// Close implements Repository.Close by closing the shared database.
func (r *SQLiteUserRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteUserRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func (r *SQLiteUserRepository) logResult(ctx context.Context, op, id string, err *error) {
	log := r.log.With(logging.Group("user", "id", id))

	if *err != nil {
		log.DebugContext(ctx, op+" failed", "error", *err)
	} else {
		log.DebugContext(ctx, op)
	}
}

func insertTokens(ctx context.Context, tx *sql.Tx, userID string, tokens []string) error {
	for _, token := range tokens {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_tokens (user_id, token) VALUES (?, ?)",
			userID, token,
		); err != nil {
			return fmt.Errorf("insert token: %w", err)
		}
	}

	return nil
}

func mapWriteError(err error) error {
	if sqlite.IsUniqueViolation(err) {
		return errors.Join(domain.ErrDuplicateEmail, err)
	}

	return err
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if n == 0 {
		return notFound
	}

	return nil
}

func nullBlob(b []byte) any {
	if len(b) == 0 {
		return nil
	}

	return b
}
