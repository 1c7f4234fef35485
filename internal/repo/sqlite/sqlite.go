// Package sqlite opens the shared sqlite database used by the user and task
// repositories and keeps its schema up to date.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mkrupp/taskapp/internal/infra/logging"
	"github.com/mkrupp/taskapp/internal/repo/sqlite/migrations"
)

// Config holds configuration for the sqlite database.
type Config struct {
	// DatabasePath is the filesystem path to the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" default:"var/storage/tasksvc.db"`
}

// DB is a sqlite connection pool shared by several repositories.
type DB struct {
	*sql.DB

	writeLock sync.Mutex // go-sqlite does not support concurrent writes
	closeOnce sync.Once
	closeErr  error
}

// Open opens (creating if needed) the database at cfg.DatabasePath and applies
// all pending migrations.
func Open(ctx context.Context, cfg Config) (_ *DB, err error) {
	log := logging.GetLogger("repo.sqlite").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "open database failed", "error", err)
		} else {
			log.DebugContext(ctx, "database opened")
		}
	}()

	if dir := filepath.Dir(cfg.DatabasePath); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DatabasePath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("migrate db: %w", err)
	}

	return &DB{DB: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// LockWrites serializes writers and returns the matching unlock function.
func (db *DB) LockWrites() func() {
	db.writeLock.Lock()

	return db.writeLock.Unlock
}

// Close closes the underlying pool. It is safe to call more than once.
func (db *DB) Close() error {
	db.closeOnce.Do(func() {
		if err := db.DB.Close(); err != nil {
			db.closeErr = fmt.Errorf("close db: %w", err)
		}
	})

	return db.closeErr
}

// IsUniqueViolation reports whether err is a sqlite unique or primary key constraint failure.
func IsUniqueViolation(err error) bool {
	var liteErr *sqlite.Error
	if !errors.As(err, &liteErr) {
		return false
	}

	switch liteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	default:
		return false
	}
}

// Timestamp converts t to the stored representation (unix milliseconds).
func Timestamp(t time.Time) int64 {
	return t.UnixMilli()
}

// Time converts a stored timestamp back to a UTC time.
func Time(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
