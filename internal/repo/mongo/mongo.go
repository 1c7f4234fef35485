// Package mongo connects to the MongoDB document store used by the user and
// task repositories and ensures the indexes they rely on.
package mongo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mkrupp/taskapp/internal/infra/logging"
)

// Collection names.
const (
	UsersCollection = "users"
	TasksCollection = "tasks"
)

// Config holds configuration for the MongoDB connection.
type Config struct {
	URI      string `env:"URI" default:"mongodb://localhost:27017"`
	Database string `env:"DATABASE" default:"task-manager-api"`
	// Timeout bounds connecting and each repository call, in seconds
	Timeout int64 `env:"TIMEOUT" default:"10"`
}

// DB is a connected database shared by several repositories.
type DB struct {
	*mongo.Database

	client    *mongo.Client
	timeout   time.Duration
	closeOnce sync.Once
	closeErr  error
}

// Connect dials cfg.URI, verifies the connection and creates the indexes.
func Connect(ctx context.Context, cfg Config) (_ *DB, err error) {
	log := logging.GetLogger("repo.mongo").With(
		logging.Group("db", "name", cfg.Database),
	)

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "connect failed", "error", err)
		} else {
			log.DebugContext(ctx, "connected")
		}
	}()

	timeout := time.Duration(cfg.Timeout) * time.Second

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))

		return nil, fmt.Errorf("ping: %w", err)
	}

	db := &DB{
		Database: client.Database(cfg.Database),
		client:   client,
		timeout:  timeout,
	}

	if err := db.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))

		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	return db, nil
}

func (db *DB) ensureIndexes(ctx context.Context) error {
	if _, err := db.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("users email index: %w", err)
	}

	if _, err := db.Collection(TasksCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: 1}},
	}); err != nil {
		return fmt.Errorf("tasks owner index: %w", err)
	}

	return nil
}

// WithTimeout derives the per-call context for repository operations.
func (db *DB) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.timeout)
}

// Close disconnects the client. It is safe to call more than once.
func (db *DB) Close() error {
	db.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), db.timeout)
		defer cancel()

		if err := db.client.Disconnect(ctx); err != nil {
			db.closeErr = fmt.Errorf("disconnect: %w", err)
		}
	})

	return db.closeErr
}

// Now returns the current time at the precision MongoDB stores.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
