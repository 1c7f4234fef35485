// Package app wires the storage backend, the services and the HTTP transports
// of the task service into a single runnable unit.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mkrupp/taskapp/internal/infra/config"
	"github.com/mkrupp/taskapp/internal/infra/logging"
	http_ "github.com/mkrupp/taskapp/internal/infra/transport/http"
	mongo_ "github.com/mkrupp/taskapp/internal/repo/mongo"
	"github.com/mkrupp/taskapp/internal/repo/sqlite"
	"github.com/mkrupp/taskapp/internal/repo/task"
	"github.com/mkrupp/taskapp/internal/repo/user"
	"github.com/mkrupp/taskapp/internal/svc/authsvc"
	"github.com/mkrupp/taskapp/internal/svc/tasksvc"
	"github.com/mkrupp/taskapp/internal/svc/usersvc"
)

const (
	StoreDriverSQLite = "sqlite"
	StoreDriverMongo  = "mongo"
)

var ErrUnknownStoreDriver = errors.New("unknown store driver")

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Driver is either "sqlite" or "mongo"
	Driver string `env:"DRIVER" default:"sqlite"`
}

// Config is the complete configuration of the task service.
type Config struct {
	config.EnvConfig

	Log    logging.LoggerConfig      `envPrefix:"LOG_"`
	HTTP   http_.HTTPTransportConfig `envPrefix:"HTTP_"`
	Auth   authsvc.AuthConfig        `envPrefix:"AUTH_"`
	Store  StoreConfig               `envPrefix:"STORE_"`
	SQLite sqlite.Config             `envPrefix:"SQLITE_"`
	Mongo  mongo_.Config             `envPrefix:"MONGO_"`
	Avatar usersvc.AvatarConfig      `envPrefix:"AVATAR_"`
}

// App holds the running services and the root HTTP handler.
type App struct {
	Handler http.Handler

	UserSvc *usersvc.UserService
	TaskSvc *tasksvc.TaskService

	cfg     Config
	closers []func() error
}

type repositories struct {
	users  user.RepositoryFactory
	tasks  task.RepositoryFactory
	closer func() error
}

func openStore(ctx context.Context, cfg Config) (*repositories, error) {
	switch cfg.Store.Driver {
	case StoreDriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLite)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}

		return &repositories{
			users:  user.SQLiteUserRepositoryFactory(db),
			tasks:  task.SQLiteTaskRepositoryFactory(db),
			closer: db.Close,
		}, nil
	case StoreDriverMongo:
		db, err := mongo_.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}

		return &repositories{
			users:  user.MongoUserRepositoryFactory(db),
			tasks:  task.MongoTaskRepositoryFactory(db),
			closer: db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStoreDriver, cfg.Store.Driver)
	}
}

// New opens the configured store and builds every service and route.
// The returned App must be closed.
func New(ctx context.Context, cfg Config) (_ *App, err error) {
	app := &App{cfg: cfg}

	defer func() {
		if err != nil {
			err = errors.Join(err, app.Close())
		}
	}()

	repos, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app.closers = append(app.closers, repos.closer)

	authSvc, err := authsvc.NewAuthService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("new auth service: %w", err)
	}

	app.UserSvc, err = usersvc.NewUserService(repos.users, repos.tasks, authSvc, cfg.Avatar)
	if err != nil {
		return nil, fmt.Errorf("new user service: %w", err)
	}

	app.closers = append(app.closers, app.UserSvc.Close)

	app.TaskSvc, err = tasksvc.NewTaskService(repos.tasks)
	if err != nil {
		return nil, fmt.Errorf("new task service: %w", err)
	}

	app.closers = append(app.closers, app.TaskSvc.Close)

	app.Handler = http_.NewHandler(
		healthTransport{},
		usersvc.NewHTTPTransport(app.UserSvc, cfg.Avatar),
		tasksvc.NewHTTPTransport(app.TaskSvc, app.UserSvc),
	)

	return app, nil
}

// Run serves HTTP until ctx is cancelled, then closes the app.
func (a *App) Run(ctx context.Context) (err error) {
	defer func() {
		err = errors.Join(err, a.Close())
	}()

	if err := http_.ListenAndServe(ctx, a.Handler, a.cfg.HTTP); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Close releases services and the store in reverse order of creation.
func (a *App) Close() error {
	var errs []error

	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}

	a.closers = nil

	return errors.Join(errs...)
}

type healthTransport struct{}

func (healthTransport) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		http_.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
}
