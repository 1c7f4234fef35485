package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mkrupp/taskapp/internal/app"
	"github.com/mkrupp/taskapp/internal/infra/config"
	"github.com/mkrupp/taskapp/internal/infra/logging"
)

const (
	appName = "taskapp"
	svcName = "tasksvc"
)

func main() {
	var (
		cfg app.Config

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	if err := run(ctx, cfg); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, cfg app.Config) (err error) {
	defer func() {
		log := logging.GetLogger("cmd.tasksvc")

		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)

			return
		}

		log.InfoContext(ctx, "shutdown")
	}()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("new app: %w", err)
	}

	if err := a.Run(ctx); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	return nil
}
