package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sglgb/internal/app"
	"sglgb/internal/cli"
	"sglgb/internal/platform/config"
	"sglgb/internal/platform/logger"
	"sglgb/internal/scheduler"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(&cli.App{Connect: connect})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// connect builds the same backends the server uses, without its metrics.
func connect(ctx context.Context) (*cli.Session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.NewWithWriter(os.Stderr, cfg.Log.Level, "text")
	a, err := app.Build(ctx, cfg, log, app.Options{})
	if err != nil {
		return nil, err
	}
	return &cli.Session{
		Assessments: a.Service,
		Scanner: scheduler.New(a.Service,
			scheduler.WithLogger(log),
			scheduler.WithConcurrency(cfg.Scheduler.Concurrency),
		),
		Close: a.Close,
	}, nil
}
