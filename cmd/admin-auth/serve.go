package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/goliatone/go-admin-auth/config"
	"github.com/goliatone/go-admin-auth/internal/logging"
	"github.com/goliatone/go-admin-auth/repository"
	"github.com/goliatone/go-print"
	"github.com/uptrace/bun"
)

// loadConfig builds and validates the configuration from args and the
// process environment
func loadConfig(args []string) (*config.Config, error) {
	cfg, err := config.Load(args, os.Getenv)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logging.ZeroLogger {
	return logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Pretty: !cfg.IsProduction(),
	})
}

func openDatabase(ctx context.Context, cfg *config.Config) (*bun.DB, error) {
	db, err := repository.Open(ctx, cfg.DatabaseOptions())
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(ctx, db, cfg.Database.Driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func serve(ctx context.Context, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	displayAppname("admin auth")
	if !cfg.IsProduction() {
		fmt.Println(print.MaybePrettyJSON(cfg.Redacted()))
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := newService(cfg, db, logger)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go svc.limiter.Run(done, time.Minute)

	app := svc.newApp()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Address, "env", cfg.Env, "driver", cfg.Database.Driver)
		errCh <- app.Listen(cfg.Server.Address)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout.String())
	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
