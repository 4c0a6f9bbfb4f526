// Package main implements the loanplan server and its operational
// subcommands.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/SpasiboVadya/loan-planning-system/internal/config"
	"github.com/SpasiboVadya/loan-planning-system/internal/database"
	"github.com/SpasiboVadya/loan-planning-system/internal/httpapi"
	"github.com/SpasiboVadya/loan-planning-system/internal/importer"
	"github.com/SpasiboVadya/loan-planning-system/internal/metrics"
	"github.com/SpasiboVadya/loan-planning-system/internal/middleware"
	"github.com/SpasiboVadya/loan-planning-system/internal/seed"
	"github.com/SpasiboVadya/loan-planning-system/internal/service/auth"
	"github.com/SpasiboVadya/loan-planning-system/internal/service/health"
	"github.com/SpasiboVadya/loan-planning-system/internal/service/plans"
	"github.com/SpasiboVadya/loan-planning-system/internal/service/users"
	"github.com/SpasiboVadya/loan-planning-system/internal/storage/mysql"
	"github.com/SpasiboVadya/loan-planning-system/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("loanplan", logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	var cmdErr error
	switch os.Args[1] {
	case "serve":
		cmdErr = runServe(cfg, log)
	case "migrate":
		cmdErr = runMigrate(cfg, log, false)
	case "migrate-down":
		cmdErr = runMigrate(cfg, log, true)
	case "seed":
		cmdErr = runSeed(cfg, log)
	case "import":
		cmdErr = runImport(cfg, log, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if cmdErr != nil {
		log.WithError(cmdErr).Fatalf("%s failed", os.Args[1])
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: loanplan <command>

commands:
  serve         run database migrations and start the HTTP API
  migrate       apply pending database migrations
  migrate-down  roll back all database migrations
  seed          load a small demo dataset
  import        bulk-load tab-delimited CSV exports (-dir <path>)`)
}

func connect(cfg *config.Config, log *logger.Logger) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.WithField("host", cfg.Database.Host).WithField("db", cfg.Database.Name).Info("database connected")
	return db, nil
}

func runServe(cfg *config.Config, log *logger.Logger) error {
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	db, err := connect(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.MigrateUp(db, cfg.Database.Name); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	log.Info("migrations applied")

	store := mysql.New(db)

	authSvc := auth.New(store, cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, log.WithField("component", "auth"))
	planSvc := plans.New(store, store, store, store, log.WithField("component", "plans"))
	userSvc := users.New(store, store, planSvc, log.WithField("component", "users"))
	healthSvc := health.New("loanplan", db)

	scheduler, err := plans.NewScheduler(planSvc, log.WithField("component", "scheduler"))
	if err != nil {
		return fmt.Errorf("create plan scheduler: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	handler := httpapi.NewHandler(httpapi.Services{
		Auth:   authSvc,
		Users:  userSvc,
		Plans:  planSvc,
		Health: healthSvc,
	}, log.WithField("component", "httpapi"))

	done := make(chan struct{})
	defer close(done)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
	limiter.StartCleanup(10*time.Minute, done)

	authMW := middleware.NewAuthMiddleware(authSvc, log, []string{
		"/health",
		"/metrics",
		"/auth/register",
		"/auth/login",
	})

	// The limiter sits inside the auth middleware so authenticated
	// requests are keyed by login rather than client IP.
	var root http.Handler = handler
	root = limiter.Handler(root)
	root = authMW.Handler(root)
	root = metrics.InstrumentHandler(root)
	root = middleware.NewCORSMiddleware(cfg.CORS.Origins()).Handler(root)
	root = middleware.NewRequestIDMiddleware(log.WithField("component", "http")).Handler(root)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func runMigrate(cfg *config.Config, log *logger.Logger, down bool) error {
	db, err := connect(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if down {
		if err := database.MigrateDown(db, cfg.Database.Name); err != nil {
			return err
		}
		log.Info("migrations rolled back")
		return nil
	}
	if err := database.MigrateUp(db, cfg.Database.Name); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}

func runSeed(cfg *config.Config, log *logger.Logger) error {
	db, err := connect(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.MigrateUp(db, cfg.Database.Name); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return seed.Run(context.Background(), mysql.New(db), time.Now().UTC(), log.WithField("component", "seed"))
}

func runImport(cfg *config.Config, log *logger.Logger, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	dir := fs.String("dir", "test_data_for_DB", "directory containing the CSV export files")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := connect(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.MigrateUp(db, cfg.Database.Name); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return importer.New(mysql.New(db), log.WithField("component", "importer")).Run(context.Background(), *dir)
}
