// Package server provides the main server initialization and run logic.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qworpa/qworpa/internal/api"
	"github.com/qworpa/qworpa/internal/api/handlers"
	"github.com/qworpa/qworpa/internal/api/middleware"
	"github.com/qworpa/qworpa/internal/config"
	"github.com/qworpa/qworpa/internal/db"
	"github.com/qworpa/qworpa/internal/logger"
	"github.com/qworpa/qworpa/internal/mail"
	"github.com/qworpa/qworpa/internal/queue"
	"github.com/qworpa/qworpa/internal/rbac"
	"github.com/qworpa/qworpa/internal/worker"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// Config holds the server configuration options.
type Config struct {
	Port    int    // Port to run the server on (0 = use config default)
	Mode    string // Run mode: server, worker, or both
	Version string // Version string to report
}

// Run starts the server with the given configuration and blocks until the context is canceled.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Version != "" {
		handlers.Version = cfg.Version
	}

	mode := cfg.Mode
	if mode == "" {
		mode = "both"
	}
	runServer := mode == "server" || mode == "both"
	runWorker := mode == "worker" || mode == "both"
	if !runServer && !runWorker {
		return fmt.Errorf("invalid mode %q: valid modes are server, worker, both", mode)
	}

	appCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Port != 0 {
		appCfg.Server.Port = cfg.Port
	}

	logger.Init(appCfg.Log.Format, appCfg.Log.Level)
	slog.Info("Starting qworpa", "version", cfg.Version, "mode", mode, "debug", appCfg.Debug)

	// Propagate app log level to database if not explicitly set
	if appCfg.Database.LogLevel == "" {
		appCfg.Database.LogLevel = appCfg.Log.Level
	}

	database, err := db.New(appCfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("Database initialized", "driver", appCfg.Database.Driver)

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database migrations completed")

	if err := rbac.InitEnforcer(database, slog.Default()); err != nil {
		return fmt.Errorf("failed to initialize rbac: %w", err)
	}

	if err := db.CreateDefaultAdmin(database, appCfg.Admin); err != nil {
		return fmt.Errorf("failed to create default admin user: %w", err)
	}

	mailQueue, err := createQueue(appCfg, database)
	if err != nil {
		return fmt.Errorf("failed to initialize mail queue: %w", err)
	}
	defer mailQueue.Close()
	slog.Info("Mail queue initialized", "type", appCfg.Queue.Type)

	g, gctx := errgroup.WithContext(ctx)

	if runWorker {
		mailer, err := mail.New(appCfg.Email, os.Stdout)
		if err != nil {
			return fmt.Errorf("failed to initialize mailer: %w", err)
		}
		w := worker.New(database, mailQueue, mailer, appCfg.Email.DefaultFrom, slog.Default())

		g.Go(func() error {
			if err := w.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("worker failed: %w", err)
			}
			slog.Info("Worker stopped")
			return nil
		})
		slog.Info("Worker started", "email_backend", appCfg.Email.Backend)
	}

	if runServer {
		limiter := middleware.NewRateLimiter(appCfg.RateLimit.Rate, appCfg.RateLimit.Burst)
		router, _, err := api.NewRouter(appCfg, database, mailQueue, api.Deps{Limiter: limiter})
		if err != nil {
			return err
		}

		addr := fmt.Sprintf(":%d", appCfg.Server.Port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			slog.Info("Server listening", "address", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}
			slog.Info("Server stopped")
			return nil
		})
		g.Go(func() error {
			limiter.RunCleanup(gctx, time.Minute)
			return nil
		})
	}

	<-gctx.Done()
	slog.Info("Shutting down...")

	if err := g.Wait(); err != nil {
		return err
	}

	if sqlDB, err := database.DB(); err == nil {
		sqlDB.Close()
	}
	slog.Info("qworpa exited")
	return nil
}

// RunWithSignalHandling starts the server and cancels it on SIGINT or SIGTERM.
func RunWithSignalHandling(cfg Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Run(ctx, cfg)
}

// createQueue creates a queue based on configuration.
func createQueue(cfg *config.Config, database *gorm.DB) (queue.Queue, error) {
	switch cfg.Queue.Type {
	case "memory", "":
		return queue.NewMemoryQueue(100), nil
	case "valkey":
		if cfg.Queue.ValkeyAddr == "" {
			return nil, fmt.Errorf("valkey address is required when queue type is valkey")
		}
		return queue.NewValkeyQueue(cfg.Queue.ValkeyAddr, database)
	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: memory, valkey)", cfg.Queue.Type)
	}
}
