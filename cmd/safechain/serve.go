// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeChain Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/safechain/safechain/internal/account"
	acctpg "github.com/safechain/safechain/internal/account/postgres"
	"github.com/safechain/safechain/internal/api"
	"github.com/safechain/safechain/internal/config"
	"github.com/safechain/safechain/internal/logging"
	"github.com/safechain/safechain/internal/mail"
	"github.com/safechain/safechain/internal/observability"
	"github.com/safechain/safechain/internal/store"
)

const (
	shutdownTimeout  = 10 * time.Second
	readinessTimeout = 2 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the account service",
		Long: `Start the HTTP server for the mobile account endpoints, apply any
pending database migrations, and expose metrics and health probes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("http-addr", config.DefaultHTTPAddr, "HTTP listen address")
	cmd.Flags().String("metrics-addr", config.DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	cmd.Flags().String("log-format", config.DefaultLogFormat, "log format (json or text)")
	cmd.Flags().String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	cmd.Flags().String("reset-base-url", config.DefaultResetBaseURL, "base URL for password reset links")
	cmd.Flags().StringSlice("allowed-origins", nil, "CORS allowed origins (empty = all)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault("safechain", version, cfg.LogFormat, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting safechain",
		"version", version,
		"http_addr", cfg.HTTPAddr,
		"metrics_addr", cfg.MetricsAddr,
	)

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	slog.Info("connected to database")

	if err := applyMigrations(cfg.DatabaseURL); err != nil {
		return err
	}

	// Wire repositories and services
	accounts := acctpg.NewAccountRepository(pool)
	resets := acctpg.NewPasswordResetRepository(pool)
	hasher := account.NewArgon2idHasher()

	accountSvc, err := account.NewService(accounts, hasher)
	if err != nil {
		return err
	}
	resetSvc, err := account.NewPasswordResetService(accounts, resets, hasher, slog.Default())
	if err != nil {
		return err
	}

	dispatcher := newDispatcher(cfg)

	// Observability server (optional)
	var obsServer *observability.Server
	var obsErrCh <-chan error
	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, databaseReadiness(pool))
		metrics = obsServer.Metrics()
		obsErrCh, err = obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
	}

	handler, err := api.NewHandler(accountSvc, resetSvc, dispatcher, metrics, slog.Default(), cfg.ResetBaseURL)
	if err != nil {
		return err
	}

	apiServer, err := api.NewServer(cfg.HTTPAddr, handler, api.ServerOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		Metrics:        metrics,
		Logger:         slog.Default(),
	})
	if err != nil {
		return err
	}

	apiErrCh, err := apiServer.Start()
	if err != nil {
		return oops.With("operation", "start api server").Wrap(err)
	}

	// Block until a shutdown signal or a server failure
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-apiErrCh:
		if err != nil {
			slog.Error("api server failed", "error", err)
		}
	case err := <-obsErrCh:
		if err != nil {
			slog.Error("observability server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping api server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// applyMigrations brings the schema up to date before serving.
func applyMigrations(databaseURL string) error {
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("error closing migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return err
	}

	version, _, err := migrator.Version()
	if err != nil {
		return err
	}
	slog.Info("database schema up to date", "migration_version", version)
	return nil
}

// newDispatcher builds the reset email dispatcher, falling back to log-only
// delivery when SMTP is unconfigured.
func newDispatcher(cfg *config.Config) mail.Dispatcher {
	if cfg.SMTP.Host == "" {
		slog.Info("smtp not configured, reset emails will be logged")
		return mail.NewLogDispatcher(slog.Default())
	}

	d, err := mail.NewSMTPDispatcher(mail.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, slog.Default())
	if err != nil {
		slog.Warn("invalid smtp configuration, falling back to log-only dispatch", "error", err)
		return mail.NewLogDispatcher(slog.Default())
	}
	return d
}

// databaseReadiness reports ready when the database answers a ping.
func databaseReadiness(pool *pgxpool.Pool) observability.ReadinessChecker {
	return func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
		defer cancel()
		return pool.Ping(ctx) == nil
	}
}
