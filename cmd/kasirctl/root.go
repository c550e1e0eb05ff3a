package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/DukeRupert/kasir/internal"
	"github.com/DukeRupert/kasir/internal/company"
	"github.com/DukeRupert/kasir/internal/repository"
	"github.com/DukeRupert/kasir/internal/usage"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// backend is what commands need from the environment. Commands that only
// touch the schema use db; the rest use the stores.
type backend struct {
	cfg       *internal.Config
	db        *sql.DB
	companies company.Store
	clock     usage.Clock
	close     func() error
}

type backendFunc func(ctx context.Context) (*backend, error)

// defaultBackend connects to DATABASE_URL.
func defaultBackend(ctx context.Context) (*backend, error) {
	cfg, err := internal.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &backend{
		cfg:       cfg,
		db:        db,
		companies: company.NewPostgresStore(repository.New(db)),
		clock:     usage.SystemClock{},
		close:     db.Close,
	}, nil
}

func newRootCmd(connect backendFunc) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "kasirctl",
		Short:         "Operator tool for kasir subscriptions and quotas",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	var logLevel string
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	newLogger := func() *slog.Logger {
		return internal.NewLogger(os.Stderr, "production", logLevel)
	}

	rootCmd.AddCommand(
		newSweepCmd(connect, newLogger),
		newMigrateCmd(connect),
		newSubscriptionCmd(connect, newLogger),
		newQuotaPolicyCmd(),
	)

	return rootCmd
}

// withBackend connects, runs fn and always releases the connection.
func withBackend(cmd *cobra.Command, connect backendFunc, fn func(*backend) error) error {
	b, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if b.close != nil {
			_ = b.close()
		}
	}()
	return fn(b)
}
