package main

import (
	"errors"
	"fmt"

	"github.com/DukeRupert/kasir/internal"
	"github.com/spf13/cobra"
)

func newMigrateCmd(connect backendFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	run := func(use, short string, fn func(*cobra.Command, *backend) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withBackend(cmd, connect, func(b *backend) error {
					if b.db == nil {
						return errors.New("migrate requires a database connection")
					}
					return fn(cmd, b)
				})
			},
		}
	}

	cmd.AddCommand(
		run("up", "Apply all pending migrations", func(cmd *cobra.Command, b *backend) error {
			if err := internal.RunMigrations(cmd.Context(), b.db); err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			return printVersion(cmd, b)
		}),
		run("down", "Revert the most recent migration", func(cmd *cobra.Command, b *backend) error {
			if err := internal.RollbackMigration(cmd.Context(), b.db); err != nil {
				return fmt.Errorf("migrate down: %w", err)
			}
			return printVersion(cmd, b)
		}),
		run("version", "Print the current schema version", printVersion),
	)

	return cmd
}

func printVersion(cmd *cobra.Command, b *backend) error {
	v, err := internal.MigrationVersion(cmd.Context(), b.db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", v)
	return err
}
