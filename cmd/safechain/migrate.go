// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeChain Contributors

package main

import (
	"fmt"
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/safechain/safechain/internal/config"
	"github.com/safechain/safechain/internal/store"
)

// NewMigrateCmd creates the migrate subcommand with its actions.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")

	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateDownCmd())
	cmd.AddCommand(newMigrateStatusCmd())
	cmd.AddCommand(newMigrateForceCmd())

	return cmd
}

// openMigrator resolves the database URL and constructs a Migrator.
func openMigrator(cmd *cobra.Command) (*store.Migrator, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("database URL is required (set DATABASE_URL or --database-url)")
	}
	return store.NewMigrator(cfg.DatabaseURL)
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			migrator, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = migrator.Close() }() //nolint:errcheck // close error after successful run is not actionable

			if err := migrator.Up(); err != nil {
				return err
			}

			version, _, err := migrator.Version()
			if err != nil {
				return err
			}
			cmd.Printf("Migrations applied, schema at version %d\n", version)
			return nil
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			migrator, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = migrator.Close() }() //nolint:errcheck // close error after successful run is not actionable

			if err := migrator.Steps(-1); err != nil {
				return err
			}

			version, _, err := migrator.Version()
			if err != nil {
				return err
			}
			cmd.Printf("Rolled back one migration, schema at version %d\n", version)
			return nil
		},
	}
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			migrator, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = migrator.Close() }() //nolint:errcheck // close error after successful run is not actionable

			version, dirty, err := migrator.Version()
			if err != nil {
				return err
			}
			cmd.Printf("Current version: %d (dirty: %v)\n", version, dirty)

			applied, err := migrator.AppliedMigrations()
			if err != nil {
				return err
			}
			pending, err := migrator.PendingMigrations()
			if err != nil {
				return err
			}

			printMigrationList(cmd, "Applied", applied)
			printMigrationList(cmd, "Pending", pending)
			return nil
		},
	}
}

func printMigrationList(cmd *cobra.Command, label string, versions []uint) {
	if len(versions) == 0 {
		cmd.Printf("%s: none\n", label)
		return
	}
	cmd.Printf("%s:\n", label)
	for _, v := range versions {
		name, err := store.MigrationName(v)
		if err != nil || name == "" {
			name = fmt.Sprintf("%06d", v)
		}
		cmd.Printf("  %s\n", name)
	}
}

func newMigrateForceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Set the migration version without running migrations",
		Long: `Set the migration version without running migrations. Use only to
recover from a dirty state after manually fixing the database.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil || version < 0 {
				return oops.Code("INVALID_VERSION").Errorf("version must be a non-negative integer, got %q", args[0])
			}

			migrator, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = migrator.Close() }() //nolint:errcheck // close error after successful run is not actionable

			if err := migrator.Force(version); err != nil {
				return err
			}
			cmd.Printf("Schema version forced to %d\n", version)
			return nil
		},
	}
}
