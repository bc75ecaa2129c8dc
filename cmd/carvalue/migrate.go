// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/carvalue/carvalue/internal/config"
	"github.com/carvalue/carvalue/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return newMigrateCmd(nil)
}

func newMigrateCmd(deps *MigrateDeps) *cobra.Command {
	if deps == nil {
		deps = &MigrateDeps{}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = func(databaseURL string) (Migrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}

	up := func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd, deps, func(m Migrator) error {
			cmd.Println("Running migrations...")
			if err := m.Up(); err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
			}
			cmd.Println("Migrations completed successfully")
			return nil
		})
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Apply, roll back or inspect the PostgreSQL schema migrations.
Without a subcommand all pending migrations are applied.`,
		RunE: up,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE:  up,
	})

	var (
		steps int
		all   bool
	)
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		Long: `Roll back the most recent migrations. With --all every migration is
rolled back and all tables and data are dropped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all {
				return withMigrator(cmd, deps, func(m Migrator) error {
					if err := m.Down(); err != nil {
						return oops.Code("MIGRATION_FAILED").With("operation", "roll back all migrations").Wrap(err)
					}
					cmd.Println("Rolled back all migrations")
					return nil
				})
			}
			if steps < 1 {
				return oops.Code("MIGRATION_STEPS_INVALID").With("steps", steps).Errorf("steps must be at least 1")
			}
			return withMigrator(cmd, deps, func(m Migrator) error {
				if err := m.Steps(-steps); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "roll back migrations").With("steps", steps).Wrap(err)
				}
				cmd.Printf("Rolled back %d migration(s)\n", steps)
				return nil
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	down.Flags().BoolVar(&all, "all", false, "roll back every migration")
	down.MarkFlagsMutuallyExclusive("steps", "all")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				st, err := m.Status()
				if err != nil {
					return oops.Code("MIGRATION_STATUS_FAILED").Wrap(err)
				}
				cmd.Print(formatMigrationStatus(st))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Long: `Set the recorded schema version and clear the dirty flag.
Use after fixing a migration that failed part way through.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code("MIGRATION_VERSION_INVALID").With("version", args[0]).Wrap(err)
			}
			return withMigrator(cmd, deps, func(m Migrator) error {
				if err := m.Force(version); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "force version").With("version", version).Wrap(err)
				}
				cmd.Printf("Schema version forced to %d\n", version)
				return nil
			})
		},
	})

	return cmd
}

// withMigrator loads the configuration, opens a migrator and runs fn.
func withMigrator(cmd *cobra.Command, deps *MigrateDeps, fn func(Migrator) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("database URL is required (set %s or database.url)", config.EnvDatabaseURL)
	}

	m, err := deps.MigratorFactory(cfg.Database.URL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "open migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			cmd.PrintErrln("warning: closing migrator:", closeErr)
		}
	}()

	return fn(m)
}

// formatMigrationStatus renders the schema state as a table.
func formatMigrationStatus(st *store.Status) string {
	var buf []byte
	w := tabwriter.NewWriter((*byteWriter)(&buf), 0, 0, 2, ' ', 0)

	state := "clean"
	if st.Dirty {
		state = "dirty"
	}
	current := strconv.FormatUint(uint64(st.Current), 10)
	if name, err := store.MigrationName(st.Current); err == nil && name != "" {
		current += " " + name
	}
	_, _ = fmt.Fprintf(w, "Current version: %s (%s)\n\n", current, state)

	_, _ = fmt.Fprintln(w, "VERSION\tNAME\tSTATE")
	_, _ = fmt.Fprintln(w, "-------\t----\t-----")
	for _, mig := range st.Applied {
		_, _ = fmt.Fprintf(w, "%d\t%s\tapplied\n", mig.Version, mig.Name)
	}
	for _, mig := range st.Pending {
		_, _ = fmt.Fprintf(w, "%d\t%s\tpending\n", mig.Version, mig.Name)
	}

	_ = w.Flush()
	return string(buf)
}
