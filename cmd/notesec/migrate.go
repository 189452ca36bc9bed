package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"notesec/internal/config"
	"notesec/internal/store"
)

func newMigrateCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	var dryRun bool
	var inspect bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run or inspect notes database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return fmt.Errorf("create db directory: %w", err)
			}
			st, err := store.OpenForPlan(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			if inspect || dryRun {
				plan, err := store.MigrationPlan(st.DB())
				if err != nil {
					return fmt.Errorf("inspect migrations: %w", err)
				}
				return writeMigrationPlan(plan, out)
			}

			if err := st.Migrate(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if out.structured() {
				plan, err := store.MigrationPlan(st.DB())
				if err != nil {
					return err
				}
				return writeStructured(plan)
			}
			return writePlain("Migrations applied successfully.\n")
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show pending migrations without applying")
	cmd.Flags().BoolVar(&inspect, "inspect", false, "show migration status")

	return cmd
}

func writeMigrationPlan(plan *store.MigrationStatus, out *outputFlags) error {
	if out.structured() {
		return writeStructured(plan)
	}
	if err := writePlain("Current version: %d\nAvailable version: %d\n", plan.CurrentVersion, plan.AvailableVersion); err != nil {
		return err
	}
	if len(plan.Pending) == 0 {
		return writePlain("No pending migrations.\n")
	}
	if err := writePlain("Pending migrations: %d\n", len(plan.Pending)); err != nil {
		return err
	}
	for _, m := range plan.Pending {
		if err := writePlain("  %d: %s\n", m.Version, m.Description); err != nil {
			return err
		}
	}
	return nil
}
