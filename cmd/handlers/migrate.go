package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"contentops/internal/config"
	"contentops/internal/persistence"
)

// NewMigrateCmd creates the migrate command for database migrations
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Manage database schema migrations.

Subcommands:
  up       Apply all pending migrations
  status   Show migration status
  rollback Roll back the last migration record (use with caution!)

Applied migrations are tracked in the schema_migrations table. Postgres and
SQLite each have their own migration set, selected by database.driver.

Examples:
  contentops migrate up
  contentops migrate status
  contentops migrate rollback --force`,
	}

	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateStatusCmd())
	cmd.AddCommand(newMigrateRollbackCmd())

	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *persistence.MigrationManager) error {
				if err := m.Migrate(ctx); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Println("Schema is up to date")
				return nil
			})
		},
	}
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), printMigrationStatus)
		},
	}
}

func newMigrateRollbackCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Roll back the last migration record",
		Long: `Remove the last applied migration from schema_migrations.

⚠️  WARNING: the schema itself is not reverted. Use in development only.
Use --force to skip the confirmation prompt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force && !confirm("Are you sure you want to proceed? (yes/no): ") {
				fmt.Println("Rollback cancelled")
				return nil
			}
			return withMigrator(cmd.Context(), func(ctx context.Context, m *persistence.MigrationManager) error {
				if err := m.Rollback(ctx); err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
				fmt.Println(warnStyle.Render("Migration record removed. Revert the schema by hand if needed."))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}

func withMigrator(ctx context.Context, fn func(context.Context, *persistence.MigrationManager) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dbCfg := cfg.Database
	dbCfg.AutoMigrate = false
	db, err := openDatabase(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, persistence.NewMigrationManager(db))
}

func printMigrationStatus(ctx context.Context, m *persistence.MigrationManager) error {
	status, err := m.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	if len(status) == 0 {
		fmt.Println("No embedded migrations")
		return nil
	}

	fmt.Println(titleStyle.Render("Schema migrations"))
	pending := 0
	for _, s := range status {
		state := "applied"
		if !s.Applied {
			state = warnStyle.Render("pending")
			pending++
		}
		fmt.Println(labelStyle.Render(fmt.Sprintf("%03d", s.Version)) + state + "  " + s.Description)
	}

	if pending > 0 {
		fmt.Printf("\n%d of %d pending. Run 'contentops migrate up' to apply them.\n", pending, len(status))
	}
	return nil
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false
	}
	return response == "yes"
}
