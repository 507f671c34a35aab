package cli

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/user-directory/internal/persistence"
)

var errNoDSN = errors.New("POSTGRES_DSN is required for migrations")

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}
	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all up migrations",
			RunE: func(*cobra.Command, []string) error {
				return runMigration(persistence.RunMigrations)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert all applied migrations",
			RunE: func(*cobra.Command, []string) error {
				return runMigration(persistence.RollbackMigrations)
			},
		},
	)
	return migrateCmd
}

func runMigration(step func(string, *zap.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Postgres.DSN == "" {
		return errNoDSN
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	return step(cfg.Postgres.DSN, logger)
}
