package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"finwell/internal/backend"
	"finwell/internal/cli"
	"finwell/internal/log"
	"finwell/internal/storage"
)

func migrateCmd() *cobra.Command {
	var down, status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the database schema",
		Long: `Apply pending schema migrations to the configured SQLite or Postgres
database. With --down every applied migration is reverted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			backendCfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			dialect, dsn, err := backendCfg.Migration()
			if err != nil {
				return err
			}
			logger = logger.WithComponent(log.ComponentMigrate)

			switch {
			case status:
				version, dirty, err := storage.MigrationVersion(dialect, dsn)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
				return nil
			case down:
				if err := storage.RollbackMigrations(dialect, dsn); err != nil {
					return err
				}
				logger.Info("Migrations rolled back", "dialect", string(dialect))
			default:
				if err := storage.RunMigrations(dialect, dsn); err != nil {
					return err
				}
				logger.Info("Migrations applied", "dialect", string(dialect))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "revert every applied migration")
	cmd.Flags().BoolVar(&status, "status", false, "print the applied schema version and exit")
	cmd.MarkFlagsMutuallyExclusive("down", "status")
	return cmd
}
