package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"finwell/internal/backend"
	"finwell/internal/cli"
	"finwell/internal/config"
	"finwell/internal/core"
	"finwell/internal/log"
	"finwell/internal/sheets/google"
	"finwell/internal/storage"
	"finwell/internal/worker"
)

func exportCmd() *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export one month to Google Sheets",
		Long: `Write every transaction of --month to the spreadsheet tab named after the
month, replacing whatever the tab held before.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := core.ParseMonth(month)
			if err != nil {
				return err
			}

			cfg, logger, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateExport(); err != nil {
				return err
			}

			ctx, stop := cli.SignalContext(cmd.Context(), logger)
			defer stop()

			store, cleanup, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			exporter, err := newExporter(ctx, cfg, logger)
			if err != nil {
				return err
			}
			return worker.NewExportWorker(store, exporter, logger).ExportMonth(ctx, m)
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "month to export, formatted as YYYY-MM")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

func openStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (storage.Store, func(), error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	cleanup := func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Failed to close storage", log.FieldError, err.Error())
		}
	}
	return result.Store, cleanup, nil
}

func newExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) (*google.Exporter, error) {
	exporter, err := google.New(ctx, cfg.GoogleSpreadsheetID, google.Credentials{
		JSON: cfg.GoogleServiceAccountJSON,
		File: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init google sheets: %w", err)
	}
	return exporter, nil
}
