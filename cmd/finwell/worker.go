package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"finwell/internal/amqp"
	"finwell/internal/cli"
	"finwell/internal/core"
	"finwell/internal/log"
	"finwell/internal/worker"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Mirror transaction events into Google Sheets",
		Long: `Consume transaction events from AMQP_QUEUE and re-export the affected month
to Google Sheets. The current month is exported once at startup to catch up
on events published while the worker was down.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			if !cfg.EventsEnabled() {
				return errors.New("AMQP_URL is required for the worker")
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

			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
			if err != nil {
				return err
			}
			defer client.Close()

			w := worker.NewExportWorker(store, exporter, logger)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				now := time.Now()
				current := core.Month{Year: now.Year(), Month: now.Month()}
				if err := w.ExportMonth(gctx, current); err != nil {
					logger.Warn("Startup export failed",
						log.FieldMonth, current.String(),
						log.FieldError, err.Error())
				}
				return nil
			})
			g.Go(func() error {
				return w.Run(gctx, client)
			})
			return g.Wait()
		},
	}
}
