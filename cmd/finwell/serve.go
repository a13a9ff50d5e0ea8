package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"finwell/internal/amqp"
	"finwell/internal/backend"
	"finwell/internal/cli"
	apphttp "finwell/internal/http"
	"finwell/internal/log"
	"finwell/internal/services"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the transaction API until SIGINT or SIGTERM, then drain in-flight
requests within SHUTDOWN_TIMEOUT. Transaction events are published when
AMQP_URL is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg, logger, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(parent, logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	opts := []services.Option{services.WithLogger(logger)}
	if cfg.EventsEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			_ = result.Cleanup()
			return fmt.Errorf("connect to message broker: %w", err)
		}
		opts = append(opts, services.WithPublisher(client))
		logger.Info("Transaction events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	// The service owns the store and publisher from here on.
	svc := services.NewTransactionService(result.Store, opts...)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Failed to close resources", log.FieldError, err.Error())
		}
	}()

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting finwell server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"version", version,
			log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		logger.Info("Shutting down server", "timeout", cfg.ShutdownTimeout.String(), log.FieldOperation, log.OpShutdown)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	m := srv.Metrics()
	logger.Info("Server stopped gracefully",
		"requests_served", m.TotalRequests,
		"server_errors", m.ServerErrors)
	return nil
}
