package worker

import (
	"context"
	"fmt"

	"finwell/internal/amqp"
	"finwell/internal/core"
	"finwell/internal/log"
	"finwell/internal/sheets"
	"finwell/internal/storage"
)

// ExportWorker keeps the spreadsheet copy of each month in step with
// storage. Every event re-exports the whole affected month, so replays and
// out-of-order deliveries converge on the same sheet.
type ExportWorker struct {
	store    storage.Store
	exporter sheets.MonthExporter
	logger   *log.Logger
}

func NewExportWorker(store storage.Store, exporter sheets.MonthExporter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		store:    store,
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent is an amqp.Handler.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev amqp.TransactionEvent) error {
	month, err := ev.ParsedMonth()
	if err != nil {
		return fmt.Errorf("event %s for %d: %w", ev.Event, ev.ID, err)
	}

	w.logger.InfoContext(ctx, "Processing transaction event",
		log.FieldEvent, ev.Event,
		log.FieldTransactionID, ev.ID,
		log.FieldMonth, ev.Month)

	return w.ExportMonth(ctx, month)
}

// ExportMonth reads month from storage and hands it to the exporter.
func (w *ExportWorker) ExportMonth(ctx context.Context, month core.Month) error {
	txs, err := w.store.FindByDateRange(ctx, month.Start(), month.End())
	if err != nil {
		return fmt.Errorf("load %s: %w", month, err)
	}
	if err := w.exporter.ExportMonth(ctx, month, txs); err != nil {
		return fmt.Errorf("export %s: %w", month, err)
	}
	return nil
}

// Consumer is the subset of *amqp.Client the worker needs.
type Consumer interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

// Run consumes events until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context, consumer Consumer) error {
	w.logger.InfoContext(ctx, "Export worker started", log.FieldOperation, log.OpStartup)
	err := consumer.Consume(ctx, w.HandleEvent)
	if ctx.Err() != nil {
		w.logger.InfoContext(ctx, "Export worker stopped", log.FieldOperation, log.OpShutdown)
		return nil
	}
	return err
}
