package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finwell/internal/amqp"
	"finwell/internal/core"
	"finwell/internal/log"
	"finwell/internal/storage"
)

// EventPublisher announces ledger changes. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev amqp.TransactionEvent) error
	Close() error
}

// TransactionService orchestrates transaction operations across storage and
// the optional event publisher.
type TransactionService struct {
	store     storage.Store
	publisher EventPublisher
	logger    *log.Logger
	now       func() time.Time
}

type Option func(*TransactionService)

// WithPublisher enables change events. A nil publisher leaves them off.
func WithPublisher(p EventPublisher) Option {
	return func(s *TransactionService) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *TransactionService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the source of createdAt timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *TransactionService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewTransactionService(store storage.Store, opts ...Option) *TransactionService {
	s := &TransactionService{
		store:  store,
		logger: log.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentTransaction)
	return s
}

// Create validates and stores a new transaction, stamping createdAt.
func (s *TransactionService) Create(ctx context.Context, in core.NewTransaction) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.store.Insert(ctx, core.Transaction{
		Category:  in.Category,
		Note:      in.Note,
		Amount:    in.Amount,
		Date:      in.Date,
		Type:      in.Type,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction created", log.NewFields().
		WithTransaction(saved.ID, saved.Category, saved.Amount.String(), saved.Type.String(), saved.Date.String()).
		WithOperation(log.OpCreate).
		ToSlice()...)

	s.publish(ctx, amqp.EventTransactionCreated, saved.ID, saved.Date.Month())
	return saved, nil
}

// ListMonth returns every transaction dated within month, ordered by date
// then id.
func (s *TransactionService) ListMonth(ctx context.Context, month core.Month) ([]core.Transaction, error) {
	txs, err := s.store.FindByDateRange(ctx, month.Start(), month.End())
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", month, err)
	}
	return txs, nil
}

// SummaryMonth returns EXPENSE totals per category for month. Categories
// with only INCOME rows appear with a zero total.
func (s *TransactionService) SummaryMonth(ctx context.Context, month core.Month) (core.Summary, error) {
	sums, err := s.store.SumExpensesByCategory(ctx, month.Start(), month.End())
	if err != nil {
		return core.Summary{}, fmt.Errorf("summarize %s: %w", month, err)
	}
	sum := core.Summary{Month: month, ByCategory: sums}
	s.logger.DebugContext(ctx, "Month summarized",
		log.FieldMonth, month.String(),
		log.FieldCount, len(sums),
		log.FieldAmount, sum.Total().String(),
		log.FieldOperation, log.OpSummary)
	return sum, nil
}

// Delete removes the transaction with id, or returns core.ErrNotFound.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	exists, err := s.store.ExistsByID(ctx, id)
	if err != nil {
		return fmt.Errorf("check transaction %d: %w", id, err)
	}
	if !exists {
		return core.ErrNotFound
	}

	// The event needs the month, which is gone once the row is deleted.
	var month core.Month
	if s.publisher != nil {
		tx, err := s.store.FindByID(ctx, id)
		if errors.Is(err, core.ErrNotFound) {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load transaction %d: %w", id, err)
		}
		month = tx.Date.Month()
	}

	if err := s.store.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldTransactionID, id,
		log.FieldOperation, log.OpDelete)

	if s.publisher != nil {
		s.publish(ctx, amqp.EventTransactionDeleted, id, month)
	}
	return nil
}

// Ping reports whether storage is reachable.
func (s *TransactionService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// publish never fails the caller: the row is already committed.
func (s *TransactionService) publish(ctx context.Context, event amqp.EventType, id int64, month core.Month) {
	if s.publisher == nil {
		return
	}
	ev := amqp.NewTransactionEvent(event, id, month, s.now())
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish transaction event", log.NewFields().
			WithError(err).
			WithErrorType(log.ErrorTypeNetwork).
			WithOperation(log.OpPublish).
			WithMonth(ev.Month).
			ToSlice()...)
	}
}

// Close closes storage and the publisher.
func (s *TransactionService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %w", errors.Join(errs...))
	}
	return nil
}
