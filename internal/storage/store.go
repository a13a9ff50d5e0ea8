// Package storage persists transactions.
//
// Store is the contract every backend satisfies; SQLiteRepository and
// PostgresRepository implement it over SQL, memory.Store implements it in
// process for tests and local development.
package storage

import (
	"context"

	"finwell/internal/core"
)

// Store is the durable by-id store of transactions.
type Store interface {
	// Insert assigns a fresh id to t and persists it.
	Insert(ctx context.Context, t core.Transaction) (core.Transaction, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	// FindByID returns core.ErrNotFound when id is absent.
	FindByID(ctx context.Context, id int64) (core.Transaction, error)
	// DeleteByID is a no-op for an absent id.
	DeleteByID(ctx context.Context, id int64) error
	// FindByDateRange returns transactions with start <= date <= end,
	// ordered by date then id.
	FindByDateRange(ctx context.Context, start, end core.Date) ([]core.Transaction, error)
	// SumExpensesByCategory returns one entry per category with any
	// transaction in range, summing only EXPENSE amounts, ordered by category.
	SumExpensesByCategory(ctx context.Context, start, end core.Date) ([]core.CategoryAmount, error)
	Ping(ctx context.Context) error
	Close() error
}
