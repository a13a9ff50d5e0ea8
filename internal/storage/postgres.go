package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"finwell/internal/core"
)

// NUMERIC values travel as text so no precision is lost on either side.
const (
	pgInsert = `INSERT INTO transactions (category, note, amount, date, type, created_at)
VALUES ($1, $2, $3::numeric, $4::date, $5, $6)
RETURNING id`
	pgExists     = `SELECT EXISTS(SELECT 1 FROM transactions WHERE id = $1)`
	pgFindByID   = `SELECT id, category, note, amount::text, date::text, type, created_at FROM transactions WHERE id = $1`
	pgDeleteByID = `DELETE FROM transactions WHERE id = $1`
	pgByRange    = `SELECT id, category, note, amount::text, date::text, type, created_at FROM transactions
WHERE date BETWEEN $1::date AND $2::date ORDER BY date, id`
	pgSumByCategory = `SELECT category, SUM(CASE WHEN type = 'EXPENSE' THEN amount ELSE 0 END)::text
FROM transactions
WHERE date BETWEEN $1::date AND $2::date
GROUP BY category
ORDER BY category`
)

// PostgresRepository is a Store backed by a pgx connection pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresRepository)(nil)

// NewPostgresRepository connects to databaseURL and applies migrations.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(DialectPostgres, databaseURL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) Insert(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.CreatedAt = t.CreatedAt.UTC()
	err := r.pool.QueryRow(ctx, pgInsert,
		t.Category,
		t.Note,
		t.Amount.String(),
		t.Date.String(),
		string(t.Type),
		t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to Postgres",
		"id", t.ID,
		"category", t.Category,
		"amount", t.Amount.String(),
		"date", t.Date.String(),
		"type", t.Type)

	return t, nil
}

func (r *PostgresRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, pgExists, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check transaction %d exists: %w", id, err)
	}
	return exists, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := scanPgTransaction(r.pool.QueryRow(ctx, pgFindByID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

func (r *PostgresRepository) DeleteByID(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, pgDeleteByID, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return nil
}

func (r *PostgresRepository) FindByDateRange(ctx context.Context, start, end core.Date) ([]core.Transaction, error) {
	rows, err := r.pool.Query(ctx, pgByRange, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("query transactions by date range: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		t, err := scanPgTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) SumExpensesByCategory(ctx context.Context, start, end core.Date) ([]core.CategoryAmount, error) {
	rows, err := r.pool.Query(ctx, pgSumByCategory, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("query category sums: %w", err)
	}
	defer rows.Close()

	out := []core.CategoryAmount{}
	for rows.Next() {
		var category, sum string
		if err := rows.Scan(&category, &sum); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		d, err := decimal.NewFromString(sum)
		if err != nil {
			return nil, fmt.Errorf("parse category sum %q: %w", sum, err)
		}
		out = append(out, core.CategoryAmount{Category: category, Amount: d})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category sums: %w", err)
	}
	return out, nil
}

func scanPgTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t      core.Transaction
		amount string
		date   string
		typ    string
	)
	if err := row.Scan(&t.ID, &t.Category, &t.Note, &amount, &date, &typ, &t.CreatedAt); err != nil {
		return core.Transaction{}, err
	}

	var err error
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	if t.Date, err = core.ParseDate(date); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}
