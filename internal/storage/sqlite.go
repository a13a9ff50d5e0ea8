package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finwell/internal/core"

	_ "modernc.org/sqlite"
)

const (
	sqliteInsert = `INSERT INTO transactions (category, note, amount, date, type, created_at)
VALUES (?, ?, ?, ?, ?, ?)`
	sqliteExists     = `SELECT EXISTS(SELECT 1 FROM transactions WHERE id = ?)`
	sqliteFindByID   = `SELECT id, category, note, amount, date, type, created_at FROM transactions WHERE id = ?`
	sqliteDeleteByID = `DELETE FROM transactions WHERE id = ?`
	sqliteByRange    = `SELECT id, category, note, amount, date, type, created_at FROM transactions
WHERE date BETWEEN ? AND ? ORDER BY date, id`
	// Amounts are TEXT; summing them in SQL would go through REAL.
	sqliteCategoryRows = `SELECT category, type, amount FROM transactions
WHERE date BETWEEN ? AND ? ORDER BY category, id`
)

// SQLiteRepository is the default Store, backed by a single SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(DialectSQLite, dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// sqliteDSN enables WAL and a busy timeout so concurrent requests wait for
// the write lock instead of failing with SQLITE_BUSY.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Insert(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx, sqliteInsert,
		t.Category,
		nullString(t.Note),
		t.Amount.String(),
		t.Date.String(),
		string(t.Type),
		t.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("read inserted id: %w", err)
	}
	t.ID = id
	t.CreatedAt = t.CreatedAt.UTC()

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"category", t.Category,
		"amount", t.Amount.String(),
		"date", t.Date.String(),
		"type", t.Type)

	return t, nil
}

func (r *SQLiteRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, sqliteExists, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check transaction %d exists: %w", id, err)
	}
	return exists, nil
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := scanSQLiteTransaction(r.db.QueryRowContext(ctx, sqliteFindByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, sqliteDeleteByID, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) FindByDateRange(ctx context.Context, start, end core.Date) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, sqliteByRange, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("query transactions by date range: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		t, err := scanSQLiteTransaction(rows)
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

func (r *SQLiteRepository) SumExpensesByCategory(ctx context.Context, start, end core.Date) ([]core.CategoryAmount, error) {
	rows, err := r.db.QueryContext(ctx, sqliteCategoryRows, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("query category sums: %w", err)
	}
	defer rows.Close()

	out := []core.CategoryAmount{}
	for rows.Next() {
		var category, typ, amount string
		if err := rows.Scan(&category, &typ, &amount); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].Category != category {
			out = append(out, core.CategoryAmount{Category: category, Amount: decimal.Zero})
		}
		if core.TransactionType(typ) != core.Expense {
			continue
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse stored amount %q: %w", amount, err)
		}
		last := &out[len(out)-1]
		last.Amount = last.Amount.Add(d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t         core.Transaction
		note      sql.NullString
		amount    string
		date      string
		typ       string
		createdAt string
	)
	if err := row.Scan(&t.ID, &t.Category, &note, &amount, &date, &typ, &createdAt); err != nil {
		return core.Transaction{}, err
	}

	var err error
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	if t.Date, err = core.ParseDate(date); err != nil {
		return core.Transaction{}, err
	}
	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored created_at %q: %w", createdAt, err)
	}
	if note.Valid {
		n := note.String
		t.Note = &n
	}
	t.Type = core.TransactionType(typ)
	return t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
