// Package memory is an in-process Store used by tests and by the memory
// backend for local development. Nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"finwell/internal/core"
	"finwell/internal/storage"
)

type Store struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]core.Transaction
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{items: make(map[int64]core.Transaction)}
}

// Insert assigns the next id; ids are never reused, even after a delete.
func (s *Store) Insert(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	t.CreatedAt = t.CreatedAt.UTC()
	t.Note = cloneNote(t.Note)
	s.items[t.ID] = t
	return t, nil
}

func (s *Store) ExistsByID(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[id]
	return ok, nil
}

func (s *Store) FindByID(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	t.Note = cloneNote(t.Note)
	return t, nil
}

func (s *Store) DeleteByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *Store) FindByDateRange(_ context.Context, start, end core.Date) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inRange(start, end), nil
}

func (s *Store) SumExpensesByCategory(_ context.Context, start, end core.Date) ([]core.CategoryAmount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sums := map[string]decimal.Decimal{}
	for _, t := range s.inRange(start, end) {
		sum, ok := sums[t.Category]
		if !ok {
			sum = decimal.Zero
		}
		if t.Type == core.Expense {
			sum = sum.Add(t.Amount)
		}
		sums[t.Category] = sum
	}

	out := make([]core.CategoryAmount, 0, len(sums))
	for cat, sum := range sums {
		out = append(out, core.CategoryAmount{Category: cat, Amount: sum})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Len returns the number of stored transactions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// inRange must be called with s.mu held.
func (s *Store) inRange(start, end core.Date) []core.Transaction {
	out := []core.Transaction{}
	for _, t := range s.items {
		if t.Date.Before(start.Time) || t.Date.After(end.Time) {
			continue
		}
		t.Note = cloneNote(t.Note)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func cloneNote(n *string) *string {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}
