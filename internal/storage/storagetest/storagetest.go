// Package storagetest holds the behavioural suite every storage.Store
// implementation must pass.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finwell/internal/core"
	"finwell/internal/storage"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) storage.Store

// Tx builds a transaction ready for Insert.
func Tx(category, amount string, date core.Date, typ core.TransactionType) core.Transaction {
	return core.Transaction{
		Category:  category,
		Amount:    decimal.RequireFromString(amount),
		Date:      date,
		Type:      typ,
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Run executes the contract suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("InsertAssignsUniqueIDs", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		seen := map[int64]bool{}
		for i := 0; i < 5; i++ {
			got, err := s.Insert(ctx, Tx("Food", "1.00", core.NewDate(2024, 3, 1), core.Expense))
			require.NoError(t, err)
			assert.NotZero(t, got.ID)
			assert.False(t, seen[got.ID], "id %d reused", got.ID)
			seen[got.ID] = true
		}
	})

	t.Run("IDsNotReusedAfterDelete", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		first, err := s.Insert(ctx, Tx("Food", "1.00", core.NewDate(2024, 3, 1), core.Expense))
		require.NoError(t, err)
		second, err := s.Insert(ctx, Tx("Food", "1.00", core.NewDate(2024, 3, 1), core.Expense))
		require.NoError(t, err)
		require.NoError(t, s.DeleteByID(ctx, second.ID))
		third, err := s.Insert(ctx, Tx("Food", "1.00", core.NewDate(2024, 3, 1), core.Expense))
		require.NoError(t, err)
		assert.Greater(t, third.ID, second.ID)
		assert.Greater(t, second.ID, first.ID)
	})

	t.Run("RoundTripPreservesFields", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		note := "weekly groceries"
		in := Tx("Food", "12.345678901234567890", core.NewDate(2024, 2, 29), core.Expense)
		in.Note = &note
		in.CreatedAt = time.Date(2024, 2, 29, 18, 30, 15, 123456000, time.UTC)

		created, err := s.Insert(ctx, in)
		require.NoError(t, err)

		got, err := s.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "Food", got.Category)
		require.NotNil(t, got.Note)
		assert.Equal(t, note, *got.Note)
		assert.True(t, in.Amount.Equal(got.Amount), "amount %s != %s", got.Amount, in.Amount)
		assert.Equal(t, "2024-02-29", got.Date.String())
		assert.Equal(t, core.Expense, got.Type)
		assert.True(t, in.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("NullNoteStaysNull", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		created, err := s.Insert(ctx, Tx("Salary", "3000", core.NewDate(2024, 3, 1), core.Income))
		require.NoError(t, err)
		got, err := s.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Note)
	})

	t.Run("ExistsAndDelete", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		created, err := s.Insert(ctx, Tx("Food", "5.00", core.NewDate(2024, 3, 10), core.Expense))
		require.NoError(t, err)

		ok, err := s.ExistsByID(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.ExistsByID(ctx, created.ID+1000)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.DeleteByID(ctx, created.ID))
		ok, err = s.ExistsByID(ctx, created.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.FindByID(ctx, created.ID)
		assert.ErrorIs(t, err, core.ErrNotFound)

		// Deleting an absent id is a no-op.
		require.NoError(t, s.DeleteByID(ctx, created.ID))
	})

	t.Run("FindByDateRangeInclusive", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		dates := []core.Date{
			core.NewDate(2024, 1, 31),
			core.NewDate(2024, 2, 1),
			core.NewDate(2024, 2, 15),
			core.NewDate(2024, 2, 29),
			core.NewDate(2024, 3, 1),
		}
		for _, d := range dates {
			_, err := s.Insert(ctx, Tx("Food", "1.00", d, core.Expense))
			require.NoError(t, err)
		}

		feb := core.Month{Year: 2024, Month: time.February}
		got, err := s.FindByDateRange(ctx, feb.Start(), feb.End())
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "2024-02-01", got[0].Date.String())
		assert.Equal(t, "2024-02-15", got[1].Date.String())
		assert.Equal(t, "2024-02-29", got[2].Date.String())

		empty, err := s.FindByDateRange(ctx, core.NewDate(2020, 1, 1), core.NewDate(2020, 1, 31))
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("FindByDateRangeOrdersByDateThenID", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		late, err := s.Insert(ctx, Tx("A", "1", core.NewDate(2024, 3, 20), core.Expense))
		require.NoError(t, err)
		early1, err := s.Insert(ctx, Tx("B", "1", core.NewDate(2024, 3, 2), core.Expense))
		require.NoError(t, err)
		early2, err := s.Insert(ctx, Tx("C", "1", core.NewDate(2024, 3, 2), core.Expense))
		require.NoError(t, err)

		got, err := s.FindByDateRange(ctx, core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 31))
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []int64{early1.ID, early2.ID, late.ID}, []int64{got[0].ID, got[1].ID, got[2].ID})
	})

	t.Run("SumExpensesByCategory", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		rows := []core.Transaction{
			Tx("Food", "12.50", core.NewDate(2024, 3, 5), core.Expense),
			Tx("Food", "5.00", core.NewDate(2024, 3, 10), core.Expense),
			Tx("Food", "100.00", core.NewDate(2024, 3, 11), core.Income),
			Tx("Salary", "3000.00", core.NewDate(2024, 3, 1), core.Income),
			Tx("Bills", "0.10", core.NewDate(2024, 3, 31), core.Expense),
			Tx("Bills", "0.20", core.NewDate(2024, 3, 31), core.Expense),
			Tx("Travel", "999.99", core.NewDate(2024, 4, 1), core.Expense),
		}
		for _, r := range rows {
			_, err := s.Insert(ctx, r)
			require.NoError(t, err)
		}

		mar := core.Month{Year: 2024, Month: time.March}
		got, err := s.SumExpensesByCategory(ctx, mar.Start(), mar.End())
		require.NoError(t, err)

		sums := map[string]string{}
		var order []string
		for _, c := range got {
			sums[c.Category] = c.Amount.StringFixed(2)
			order = append(order, c.Category)
		}
		assert.Equal(t, []string{"Bills", "Food", "Salary"}, order)
		assert.Equal(t, "0.30", sums["Bills"])
		assert.Equal(t, "17.50", sums["Food"])
		// Categories with only INCOME in range still appear, with zero.
		assert.Equal(t, "0.00", sums["Salary"])
		assert.NotContains(t, sums, "Travel")
	})

	t.Run("SumMatchesListedExpenses", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		amounts := []string{"0.01", "19.99", "7.333", "1000", "-2.50"}
		for i, a := range amounts {
			typ := core.Expense
			if i%4 == 3 {
				typ = core.Income
			}
			_, err := s.Insert(ctx, Tx("Misc", a, core.NewDate(2024, 5, i+1), typ))
			require.NoError(t, err)
		}
		may := core.Month{Year: 2024, Month: time.May}
		listed, err := s.FindByDateRange(ctx, may.Start(), may.End())
		require.NoError(t, err)
		want := decimal.Zero
		for _, tx := range listed {
			if tx.Type == core.Expense {
				want = want.Add(tx.Amount)
			}
		}
		got, err := s.SumExpensesByCategory(ctx, may.Start(), may.End())
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, want.Equal(got[0].Amount), "sum %s != %s", got[0].Amount, want)
		// Negative amounts are summed unchanged.
		assert.Equal(t, "24.833", got[0].Amount.String())
	})

	t.Run("Ping", func(t *testing.T) {
		s := open(t, newStore)
		assert.NoError(t, s.Ping(context.Background()))
	})
}

func open(t *testing.T, newStore Factory) storage.Store {
	t.Helper()
	s := newStore(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}
