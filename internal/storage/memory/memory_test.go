package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finwell/internal/core"
	"finwell/internal/storage"
	"finwell/internal/storage/storagetest"
)

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return New() })
}

func TestNoteIsCopied(t *testing.T) {
	s := New()
	ctx := context.Background()
	note := "original"
	tx := storagetest.Tx("Food", "1", core.NewDate(2024, 3, 1), core.Expense)
	tx.Note = &note

	created, err := s.Insert(ctx, tx)
	require.NoError(t, err)
	note = "mutated"

	got, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Note)
	assert.Equal(t, "original", *got.Note)
}

func TestConcurrentInserts(t *testing.T) {
	s := New()
	ctx := context.Background()
	const n = 50

	var wg sync.WaitGroup
	ids := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := s.Insert(ctx, storagetest.Tx("Food", "1", core.NewDate(2024, 3, 1), core.Expense))
			if err == nil {
				ids <- tx.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, s.Len())
}
