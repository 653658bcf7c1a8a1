package sheets

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SIMPLIKARG/TESTING/internal/repositories"
	"github.com/SIMPLIKARG/TESTING/internal/repositories/memory"
)

func TestCounterStoreCreatesSheetRows(t *testing.T) {
	ctx := context.Background()
	tables := memory.NewTableStore(nil)
	store := NewCounterStore(tables, "Contadores")

	for want := int64(1); want <= 3; want++ {
		got, err := store.Increment(ctx, "pedidos")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	rows, err := tables.Read(ctx, "Contadores")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"clave", "valor"}, {"pedidos", "3"}}, rows)
}

func TestCounterStoreContinuesExistingValue(t *testing.T) {
	ctx := context.Background()
	tables := memory.NewTableStore(map[string][][]string{
		"Contadores": {{"clave", "valor"}, {"otros", "9"}, {"pedidos", "41"}},
	})
	store := NewCounterStore(tables, "Contadores")

	got, err := store.Increment(ctx, "pedidos")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)
}

func TestCounterStoreSerialisesConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	store := NewCounterStore(memory.NewTableStore(nil), "Contadores")

	const workers = 20
	values := make(chan int64, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := store.Increment(ctx, "pedidos")
			assert.NoError(t, err)
			values <- v
		}()
	}
	wg.Wait()
	close(values)

	seen := map[int64]bool{}
	for v := range values {
		assert.False(t, seen[v], "duplicate value %d", v)
		seen[v] = true
	}
	assert.Len(t, seen, workers)
}

func TestCounterStoreCorruptValue(t *testing.T) {
	tables := memory.NewTableStore(map[string][][]string{
		"Contadores": {{"clave", "valor"}, {"pedidos", "doce"}},
	})
	_, err := NewCounterStore(tables, "Contadores").Increment(context.Background(), "pedidos")
	var counterErr *repositories.CounterError
	require.True(t, errors.As(err, &counterErr))
	assert.Equal(t, repositories.CounterErrorCorrupt, counterErr.Code)
}
