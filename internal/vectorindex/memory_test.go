package vectorindex

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndex(t *testing.T) {
	runIndexContract(t, func(t *testing.T, batchSize int) vectorIndex {
		return NewMemory(batchSize)
	})
}

func TestMemoryDimension(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory(0)

	_, ok := idx.Dimension()
	assert.False(t, ok)

	require.NoError(t, idx.Upsert(ctx, makeRecords("a", 1, unit3)))
	dim, ok := idx.Dimension()
	assert.True(t, ok)
	assert.Equal(t, 3, dim)

	require.NoError(t, idx.Clear(ctx))
	_, ok = idx.Dimension()
	assert.False(t, ok)
}

func TestMemoryConcurrentIngestion(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory(10)

	var wg sync.WaitGroup
	for _, source := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(source string) {
			defer wg.Done()
			assert.NoError(t, idx.Upsert(ctx, makeRecords(source, 25, unit3)))
		}(source)
	}
	wg.Wait()

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
}
