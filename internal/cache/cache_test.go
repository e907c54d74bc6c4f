package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(4)

	_, ok := m.Get(ctx, "a")
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "a", []byte("1")))
	v, ok := m.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, m.Set(ctx, "a", []byte("2")))
	v, _ = m.Get(ctx, "a")
	assert.Equal(t, []byte("2"), v)
	assert.Equal(t, 1, m.Len())
}

func TestMemoryEvictsOldest(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)
	require.NoError(t, m.Set(ctx, "a", []byte("1")))
	require.NoError(t, m.Set(ctx, "b", []byte("2")))
	require.NoError(t, m.Set(ctx, "c", []byte("3")))

	_, ok := m.Get(ctx, "a")
	assert.False(t, ok)
	_, ok = m.Get(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, 2, m.Len())
}

func TestMemoryDisabled(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)
	require.NoError(t, m.Set(ctx, "a", []byte("1")))
	_, ok := m.Get(ctx, "a")
	assert.False(t, ok)
}

func TestMemoryConcurrentUse(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (n+j)%32)
				_ = m.Set(ctx, key, []byte(key))
				m.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, m.Len(), 16)
}
