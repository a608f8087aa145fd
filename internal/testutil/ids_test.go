package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialIDs_Sequence(t *testing.T) {
	gen := NewSequentialIDs("inn")

	assert.Equal(t, "inn-0001", gen.Generate())
	assert.Equal(t, "inn-0002", gen.Generate())
	assert.Equal(t, int64(2), gen.Count())
}

func TestSequentialIDs_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "doc-0001", NewSequentialIDs("").Generate())
}

func TestSequentialIDs_Reset(t *testing.T) {
	gen := NewSequentialIDs("inn")
	gen.Generate()
	gen.Generate()

	gen.Reset()
	assert.Equal(t, int64(0), gen.Count())
	assert.Equal(t, "inn-0001", gen.Generate())
}

func TestSequentialIDs_ThreadSafe(t *testing.T) {
	gen := NewSequentialIDs("inn")
	const numGoroutines = 50
	const callsPerGoroutine = 20

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make([][]string, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		results[i] = make([]string, callsPerGoroutine)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				results[idx][j] = gen.Generate()
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, ids := range results {
		for _, id := range ids {
			require.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}
	}
	assert.Len(t, seen, numGoroutines*callsPerGoroutine)
	assert.True(t, seen["inn-1000"])
}

func TestFixedIDs(t *testing.T) {
	gen := NewFixedIDs("a1", "b2")

	assert.Equal(t, "a1", gen.Generate())
	assert.Equal(t, "b2", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}
