package gopool

import (
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEach(t *testing.T) {
	pool, err := NewPool(4)
	require.NoError(t, err)
	defer pool.Release()

	var (
		sum  atomic.Int64
		seen = make([]bool, 100)
	)
	require.NoError(t, pool.ForEach(len(seen), func(i int) {
		sum.Add(int64(i))
		seen[i] = true
	}))
	assert.Equal(t, int64(99*100/2), sum.Load())
	for i, ok := range seen {
		assert.True(t, ok, "task %d did not run", i)
	}
}

func TestForEachReleased(t *testing.T) {
	pool, err := NewPool(1)
	require.NoError(t, err)
	pool.Release()
	assert.Error(t, pool.ForEach(3, func(int) {}))
}

func TestThreads(t *testing.T) {
	assert.Equal(t, 1, Threads(0))
	assert.Equal(t, 1, Threads(minNumberPerTask))
	assert.Equal(t, runtime.NumCPU(), Threads(minNumberPerTask*runtime.NumCPU()*4))
}
