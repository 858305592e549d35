// Package gopool runs short lived tasks on bounded goroutine pools.
package gopool

import (
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

const (
	expiry           = 10 * time.Second
	minNumberPerTask = 5
)

// Init a instance pool when importing ants.
var defaultPool = mustPool(ants.DefaultAntsPoolSize)

// Pool is a bounded set of reusable workers.
type Pool struct {
	p *ants.Pool
}

// NewPool creates a pool running at most size tasks at once.
func NewPool(size int) (*Pool, error) {
	p, err := ants.NewPool(size, ants.WithExpiryDuration(expiry))
	if err != nil {
		return nil, err
	}
	return &Pool{p: p}, nil
}

func mustPool(size int) *Pool {
	p, err := NewPool(size)
	if err != nil {
		panic(err)
	}
	return p
}

// Default returns the process wide pool.
func Default() *Pool { return defaultPool }

// Submit submits a task to the pool.
func (p *Pool) Submit(task func()) error { return p.p.Submit(task) }

// Running returns the number of the currently running goroutines.
func (p *Pool) Running() int { return p.p.Running() }

// Cap returns the capacity of the pool.
func (p *Pool) Cap() int { return p.p.Cap() }

// Release closes the pool. Queued tasks still run.
func (p *Pool) Release() { p.p.Release() }

// ForEach runs fn(0) .. fn(n-1) on the pool and waits for all of them. If a
// task cannot be submitted the ones already running are awaited and the
// error is returned.
func (p *Pool) ForEach(n int, fn func(i int)) error {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		index := i
		wg.Add(1)
		if err := p.p.Submit(func() {
			defer wg.Done()
			fn(index)
		}); err != nil {
			wg.Done()
			wg.Wait()
			return err
		}
	}
	wg.Wait()
	return nil
}

// Submit submits a task to the default pool.
func Submit(task func()) error {
	return defaultPool.Submit(task)
}

// Threads returns how many workers are worth starting for tasks items.
func Threads(tasks int) int {
	threads := tasks / minNumberPerTask
	if threads > runtime.NumCPU() {
		threads = runtime.NumCPU()
	} else if threads == 0 {
		threads = 1
	}
	return threads
}
