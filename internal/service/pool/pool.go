// Package pool provides a bounded pool of per-request leases.
//
// The HTTP adapter takes one lease before invoking a controller and returns
// it when the controller finishes, whatever the outcome. Sizing the pool to
// the store's connection limit keeps queued requests waiting here, under
// their own deadline, rather than inside the driver.
package pool

import (
	"context"
	"sync"
)

// MaxSize caps the number of slots.
const MaxSize = 128

// Pool limits concurrent leases.
type Pool struct {
	sem chan struct{}
}

// New creates a pool with at least one slot
// and at most MaxSize slots.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	if size > MaxSize {
		size = MaxSize
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Lease is one acquired slot.
type Lease struct {
	once sync.Once
	pool *Pool
}

// Acquire reserves one slot in the pool.
// If the pool is full, it blocks until a slot becomes available
// or the context is canceled, in which case it returns ctx.Err().
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	select {
	case p.sem <- struct{}{}:
		return &Lease{pool: p}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns the slot. Calling it more than once is a no-op.
func (l *Lease) Release() {
	if l == nil {
		return
	}
	l.once.Do(func() { <-l.pool.sem })
}

// InUse returns the number of outstanding leases.
func (p *Pool) InUse() int { return len(p.sem) }

// Cap returns the number of slots.
func (p *Pool) Cap() int { return cap(p.sem) }
