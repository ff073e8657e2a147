package action

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool is the compiled-execution pool: a single
// process-wide counting semaphore with capacity 4×cores that every
// compiled handler must hold a slot from before invoking a blocking
// action. It is deliberately a thin wrapper over semaphore.Weighted —
// the yield-while-blocked discipline that matters lives in Runner, which
// releases and re-acquires a slot around a wait rather than holding it.
type Pool struct {
	sem      *semaphore.Weighted
	capacity int64
}

// defaultCapacity is 4 × number-of-cores.
func defaultCapacity() int64 {
	return int64(4 * runtime.NumCPU())
}

// NewPool builds the compiled-execution pool at its default capacity.
func NewPool() *Pool {
	cap := defaultCapacity()
	return &Pool{sem: semaphore.NewWeighted(cap), capacity: cap}
}

// Capacity returns the pool's total permit count.
func (p *Pool) Capacity() int64 {
	return p.capacity
}

// Acquire blocks until a compiled-execution slot is available or ctx is
// cancelled.
func (p *Pool) Acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

// Release returns a previously acquired slot.
func (p *Pool) Release() {
	p.sem.Release(1)
}

// Slot is a held compiled-execution permit. It exists as a value a
// compiled handler carries so Runner.ExecuteSync can release it for the
// duration of a blocking wait and reacquire it afterward (the
// yield-while-blocked discipline), without every call site needing to
// know the pool's internals.
type Slot struct {
	pool *Pool
	held bool
}

// AcquireSlot blocks until a slot is free, then returns it held.
func (p *Pool) AcquireSlot(ctx context.Context) (*Slot, error) {
	if err := p.Acquire(ctx); err != nil {
		return nil, err
	}
	return &Slot{pool: p, held: true}, nil
}

// Yield releases the slot for the duration of fn, then reacquires it
// before returning — the yield-while-blocked discipline this pool
// mandates so a cascading emit chain can make progress without
// exhausting the pool.
func (s *Slot) Yield(ctx context.Context, fn func()) error {
	if s.held {
		s.pool.Release()
		s.held = false
	}
	fn()
	if err := s.pool.Acquire(ctx); err != nil {
		return err
	}
	s.held = true
	return nil
}

// Release gives back the slot if still held. Safe to call more than once.
func (s *Slot) Release() {
	if s.held {
		s.pool.Release()
		s.held = false
	}
}
