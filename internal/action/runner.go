package action

import "context"

// Future is the pending result of an ExecuteAsync dispatch.
type Future struct {
	done  chan struct{}
	value any
	err   error
}

// Wait blocks until the dispatch completes or ctx is cancelled.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Runner bridges async and synchronous (thread-blocking) action
// invocation for code emitted by the code generator.
type Runner struct {
	registry *Registry
}

// NewRunner binds a runner to a registry.
func NewRunner(registry *Registry) *Runner {
	return &Runner{registry: registry}
}

// ExecuteAsync canonicalizes verb and dispatches it on a detached
// goroutine, returning a Future immediately. Resolution fails with
// unknown-action if no handler is bound, or invalid-preposition if the
// handler doesn't accept object's preposition.
func (r *Runner) ExecuteAsync(rctx *RuntimeContext, verb string, result ResultDescriptor, object ObjectDescriptor) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = r.dispatch(rctx, verb, result, object)
	}()
	return f
}

func (r *Runner) dispatch(rctx *RuntimeContext, verb string, result ResultDescriptor, object ObjectDescriptor) (any, error) {
	h, ok := r.registry.Lookup(verb)
	if !ok {
		return nil, unknownActionError(verb)
	}
	if valid := h.ValidPrepositions(); len(valid) > 0 && !valid[object.Preposition] {
		return nil, invalidPrepositionError(verb, object.Preposition)
	}
	return h.Execute(rctx, result, object)
}

// ExecuteSync schedules verb on a detached task and blocks on its
// completion signal, implementing the yield-while-blocked discipline:
// if the calling goroutine holds a compiled-execution
// slot, the slot is released before waiting and reacquired after, so a
// cascading event chain triggered by the handler cannot deadlock the
// pool against itself.
func (r *Runner) ExecuteSync(ctx context.Context, slot *Slot, rctx *RuntimeContext, verb string, result ResultDescriptor, object ObjectDescriptor) (any, error) {
	future := r.ExecuteAsync(rctx, verb, result, object)

	if slot == nil {
		return future.Wait(ctx)
	}

	var value any
	var err error
	if yieldErr := slot.Yield(ctx, func() {
		value, err = future.Wait(ctx)
	}); yieldErr != nil {
		return nil, yieldErr
	}
	return value, err
}
