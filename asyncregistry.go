package kvpool

import (
	"context"
	"reflect"
	"sync"

	"golang.org/x/sync/semaphore"
)

type ctxSlot struct {
	value any
	err   error
}

// CtxRegistry is the singleton registry for construction paths that may
// suspend (dial a server, wait on IO). Unlike Registry, a caller blocked on
// the construction lock honors context cancellation instead of parking
// unconditionally, so two concurrent first uses cannot both construct and a
// cancelled waiter gets its context error back promptly.
type CtxRegistry struct {
	sem   *semaphore.Weighted
	mu    sync.RWMutex
	slots map[reflect.Type]*ctxSlot
}

func NewCtxRegistry() *CtxRegistry {
	return &CtxRegistry{
		sem:   semaphore.NewWeighted(1),
		slots: make(map[reflect.Type]*ctxSlot),
	}
}

func (r *CtxRegistry) lookup(t reflect.Type) (*ctxSlot, bool) {
	r.mu.RLock()
	s, ok := r.slots[t]
	r.mu.RUnlock()
	return s, ok
}

// GetOrCreateCtx returns the unique T held by r, constructing it under the
// registry lock on first use. The check-construct-publish sequence is
// serialized, so the factory runs at most once per type no matter how many
// goroutines race on the first call; later calls return the stored value and
// ignore their own factory.
//
// A factory error (including cancellation mid-construction) is returned to
// the caller but not recorded: the slot stays empty and the next caller
// constructs again. Cancellation is caller-local and must not poison the
// type for the rest of the process.
func GetOrCreateCtx[T any](ctx context.Context, r *CtxRegistry, factory func(context.Context) (T, error)) (T, error) {
	t := typeOf[T]()
	if s, ok := r.lookup(t); ok {
		v, _ := s.value.(T)
		return v, s.err
	}

	var zero T
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}
	defer r.sem.Release(1)

	// Another caller may have finished constructing while we waited.
	if s, ok := r.lookup(t); ok {
		v, _ := s.value.(T)
		return v, s.err
	}

	v, err := factory(ctx)
	if err != nil {
		return zero, err
	}

	r.mu.Lock()
	r.slots[t] = &ctxSlot{value: v}
	r.mu.Unlock()
	return v, nil
}
