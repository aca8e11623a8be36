package kvpool

import (
	"reflect"
	"sync"
)

type slot struct {
	once  sync.Once
	value any
	err   error
}

// Registry hands out at most one value per concrete type for the lifetime of
// the process. Lookups are double-checked: a read lock on the fast path, a
// write lock plus re-check only when the slot does not exist yet.
type Registry struct {
	mu    sync.RWMutex
	slots map[reflect.Type]*slot
}

func NewRegistry() *Registry {
	return &Registry{slots: make(map[reflect.Type]*slot)}
}

func (r *Registry) slot(t reflect.Type) *slot {
	r.mu.RLock()
	s, ok := r.slots[t]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.slots[t]; ok {
		return s
	}
	s = &slot{}
	r.slots[t] = s
	return s
}

// GetOrCreate returns the unique T held by r, constructing it on the first
// call. The factory runs exactly once per type, even under concurrent first
// use; every later call returns the first outcome (value or error) and its
// own factory is ignored. Callers must not expect later factories — or later
// factory arguments — to have any effect.
func GetOrCreate[T any](r *Registry, factory func() (T, error)) (T, error) {
	s := r.slot(typeOf[T]())
	s.once.Do(func() {
		s.value, s.err = factory()
	})
	v, _ := s.value.(T)
	return v, s.err
}

// typeOf resolves the type identity of T without requiring a value,
// including interface types.
func typeOf[T any]() reflect.Type {
	var zero [0]T
	return reflect.TypeOf(zero).Elem()
}
