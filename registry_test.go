package kvpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type svcA struct{ id int }
type svcB struct{ id int }

// Two concurrent first-time GetOrCreate calls must yield the same instance
// and run the constructor exactly once.
func TestRegistryConcurrentFirstUse(t *testing.T) {
	r := NewRegistry()

	var built atomic.Int32
	const callers = 64

	results := make([]*svcA, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			v, err := GetOrCreate(r, func() (*svcA, error) {
				built.Add(1)
				return &svcA{id: i}, nil
			})
			if err != nil {
				t.Errorf("GetOrCreate: %v", err)
				return
			}
			results[i] = v
		}(i)
	}
	wg.Wait()

	if n := built.Load(); n != 1 {
		t.Fatalf("constructor ran %d times, want 1", n)
	}
	for i := 1; i < callers; i++ {
		if results[i] != results[0] {
			t.Fatalf("caller %d got a different instance", i)
		}
	}
}

// A later call's factory (and its captured arguments) is ignored once an
// instance exists. Surprising but load-bearing; keep it covered.
func TestRegistryLaterFactoryIgnored(t *testing.T) {
	r := NewRegistry()

	first, err := GetOrCreate(r, func() (*svcA, error) { return &svcA{id: 1}, nil })
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	second, err := GetOrCreate(r, func() (*svcA, error) { return &svcA{id: 2}, nil })
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if second != first || second.id != 1 {
		t.Fatalf("second call constructed a new instance: %+v", second)
	}
}

func TestRegistryDistinctTypes(t *testing.T) {
	r := NewRegistry()

	a, _ := GetOrCreate(r, func() (*svcA, error) { return &svcA{id: 1}, nil })
	b, _ := GetOrCreate(r, func() (*svcB, error) { return &svcB{id: 2}, nil })
	if a.id != 1 || b.id != 2 {
		t.Fatalf("types share a slot: a=%+v b=%+v", a, b)
	}
}

// The thread registry records the first outcome, errors included.
func TestRegistryCachesFirstError(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")

	if _, err := GetOrCreate(r, func() (*svcA, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	// Second factory would succeed, but the recorded outcome wins.
	if _, err := GetOrCreate(r, func() (*svcA, error) { return &svcA{}, nil }); !errors.Is(err, boom) {
		t.Fatalf("error not cached: %v", err)
	}
}

func TestCtxRegistryConcurrentFirstUse(t *testing.T) {
	r := NewCtxRegistry()
	ctx := context.Background()

	var built atomic.Int32
	const callers = 64

	results := make([]*svcA, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			v, err := GetOrCreateCtx(ctx, r, func(context.Context) (*svcA, error) {
				built.Add(1)
				time.Sleep(time.Millisecond) // widen the construction window
				return &svcA{id: i}, nil
			})
			if err != nil {
				t.Errorf("GetOrCreateCtx: %v", err)
				return
			}
			results[i] = v
		}(i)
	}
	wg.Wait()

	if n := built.Load(); n != 1 {
		t.Fatalf("constructor ran %d times, want 1", n)
	}
	for i := 1; i < callers; i++ {
		if results[i] != results[0] {
			t.Fatalf("caller %d got a different instance", i)
		}
	}
}

func TestCtxRegistryCancelledWaiter(t *testing.T) {
	r := NewCtxRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := GetOrCreateCtx(ctx, r, func(context.Context) (*svcA, error) {
		t.Fatal("factory must not run for a cancelled caller")
		return nil, nil
	}); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

// A failed construction leaves the slot empty; the next caller retries.
func TestCtxRegistryErrorDoesNotPoison(t *testing.T) {
	r := NewCtxRegistry()
	ctx := context.Background()
	boom := errors.New("dial failed")

	if _, err := GetOrCreateCtx(ctx, r, func(context.Context) (*svcA, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("want dial error, got %v", err)
	}
	v, err := GetOrCreateCtx(ctx, r, func(context.Context) (*svcA, error) { return &svcA{id: 7}, nil })
	if err != nil || v.id != 7 {
		t.Fatalf("retry after failure: v=%+v err=%v", v, err)
	}
}
