package kvpool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/unkn0wn-root/kvpool/codec"
)

type fakeSetter struct {
	writes map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newFakeSetter() *fakeSetter {
	return &fakeSetter{writes: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeSetter) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.writes[key] = value
	f.ttls[key] = ttl
	return nil
}

type fakeLocal struct {
	writes map[string][]byte
}

func (f *fakeLocal) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (f *fakeLocal) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.writes[key] = value
	return nil
}
func (f *fakeLocal) Del(context.Context, string) error { return nil }
func (f *fakeLocal) Close(context.Context) error       { return nil }

// Every call recomputes, then overwrites the stored copy: r1 then r2, with
// the store reflecting the most recent result after each call. Write-through,
// never read-through.
func TestMemoizeWriteThrough(t *testing.T) {
	ctx := context.Background()
	store := newFakeSetter()

	calls := 0
	fn := func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "r1", nil
		}
		return "r2", nil
	}

	m := Memoizer[string]{Store: store, Codec: codec.String{}, TTL: time.Minute}
	wrapped := m.Wrap("fixed-key", fn)

	v, err := wrapped(ctx)
	if err != nil || v != "r1" {
		t.Fatalf("first call: v=%q err=%v", v, err)
	}
	if store.writes["fixed-key"] != "r1" {
		t.Fatalf("store holds %q after first call", store.writes["fixed-key"])
	}

	v, err = wrapped(ctx)
	if err != nil || v != "r2" {
		t.Fatalf("second call: v=%q err=%v", v, err)
	}
	if store.writes["fixed-key"] != "r2" {
		t.Fatalf("store holds %q after second call, want r2", store.writes["fixed-key"])
	}
	if calls != 2 {
		t.Fatalf("wrapped operation ran %d times, want 2 (must recompute every call)", calls)
	}
	if store.ttls["fixed-key"] != time.Minute {
		t.Fatalf("ttl not forwarded: %v", store.ttls["fixed-key"])
	}
}

func TestMemoizeKeyedAndEncoded(t *testing.T) {
	ctx := context.Background()
	store := newFakeSetter()

	type report struct {
		N int `json:"n"`
	}
	m := Memoizer[report]{Store: store, Codec: codec.JSON[report]{}}

	wrapped := m.WrapKeyed(
		func(context.Context) string { return "report:7" },
		func(context.Context) (report, error) { return report{N: 7}, nil },
	)
	if _, err := wrapped(ctx); err != nil {
		t.Fatalf("wrapped: %v", err)
	}
	if got := store.writes["report:7"]; got != `{"n":7}` {
		t.Fatalf("encoded payload %q", got)
	}
}

// The wrapped operation's own failure skips the store write.
func TestMemoizeComputeError(t *testing.T) {
	store := newFakeSetter()
	boom := errors.New("boom")

	m := Memoizer[string]{Store: store, Codec: codec.String{}}
	wrapped := m.Wrap("k", func(context.Context) (string, error) { return "", boom })

	if _, err := wrapped(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("want compute error, got %v", err)
	}
	if len(store.writes) != 0 {
		t.Fatalf("store written despite compute failure: %v", store.writes)
	}
}

// A store failure surfaces, but the computed value is still returned.
func TestMemoizeStoreErrorKeepsValue(t *testing.T) {
	boom := errors.New("conn reset")
	store := newFakeSetter()
	store.err = boom

	m := Memoizer[string]{Store: store, Codec: codec.String{}}
	wrapped := m.Wrap("k", func(context.Context) (string, error) { return "computed", nil })

	v, err := wrapped(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("want store error, got %v", err)
	}
	if v != "computed" {
		t.Fatalf("computed value lost: %q", v)
	}
}

func TestMemoizeLocalWriteThrough(t *testing.T) {
	store := newFakeSetter()
	near := &fakeLocal{writes: map[string][]byte{}}

	m := Memoizer[string]{Store: store, Codec: codec.String{}, Local: near}
	wrapped := m.Wrap("k", func(context.Context) (string, error) { return "v", nil })

	if _, err := wrapped(context.Background()); err != nil {
		t.Fatalf("wrapped: %v", err)
	}
	if string(near.writes["k"]) != "v" {
		t.Fatalf("near cache not written: %v", near.writes)
	}
}
