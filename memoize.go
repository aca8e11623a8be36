package kvpool

import (
	"context"
	"time"

	"github.com/unkn0wn-root/kvpool/codec"
	"github.com/unkn0wn-root/kvpool/local"
)

// Fn is a deferred computation whose result can be memoized.
type Fn[V any] func(context.Context) (V, error)

// Setter is the slice of the pooled service the memoizer writes through.
// *Service and *Client both satisfy it.
type Setter interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Memoizer wraps computations with write-through caching: every invocation
// recomputes, then overwrites the stored copy under the chosen key. A value
// already present under the key is never consulted — this is deliberately not
// read-through caching, and upgrading it would change observable behavior.
//
// Store and Codec are required. TTL <= 0 stores without expiry. Local, when
// set, receives a best-effort second copy of the encoded value (a near cache
// for readers that want to skip the network hop).
type Memoizer[V any] struct {
	Store Setter
	Codec codec.Codec[V]
	TTL   time.Duration
	Local local.Store
}

// Wrap memoizes fn under the fixed key.
func (m Memoizer[V]) Wrap(key string, fn Fn[V]) Fn[V] {
	return m.WrapKeyed(func(context.Context) string { return key }, fn)
}

// WrapKeyed memoizes fn under a per-call key derived by keyFn. The returned
// function has the same signature as fn: it runs the computation, stores the
// encoded result, and hands the original result back unchanged. When the
// store write fails, the computed value is still returned alongside the
// error, so callers keep the computation.
func (m Memoizer[V]) WrapKeyed(keyFn func(context.Context) string, fn Fn[V]) Fn[V] {
	return func(ctx context.Context) (V, error) {
		v, err := fn(ctx)
		if err != nil {
			return v, err
		}
		raw, err := m.Codec.Encode(v)
		if err != nil {
			return v, err
		}
		key := keyFn(ctx)
		if err := m.Store.Set(ctx, key, string(raw), m.TTL); err != nil {
			return v, err
		}
		if m.Local != nil {
			// best effort; the remote copy is authoritative
			_ = m.Local.Set(ctx, key, raw, m.TTL)
		}
		return v, nil
	}
}
