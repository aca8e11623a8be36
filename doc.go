// Package kvpool implements a pooled, lazily-initialized, singleton-scoped
// key-value client over Redis. Exactly one live connection pool exists per
// process for a given variant; first use is safe under concurrent
// initialization from many goroutines.
//
// Components:
//   - Registry / CtxRegistry: at most one instance per concrete type,
//     double-checked locking. CtxRegistry waits for the construction lock
//     with the caller's context, so a blocked waiter stays cancellable.
//   - Client: strict initialize-once blocking variant. A second Initialize
//     fails with ErrAlreadyInitialized; Instance before Initialize fails
//     with ErrNotInitialized.
//   - Service: reconfigurable pooled variant with batch operations (MGet,
//     MSet), pattern scans, pipelining, scoped acquisition and a
//     write-through memoizer. Reconfiguring closes the previous pool before
//     installing the new one.
//
// Lifecycle errors are the only errors this package raises itself; every
// transport failure from the underlying pooled client propagates unmodified.
//
// Write-through memoization:
//
//	memo := kvpool.Memoizer[Report]{Store: svc, Codec: codec.JSON[Report]{}, TTL: time.Minute}
//	build := memo.Wrap("report:daily", computeReport)
//	r, err := build(ctx) // recomputes every call, then overwrites the cached copy
package kvpool
