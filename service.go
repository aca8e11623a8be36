package kvpool

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/semaphore"
)

// PoolConfig holds the connection-pool parameters for Service. The zero value
// of Host/Port falls back to localhost:6379; PoolSize falls back to 100.
// Responses always decode to text.
type PoolConfig struct {
	Host     string
	Port     int
	DB       int
	Username string // optional
	Password string // optional

	// PoolSize bounds the number of pooled connections.
	PoolSize int

	// Transport options, forwarded to the pool verbatim. Zero values keep
	// the pool's own defaults.
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c PoolConfig) addr() string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 6379
	}
	return host + ":" + strconv.Itoa(port)
}

// Options tune a Service. All fields are optional.
type Options struct {
	Logger Logger // nil => NopLogger
}

// Service is the reconfigurable pooled variant. The pool reference is only
// mutated (configured, replaced, torn down) while holding an internal lock
// whose wait is context-aware; operations against an established pool need no
// extra locking because pooled connections are checked out per command.
//
// The zero value is not ready; use NewService. A Service with no configured
// pool returns ErrNotInitialized from every operation.
type Service struct {
	log Logger

	// cfgSem serializes ConfigurePool and Close. Held only for the duration
	// of pool construction or teardown, never across operations.
	cfgSem *semaphore.Weighted
	conn   atomic.Pointer[redis.Client]
}

func NewService(opts Options) *Service {
	return &Service{
		log:    coalesce[Logger](opts.Logger, NopLogger{}),
		cfgSem: semaphore.NewWeighted(1),
	}
}

// ConfigurePool builds the pool and its bound client under the internal lock.
// Configuring an already-configured service closes the previous client first,
// so no pool is leaked by reconfiguration; in-flight operations on the old
// pool observe its closed-connection error. Contrast with the blocking
// Client, where a second Initialize is a hard error.
func (s *Service) ConfigurePool(ctx context.Context, cfg PoolConfig) error {
	if err := s.cfgSem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.cfgSem.Release(1)

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 100
	}
	next := redis.NewClient(&redis.Options{
		Addr:         cfg.addr(),
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     poolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if prev := s.conn.Swap(next); prev != nil {
		s.log.Debug("pool replaced, closing previous client", Fields{"addr": cfg.addr()})
		if err := prev.Close(); err != nil {
			s.log.Warn("closing replaced pool", Fields{"err": err})
		}
	} else {
		s.log.Debug("pool configured", Fields{"addr": cfg.addr(), "db": cfg.DB, "pool_size": poolSize})
	}
	return nil
}

// Conn returns the active client handle, or ErrNotInitialized when no pool
// has been configured (or the service was closed).
func (s *Service) Conn() (*redis.Client, error) {
	if c := s.conn.Load(); c != nil {
		return c, nil
	}
	return nil, ErrNotInitialized
}

// Get returns the value for key; a missing key is (_, false, nil).
func (s *Service) Get(ctx context.Context, key string) (string, bool, error) {
	c, err := s.Conn()
	if err != nil {
		return "", false, err
	}
	v, err := c.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set writes a string value, overwriting any previous value. ttl <= 0 means
// no expiry.
func (s *Service) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c, err := s.Conn()
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	return c.Set(ctx, key, value, ttl).Err()
}

// MGet fetches many keys in one round trip. The result is positionally
// aligned with keys; a missing key yields a nil slot at its position, not an
// error. An empty key list returns an empty result without a round trip.
func (s *Service) MGet(ctx context.Context, keys ...string) ([]*string, error) {
	c, err := s.Conn()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []*string{}, nil
	}
	vals, err := c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*string, len(vals))
	for i, v := range vals {
		switch vv := v.(type) {
		case nil:
			// absent key; leave the slot nil
		case string:
			out[i] = &vv
		case []byte:
			str := string(vv)
			out[i] = &str
		default:
			str := fmt.Sprint(vv)
			out[i] = &str
		}
	}
	return out, nil
}

// MSet writes many key-value pairs in one round trip. An empty mapping is a
// no-op without a round trip.
func (s *Service) MSet(ctx context.Context, mapping map[string]string) error {
	c, err := s.Conn()
	if err != nil {
		return err
	}
	if len(mapping) == 0 {
		return nil
	}
	args := make([]any, 0, 2*len(mapping))
	for k, v := range mapping {
		args = append(args, k, v)
	}
	return c.MSet(ctx, args...).Err()
}

// GetByPattern lists all keys matching the glob pattern and batch-fetches
// their values, zipping key list and fetch result in matching order. When no
// key matches it returns an empty map without issuing the batch fetch. A key
// deleted between the scan and the fetch is omitted from the result.
func (s *Service) GetByPattern(ctx context.Context, pattern string) (map[string]string, error) {
	keys, err := s.Keys(ctx, pattern)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return map[string]string{}, nil
	}
	vals, err := s.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	for i, k := range keys {
		if vals[i] != nil {
			out[k] = *vals[i]
		}
	}
	return out, nil
}

// Delete removes key and returns the number of keys removed (0 or 1).
func (s *Service) Delete(ctx context.Context, key string) (int64, error) {
	c, err := s.Conn()
	if err != nil {
		return 0, err
	}
	return c.Del(ctx, key).Result()
}

// Exists reports whether key exists. The existence count must equal exactly
// 1; any other count reads as false. This strict contract is deliberate — do
// not loosen it to count > 0.
func (s *Service) Exists(ctx context.Context, key string) (bool, error) {
	c, err := s.Conn()
	if err != nil {
		return false, err
	}
	n, err := c.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Keys lists all keys matching the glob pattern. An empty pattern matches
// everything.
func (s *Service) Keys(ctx context.Context, pattern string) ([]string, error) {
	c, err := s.Conn()
	if err != nil {
		return nil, err
	}
	if pattern == "" {
		pattern = "*"
	}
	return c.Keys(ctx, pattern).Result()
}

// FlushDB irrecoverably deletes every key in the selected database. There is
// no confirmation step; guard this at a higher layer.
func (s *Service) FlushDB(ctx context.Context) error {
	c, err := s.Conn()
	if err != nil {
		return err
	}
	return c.FlushDB(ctx).Err()
}

// Pipeline returns a batch-command builder bound to the current client.
// Queued commands are not sent until Exec, which returns one result per
// command in queued order.
func (s *Service) Pipeline() (redis.Pipeliner, error) {
	c, err := s.Conn()
	if err != nil {
		return nil, err
	}
	return c.Pipeline(), nil
}

// Ping verifies connectivity with the backing store.
func (s *Service) Ping(ctx context.Context) error {
	c, err := s.Conn()
	if err != nil {
		return err
	}
	return c.Ping(ctx).Err()
}

// Close tears down the bound client and pool under the internal lock and
// clears the reference, so a later ConfigurePool starts clean. Closing an
// unconfigured (or already closed) service is a no-op.
func (s *Service) Close(ctx context.Context) error {
	if err := s.cfgSem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.cfgSem.Release(1)

	prev := s.conn.Swap(nil)
	if prev == nil {
		return nil
	}
	s.log.Debug("pool closed", nil)
	return prev.Close()
}

// Scoped bounds the pool's lifetime to fn: Close runs on every exit path,
// including early returns and panics unwinding through fn. The teardown uses
// a detached context so a cancelled caller still releases the pool. fn's
// error wins over the teardown error.
func (s *Service) Scoped(ctx context.Context, fn func(context.Context, *Service) error) (err error) {
	defer func() {
		cerr := s.Close(context.WithoutCancel(ctx))
		if err == nil {
			err = cerr
		}
	}()
	err = fn(ctx, s)
	return err
}
