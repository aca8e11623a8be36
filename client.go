package kvpool

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the connection parameters for the blocking client. Responses
// always decode to text; the client never hands out raw bytes.
type Config struct {
	Host     string
	Port     int
	Username string // optional
	Password string // optional
	DB       int    // database index, >= 0
}

func (c Config) addr() string {
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

// Client is the strict initialize-once variant: the process owns exactly one
// client, created by Initialize and reached through Instance. Unlike Service,
// a second Initialize while a client is live is a hard error rather than a
// replacement.
type Client struct {
	rdb *redis.Client
}

var (
	clientMu sync.Mutex
	client   *Client
)

// Initialize creates the process-wide blocking client. It fails with
// ErrAlreadyInitialized if a live client exists. After a successful Close the
// state reverts to "no client" and Initialize is permitted again.
func Initialize(cfg Config) (*Client, error) {
	clientMu.Lock()
	defer clientMu.Unlock()

	if client != nil {
		return nil, ErrAlreadyInitialized
	}
	client = &Client{
		rdb: redis.NewClient(&redis.Options{
			Addr:     cfg.addr(),
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
	return client, nil
}

// Instance returns the client created by Initialize, or ErrNotInitialized if
// Initialize has not succeeded yet.
func Instance() (*Client, error) {
	clientMu.Lock()
	defer clientMu.Unlock()

	if client == nil {
		return nil, ErrNotInitialized
	}
	return client, nil
}

// Set writes a string value, overwriting any previous value for the key.
// ttl <= 0 means no expiry.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Get returns the value for key. A missing key is (_, false, nil), not an
// error; any other failure comes from the underlying client unmodified.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Ping verifies connectivity with the backing store.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the pool and resets the process-wide state so Initialize may
// be called again. Closing an already-closed client is a no-op. Operations on
// a closed client surface the underlying client's own closed-connection
// error, unmodified like any other transport failure.
func (c *Client) Close() error {
	clientMu.Lock()
	defer clientMu.Unlock()

	if client != c {
		return nil
	}
	client = nil
	return c.rdb.Close()
}
