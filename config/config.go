// Package config loads connection-pool settings from the environment. The
// configuration object is constructed explicitly at process start and passed
// on; nothing here is a hidden global or reinitializes itself.
package config

import (
	"strconv"
	"time"

	"github.com/caarlos0/env/v7"

	"github.com/unkn0wn-root/kvpool"
)

// Pool mirrors the backing store's connection surface.
type Pool struct {
	Host         string `env:"KV_HOST"          envDefault:"localhost"`
	Port         int    `env:"KV_PORT"          envDefault:"6379"`
	Username     string `env:"KV_USERNAME"`
	Password     string `env:"KV_PASSWORD"`
	DB           int    `env:"KV_DB"            envDefault:"0"`
	PoolSize     int    `env:"KV_POOL_SIZE"     envDefault:"100"`
	DialTimeout  int    `env:"KV_DIAL_TIMEOUT"  envDefault:"0"` // seconds; 0 keeps the pool default
	ReadTimeout  int    `env:"KV_READ_TIMEOUT"  envDefault:"0"` // seconds
	WriteTimeout int    `env:"KV_WRITE_TIMEOUT" envDefault:"0"` // seconds
}

// Load parses a Pool from the environment. A non-empty prefix is prepended to
// every key, e.g. Load("SESSIONS_") reads SESSIONS_KV_HOST.
func Load(prefix string) (Pool, error) {
	var p Pool
	if err := env.Parse(&p, env.Options{Prefix: prefix}); err != nil {
		return Pool{}, err
	}
	return p, nil
}

// Addr returns host:port.
func (p Pool) Addr() string {
	return p.Host + ":" + strconv.Itoa(p.Port)
}

// PoolConfig converts to the service's configuration type.
func (p Pool) PoolConfig() kvpool.PoolConfig {
	return kvpool.PoolConfig{
		Host:         p.Host,
		Port:         p.Port,
		DB:           p.DB,
		Username:     p.Username,
		Password:     p.Password,
		PoolSize:     p.PoolSize,
		DialTimeout:  secs(p.DialTimeout),
		ReadTimeout:  secs(p.ReadTimeout),
		WriteTimeout: secs(p.WriteTimeout),
	}
}

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

// ClientConfig converts to the blocking client's configuration type.
func (p Pool) ClientConfig() kvpool.Config {
	return kvpool.Config{
		Host:     p.Host,
		Port:     p.Port,
		Username: p.Username,
		Password: p.Password,
		DB:       p.DB,
	}
}
