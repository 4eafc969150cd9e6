package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces keys when Config.KeyPrefix is empty.
const DefaultKeyPrefix = "aibot"

// Redis stores short-lived JSON documents (dialog sessions, translations)
// under one key namespace.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
	prefix string
}

// Config defines connection parameters for Redis.
type Config struct {
	Addr      string
	Password  string
	DB        int
	UseTLS    bool
	KeyPrefix string
}

// New returns a Redis client based on provided configuration.
func New(cfg Config, logger *slog.Logger) *Redis {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	prefix := strings.Trim(cfg.KeyPrefix, ": ")
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	return &Redis{
		client: redis.NewClient(opts),
		logger: logger.With("component", "redis"),
		prefix: prefix,
	}
}

// Key joins parts under the configured prefix, e.g. "aibot:session:42".
func (r *Redis) Key(parts ...string) string {
	return r.prefix + ":" + strings.Join(parts, ":")
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// SetJSON stores value as JSON for ttl.
func (r *Redis) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("json marshal %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// GetJSON decodes the value at key into dest. It reports false when the key
// does not exist.
func (r *Redis) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	return r.decode(key, r.client.Get(ctx, key), dest)
}

// TouchJSON is GetJSON that also restarts the key's ttl, for sliding
// expiry of dialog state.
func (r *Redis) TouchJSON(ctx context.Context, key string, dest any, ttl time.Duration) (bool, error) {
	return r.decode(key, r.client.GetEx(ctx, key, ttl), dest)
}

func (r *Redis) decode(key string, cmd *redis.StringCmd, dest any) (bool, error) {
	raw, err := cmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("json unmarshal %s: %w", key, err)
	}
	return true, nil
}

// Delete removes keys; missing keys are ignored.
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases Redis resources.
func (r *Redis) Close() error {
	return r.client.Close()
}
