// SPDX-License-Identifier: EPL-2.0

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ik5/wavereel/envelope"
	"github.com/ik5/wavereel/fingerprint"
)

const (
	KeyPrefix    = "wavereel:waveform:"
	redisTimeout = 5 * time.Second
)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// TTL expires entries; zero keeps them forever.
	TTL time.Duration
}

// RedisCache shares envelopes between machines rendering the same episodes.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	schema uint16
	log    *zap.Logger
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	return client, nil
}

func NewRedisCache(client redis.UniversalClient, ttl time.Duration, schema uint16, log *zap.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		schema: schema,
		log:    nopIfNil(log),
	}
}

func (c *RedisCache) key(slot string) string { return KeyPrefix + slot }

func (c *RedisCache) Lookup(ctx context.Context, slot string, fp fingerprint.Fingerprint) (envelope.Envelope, bool) {
	raw, ok, err := c.Raw(ctx, slot)
	if err != nil {
		c.log.Warn("redis cache lookup failed", zap.String("slot", slot), zap.Error(err))
		return envelope.Envelope{}, false
	}
	if !ok {
		return envelope.Envelope{}, false
	}

	return decode(c.log, slot, raw, fp, c.schema)
}

func (c *RedisCache) Store(ctx context.Context, slot string, env envelope.Envelope) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	raw := envelope.Encode(env, c.schema)
	if err := c.client.Set(ctx, c.key(slot), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("store %s: %w", slot, err)
	}

	c.log.Debug("cache stored",
		zap.String("slot", slot),
		zap.Int("size", len(raw)),
		zap.Duration("ttl", c.ttl),
	)

	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, slot string) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	if err := c.client.Del(ctx, c.key(slot)).Err(); err != nil {
		return fmt.Errorf("invalidate %s: %w", slot, err)
	}

	return nil
}

func (c *RedisCache) Raw(ctx context.Context, slot string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, c.key(slot)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", slot, err)
	}

	return raw, true, nil
}
