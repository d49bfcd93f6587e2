/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package locks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// releaseScript deletes the key only if this holder still owns it.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// RedisConfig contains Redis lock configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	KeyPrefix     string
	LeaseDuration time.Duration // Lock expires after this even if never released
	Wait          time.Duration // Upper bound on how long Lock blocks
	RetryInterval time.Duration
}

// DefaultRedisConfig returns default lock configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:          "localhost:6379",
		KeyPrefix:     "trendycart:lock:",
		LeaseDuration: 10 * time.Second,
		Wait:          DefaultWait,
		RetryInterval: 25 * time.Millisecond,
	}
}

// RedisLocker implements Locker with SET NX PX leases.
type RedisLocker struct {
	client *redis.Client
	config RedisConfig
	logger zerolog.Logger
}

// NewRedisLocker connects to Redis and verifies the connection.
func NewRedisLocker(cfg RedisConfig, logger zerolog.Logger) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisLockerWithClient(client, cfg, logger), nil
}

// NewRedisLockerWithClient wraps an existing client.
func NewRedisLockerWithClient(client *redis.Client, cfg RedisConfig, logger zerolog.Logger) *RedisLocker {
	def := DefaultRedisConfig()
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = def.KeyPrefix
	}
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = def.LeaseDuration
	}
	if cfg.Wait <= 0 {
		cfg.Wait = def.Wait
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	return &RedisLocker{
		client: client,
		config: cfg,
		logger: logger.With().Str("component", "locks").Logger(),
	}
}

// Lock takes a lease on key, retrying until the wait bound or ctx expires.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.config.KeyPrefix + key
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.config.Wait)
	defer cancel()

	ticker := time.NewTicker(l.config.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(waitCtx, redisKey, token, l.config.LeaseDuration).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("set lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, releaseCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer releaseCancel()
			if err := l.client.Eval(releaseCtx, releaseScript, []string{redisKey}, token).Err(); err != nil {
				l.logger.Error().Err(err).Str("key", redisKey).Msg("failed to release lock")
			}
		})
	}, nil
}

// Close closes the Redis connection.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
