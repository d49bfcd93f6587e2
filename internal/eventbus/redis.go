/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Connection pooling
	PoolSize     int
	MinIdleConns int

	// Timeouts
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultRedisConfig returns default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// RedisTransport relays events over Redis pub/sub.
type RedisTransport struct {
	client *redis.Client
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	pubsubs []*redis.PubSub
}

// NewRedisTransport connects to Redis and verifies the connection.
func NewRedisTransport(cfg RedisConfig, logger zerolog.Logger) (*RedisTransport, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	logger = logger.With().Str("component", "eventbus").Str("transport", "redis").Logger()
	logger.Info().Str("addr", cfg.Addr).Msg("Redis event transport connected")

	return &RedisTransport{client: client, logger: logger, ctx: ctx, cancel: cancel}, nil
}

// Publish implements Transport.
func (t *RedisTransport) Publish(ctx context.Context, subject string, data []byte) error {
	return t.client.Publish(ctx, subject, data).Err()
}

// Subscribe implements Transport.
func (t *RedisTransport) Subscribe(prefix string, handler func(data []byte)) error {
	pubsub := t.client.PSubscribe(t.ctx, prefix+"*")
	if _, err := pubsub.Receive(t.ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("psubscribe %s: %w", prefix, err)
	}

	t.mu.Lock()
	t.pubsubs = append(t.pubsubs, pubsub)
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ch := pubsub.Channel()
		for {
			select {
			case <-t.ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					t.logger.Warn().Str("pattern", prefix+"*").Msg("Redis channel closed")
					return
				}
				handler([]byte(msg.Payload))
			}
		}
	}()
	return nil
}

// Close stops receivers and closes the client.
func (t *RedisTransport) Close() error {
	t.cancel()

	t.mu.Lock()
	for _, ps := range t.pubsubs {
		_ = ps.Close()
	}
	t.pubsubs = nil
	t.mu.Unlock()

	t.wg.Wait()
	return t.client.Close()
}
