package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL           string
	Token         string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Name:          "trendycart",
		MaxReconnects: -1, // Unlimited
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NATSTransport relays events over core NATS subjects.
type NATSTransport struct {
	conn   *nats.Conn
	logger zerolog.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewNATSTransport connects to NATS.
func NewNATSTransport(cfg NATSConfig, logger zerolog.Logger) (*NATSTransport, error) {
	logger = logger.With().Str("component", "eventbus").Str("transport", "nats").Logger()

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	logger.Info().Str("url", conn.ConnectedUrl()).Msg("NATS event transport connected")
	return &NATSTransport{conn: conn, logger: logger}, nil
}

// Publish implements Transport.
func (t *NATSTransport) Publish(_ context.Context, subject string, data []byte) error {
	return t.conn.Publish(subject, data)
}

// Subscribe implements Transport. The prefix must end with a dot.
func (t *NATSTransport) Subscribe(prefix string, handler func(data []byte)) error {
	sub, err := t.conn.Subscribe(prefix+">", func(m *nats.Msg) {
		handler(m.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", prefix, err)
	}
	t.mu.Lock()
	t.subs = append(t.subs, sub)
	t.mu.Unlock()
	return nil
}

// Close drains subscriptions and closes the connection.
func (t *NATSTransport) Close() error {
	t.mu.Lock()
	t.subs = nil
	t.mu.Unlock()

	if err := t.conn.Drain(); err != nil {
		t.conn.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}
