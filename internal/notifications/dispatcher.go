/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package notifications fans out "seller is live" pushes to followers.
// Submission is fire-and-forget: callers learn only whether the message was
// queued, and delivery failures surface on the dispatcher's error channel.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/models"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/telemetry"
)

// ErrDispatcherStopped indicates Submit was called after Stop.
var ErrDispatcherStopped = errors.New("notification dispatcher stopped")

// Message is one fan-out request for a seller's followers.
type Message struct {
	SellerID string
	Title    string
	Body     string
	Data     map[string]string
}

// DeliveryError describes a failed fan-out.
type DeliveryError struct {
	SellerID string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("notify followers of %s: %v", e.SellerID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Dispatcher runs a bounded queue drained by a fixed worker pool.
type Dispatcher struct {
	db      *gorm.DB
	sender  Sender
	workers int
	logger  zerolog.Logger

	queue  chan Message
	errs   chan error
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a dispatcher. Call Start to launch the workers.
func NewDispatcher(db *gorm.DB, sender Sender, workers, queueSize int, logger zerolog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		db:      db,
		sender:  sender,
		workers: workers,
		logger:  logger.With().Str("component", "notifications").Logger(),
		queue:   make(chan Message, queueSize),
		errs:    make(chan error, queueSize),
	}
}

// Submit queues msg without blocking. It returns false if the queue is full
// or the dispatcher is stopped.
func (d *Dispatcher) Submit(msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		telemetry.NotificationsSubmittedTotal.WithLabelValues("dropped").Inc()
		return false
	}

	select {
	case d.queue <- msg:
		telemetry.NotificationsSubmittedTotal.WithLabelValues("queued").Inc()
		return true
	default:
		telemetry.NotificationsSubmittedTotal.WithLabelValues("dropped").Inc()
		d.logger.Warn().Str("seller_id", msg.SellerID).Msg("notification queue full, dropping message")
		return false
	}
}

// Errors returns delivery failures. Errors are dropped when nobody reads.
func (d *Dispatcher) Errors() <-chan error {
	return d.errs
}

// Start launches the workers. They exit when ctx is cancelled or Stop drains the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
	d.logger.Info().Int("workers", d.workers).Int("queue_size", cap(d.queue)).Msg("notification dispatcher started")
}

// Stop refuses new messages and waits for queued ones to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info().Msg("notification dispatcher stopped")
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-d.queue:
			if !ok {
				return
			}
			if err := d.deliver(ctx, msg); err != nil {
				telemetry.NotificationsDeliveredTotal.WithLabelValues("failed").Inc()
				d.logger.Error().Err(err).Int("worker", id).Str("seller_id", msg.SellerID).Msg("notification delivery failed")
				d.report(&DeliveryError{SellerID: msg.SellerID, Err: err})
			}
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) error {
	tokens, err := FollowerTokens(ctx, d.db, msg.SellerID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		telemetry.NotificationsDeliveredTotal.WithLabelValues("skipped").Inc()
		d.logger.Debug().Str("seller_id", msg.SellerID).Msg("no followers to notify")
		return nil
	}

	if err := d.sender.Send(ctx, tokens, msg); err != nil {
		return err
	}

	telemetry.NotificationsDeliveredTotal.WithLabelValues("sent").Inc()
	d.logger.Debug().Str("seller_id", msg.SellerID).Int("tokens", len(tokens)).Msg("notification sent")
	return nil
}

func (d *Dispatcher) report(err error) {
	select {
	case d.errs <- err:
	default:
	}
}

// FollowerTokens returns the push tokens of followers who want live notifications.
func FollowerTokens(ctx context.Context, db *gorm.DB, sellerID string) ([]string, error) {
	var tokens []string
	err := db.WithContext(ctx).
		Model(&models.User{}).
		Joins("JOIN followers ON followers.user_id = users.id").
		Where("followers.seller_id = ?", sellerID).
		Where("users.live_notifications = ? AND users.is_block = ?", true, false).
		Where("users.fcm_token <> ''").
		Distinct().
		Pluck("users.fcm_token", &tokens).Error
	if err != nil {
		return nil, fmt.Errorf("query follower tokens: %w", err)
	}
	return tokens, nil
}
