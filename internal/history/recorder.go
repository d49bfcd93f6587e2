/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/models"
)

// ErrHistoryNotFound indicates the live selling history does not exist.
var ErrHistoryNotFound = errors.New("live selling history not found")

// Counters are the aggregate figures stored when a session closes.
type Counters struct {
	TotalUser    int64
	LiveComments int64
}

// SellerSummary holds the seller display fields shown next to analytics.
type SellerSummary struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	BusinessName string `json:"businessName"`
	BusinessTag  string `json:"businessTag"`
	Image        string `json:"image"`
}

// Metrics is the analytics projection of one history row.
type Metrics struct {
	Seller    SellerSummary `json:"seller"`
	TotalUser int64         `json:"totalUser"`
	Comment   int64         `json:"comment"`
	StartTime time.Time     `json:"startTime"`
	EndTime   *time.Time    `json:"endTime"`
	Duration  string        `json:"duration"`
}

// Recorder opens and closes live selling history records.
type Recorder struct {
	db     *gorm.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewRecorder creates a history recorder.
func NewRecorder(db *gorm.DB, logger zerolog.Logger) *Recorder {
	return &Recorder{
		db:     db,
		logger: logger.With().Str("component", "history").Logger(),
		now:    time.Now,
	}
}

// WithTx returns a recorder bound to tx.
func (r *Recorder) WithTx(tx *gorm.DB) *Recorder {
	clone := *r
	clone.db = tx
	return &clone
}

// Open creates a history row starting at start.
func (r *Recorder) Open(ctx context.Context, sellerID string, start time.Time) (*models.LiveSellingHistory, error) {
	if start.IsZero() {
		start = r.now()
	}
	record := &models.LiveSellingHistory{
		ID:        uuid.NewString(),
		SellerID:  sellerID,
		StartTime: start.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("create history: %w", err)
	}
	return record, nil
}

// Close stamps the end time, duration and counters. Closing an already
// closed record returns it unchanged.
func (r *Recorder) Close(ctx context.Context, historyID string, end time.Time, counters Counters) (*models.LiveSellingHistory, error) {
	var record models.LiveSellingHistory
	if err := r.db.WithContext(ctx).First(&record, "id = ?", historyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHistoryNotFound
		}
		return nil, fmt.Errorf("load history: %w", err)
	}

	if record.IsClosed() {
		r.logger.Warn().
			Str("history_id", historyID).
			Time("end_time", *record.EndTime).
			Msg("history already closed, ignoring close")
		return &record, nil
	}

	if end.IsZero() {
		end = r.now()
	}
	end = end.UTC()
	if end.Before(record.StartTime) {
		end = record.StartTime
	}

	record.EndTime = &end
	record.DurationSeconds = int64(end.Sub(record.StartTime) / time.Second)
	record.TotalUser = counters.TotalUser
	record.LiveComments = counters.LiveComments

	result := r.db.WithContext(ctx).Model(&models.LiveSellingHistory{}).
		Where("id = ? AND end_time IS NULL", historyID).
		Updates(map[string]any{
			"end_time":         record.EndTime,
			"duration_seconds": record.DurationSeconds,
			"total_user":       record.TotalUser,
			"live_comments":    record.LiveComments,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("close history: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Lost a race with another close; report what was stored.
		var stored models.LiveSellingHistory
		if err := r.db.WithContext(ctx).First(&stored, "id = ?", historyID).Error; err != nil {
			return nil, fmt.Errorf("reload history: %w", err)
		}
		return &stored, nil
	}

	r.logger.Info().
		Str("history_id", historyID).
		Str("seller_id", record.SellerID).
		Int64("duration_seconds", record.DurationSeconds).
		Msg("live session closed")

	return &record, nil
}

// Get returns one history row.
func (r *Recorder) Get(ctx context.Context, historyID string) (*models.LiveSellingHistory, error) {
	var record models.LiveSellingHistory
	if err := r.db.WithContext(ctx).First(&record, "id = ?", historyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHistoryNotFound
		}
		return nil, fmt.Errorf("load history: %w", err)
	}
	return &record, nil
}

// Metrics joins a history row with the seller's current display fields.
func (r *Recorder) Metrics(ctx context.Context, historyID string) (*Metrics, error) {
	record, err := r.Get(ctx, historyID)
	if err != nil {
		return nil, err
	}

	var seller models.Seller
	err = r.db.WithContext(ctx).
		Select("id", "first_name", "last_name", "business_name", "business_tag", "image").
		First(&seller, "id = ?", record.SellerID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load seller: %w", err)
	}

	var duration time.Duration
	if record.IsClosed() {
		duration = record.Duration()
	} else {
		duration = r.now().Sub(record.StartTime)
	}

	return &Metrics{
		Seller: SellerSummary{
			ID:           seller.ID,
			FirstName:    seller.FirstName,
			LastName:     seller.LastName,
			BusinessName: seller.BusinessName,
			BusinessTag:  seller.BusinessTag,
			Image:        seller.Image,
		},
		TotalUser: record.TotalUser,
		Comment:   record.LiveComments,
		StartTime: record.StartTime,
		EndTime:   record.EndTime,
		Duration:  models.FormatDuration(duration),
	}, nil
}
