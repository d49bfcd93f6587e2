/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package listing builds the consumer-facing feed of live sellers.
package listing

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/models"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/settings"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/telemetry"
)

// Pagination bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Query selects one page of the live feed.
type Query struct {
	ExcludeUserID string
	Page          int
	PageSize      int
}

func (q *Query) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
}

// Entry is one seller in the feed.
type Entry struct {
	SellerID             string                   `json:"sellerId"`
	UserID               string                   `json:"userId"`
	FirstName            string                   `json:"firstName"`
	LastName             string                   `json:"lastName"`
	BusinessName         string                   `json:"businessName"`
	BusinessTag          string                   `json:"businessTag"`
	Image                string                   `json:"image"`
	IsFake               bool                     `json:"isFake"`
	VideoURL             string                   `json:"videoUrl,omitempty"`
	LiveSellerID         string                   `json:"liveSellerId,omitempty"`
	LiveSellingHistoryID string                   `json:"liveSellingHistoryId,omitempty"`
	Channel              string                   `json:"channel"`
	AgoraUID             int64                    `json:"agoraUID,omitempty"`
	LiveType             models.LiveType          `json:"liveType,omitempty"`
	SelectedProducts     []models.SelectedProduct `json:"selectedProducts"`
	View                 int64                    `json:"view"`
}

// Page is one slice of the combined feed.
type Page struct {
	Total   int     `json:"total"`
	Sellers []Entry `json:"liveSeller"`
}

// Aggregator merges real and simulated live sellers.
type Aggregator struct {
	db       *gorm.DB
	settings settings.Provider
	logger   zerolog.Logger

	mu   sync.Mutex
	rand *rand.Rand
}

// NewAggregator creates a listing aggregator. A nil provider uses default settings.
func NewAggregator(db *gorm.DB, provider settings.Provider, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		db:       db,
		settings: provider,
		logger:   logger.With().Str("component", "listing").Logger(),
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithRand replaces the random source used for simulated viewer counts.
func (a *Aggregator) WithRand(r *rand.Rand) *Aggregator {
	a.mu.Lock()
	a.rand = r
	a.mu.Unlock()
	return a
}

// ListLive returns one page of live sellers. Total counts both populations
// before slicing.
func (a *Aggregator) ListLive(ctx context.Context, q Query) (*Page, error) {
	q.normalize()
	cfg := models.DefaultSystemSettings()
	if a.settings != nil {
		cfg = a.settings.Current()
	}

	live, err := a.realSellers(ctx, q.ExcludeUserID)
	if err != nil {
		return nil, err
	}
	fake, err := a.fakeSellers(ctx, cfg)
	if err != nil {
		return nil, err
	}

	combined := make([]Entry, 0, len(live)+len(fake))
	if cfg.SimulatedFirst {
		combined = append(combined, fake...)
		combined = append(combined, live...)
	} else {
		combined = append(combined, live...)
		combined = append(combined, fake...)
	}

	telemetry.LiveListingSize.Set(float64(len(combined)))

	start := len(combined)
	if q.Page-1 <= len(combined)/q.PageSize {
		start = (q.Page - 1) * q.PageSize
	}
	if start > len(combined) {
		start = len(combined)
	}
	end := start + q.PageSize
	if end > len(combined) {
		end = len(combined)
	}

	return &Page{Total: len(combined), Sellers: combined[start:end]}, nil
}

func (a *Aggregator) realSellers(ctx context.Context, excludeUserID string) ([]Entry, error) {
	query := a.db.WithContext(ctx).
		Joins("JOIN sellers ON sellers.id = live_sellers.seller_id").
		Where("sellers.is_live = ? AND sellers.is_block = ? AND sellers.is_fake = ?", true, false, false).
		Preload("Seller").
		Order("live_sellers.created_at DESC, live_sellers.id ASC")
	if excludeUserID != "" {
		query = query.Where("sellers.user_id <> ?", excludeUserID)
	}

	var sessions []models.LiveSeller
	if err := query.Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("query live sellers: %w", err)
	}

	entries := make([]Entry, 0, len(sessions))
	for _, ls := range sessions {
		if ls.Seller == nil {
			continue
		}
		e := entryFor(ls.Seller)
		e.LiveSellerID = ls.ID
		e.LiveSellingHistoryID = ls.LiveSellingHistoryID
		e.Channel = ls.Channel
		e.AgoraUID = ls.AgoraUID
		e.LiveType = ls.LiveType
		if ls.SelectedProducts != nil {
			e.SelectedProducts = ls.SelectedProducts
		}
		e.View = ls.View
		entries = append(entries, e)
	}
	return entries, nil
}

func (a *Aggregator) fakeSellers(ctx context.Context, cfg models.SystemSettings) ([]Entry, error) {
	var sellers []models.Seller
	err := a.db.WithContext(ctx).
		Where("is_fake = ? AND is_live = ? AND is_block = ?", true, true, false).
		Order("created_at DESC, id ASC").
		Find(&sellers).Error
	if err != nil {
		return nil, fmt.Errorf("query simulated sellers: %w", err)
	}

	cfg.Normalize()
	span := cfg.FakeViewerMax - cfg.FakeViewerMin + 1

	a.mu.Lock()
	defer a.mu.Unlock()

	entries := make([]Entry, 0, len(sellers))
	for i := range sellers {
		e := entryFor(&sellers[i])
		e.LiveType = models.LiveTypeNormal
		e.View = int64(cfg.FakeViewerMin + a.rand.Intn(span))
		entries = append(entries, e)
	}
	return entries, nil
}

func entryFor(s *models.Seller) Entry {
	products := s.SelectedProducts
	if products == nil {
		products = []models.SelectedProduct{}
	}
	return Entry{
		SellerID:         s.ID,
		UserID:           s.UserID,
		FirstName:        s.FirstName,
		LastName:         s.LastName,
		BusinessName:     s.BusinessName,
		BusinessTag:      s.BusinessTag,
		Image:            s.Image,
		IsFake:           s.IsFake,
		VideoURL:         s.FakeVideoURL,
		Channel:          s.LiveChannel,
		SelectedProducts: products,
	}
}
