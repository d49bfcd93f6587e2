package live

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/catalog"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/events"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/history"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/license"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/locks"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/models"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/notifications"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/settings"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/telemetry"
)

const tracerName = "trendycart/live"

// Notifier accepts follower notifications without blocking.
type Notifier interface {
	Submit(msg notifications.Message) bool
}

// Service moves sellers between offline and live.
type Service struct {
	db           *gorm.DB
	history      *history.Recorder
	bus          *events.Bus
	locker       locks.Locker
	license      license.Checker
	notifier     Notifier
	settings     settings.Provider
	requiredTier string
	logger       zerolog.Logger
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLicenseChecker sets the checker consulted for auction sessions.
func WithLicenseChecker(c license.Checker) Option {
	return func(s *Service) { s.license = c }
}

// WithLocker sets the per-seller locker.
func WithLocker(l locks.Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithNotifier sets the follower notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithSettings sets the runtime settings provider.
func WithSettings(p settings.Provider) Option {
	return func(s *Service) { s.settings = p }
}

// WithRequiredTier sets the license tier auction sessions need.
func WithRequiredTier(tier string) Option {
	return func(s *Service) {
		if tier != "" {
			s.requiredTier = tier
		}
	}
}

// NewService creates a live session service.
func NewService(db *gorm.DB, recorder *history.Recorder, bus *events.Bus, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		db:           db,
		history:      recorder,
		bus:          bus,
		locker:       locks.NewLocalLocker(locks.DefaultWait),
		requiredTier: license.TierExtended,
		logger:       logger.With().Str("component", "live").Logger(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GoLiveRequest starts a broadcast.
type GoLiveRequest struct {
	SellerID string
	LiveType string
	AgoraUID int64
	// ProductIDs replaces the seller's selection. Nil keeps the current one.
	ProductIDs []string
}

// SelectionResult is the outcome of UpdateSelection. Session is nil when the
// seller has no session row yet.
type SelectionResult struct {
	Seller  *models.Seller
	Session *models.LiveSeller
}

// EndSessionRequest closes the seller's current broadcast.
type EndSessionRequest struct {
	SellerID     string
	TotalUser    int64
	LiveComments int64
}

// AuctionResultRequest records the outcome of one auctioned product.
type AuctionResultRequest struct {
	SellerID     string
	ProductID    string
	Status       string
	WinnerUserID string
	WinningBid   float64
}

// GoLive replaces any previous session for the seller with a new one, opens
// a history record and snapshots the selected products.
func (s *Service) GoLive(ctx context.Context, req GoLiveRequest) (session *models.LiveSeller, err error) {
	ctx, finish := s.startTransition(ctx, "GoLive", "go_live", req.SellerID)
	defer func() { finish(err) }()

	unlock, err := s.lock(ctx, req.SellerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	seller, err := s.loadSeller(ctx, req.SellerID)
	if err != nil {
		return nil, err
	}

	liveType, ok := models.ParseLiveType(req.LiveType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLiveType, req.LiveType)
	}

	if liveType == models.LiveTypeAuction {
		if err := license.Verify(ctx, s.license, seller.ID, s.requiredTier); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		snapshot, err := applySelection(ctx, tx, seller.ID, req.ProductIDs)
		if err != nil {
			return err
		}

		if err := tx.Where("seller_id = ?", seller.ID).Delete(&models.LiveSeller{}).Error; err != nil {
			return fmt.Errorf("delete previous session: %w", err)
		}

		record, err := s.history.WithTx(tx).Open(ctx, seller.ID, now)
		if err != nil {
			return err
		}

		if err := compareAndSwapSeller(ctx, tx, seller, liveState{
			IsLive:   true,
			Channel:  record.ID,
			Selected: snapshot,
		}, now); err != nil {
			return err
		}

		session = &models.LiveSeller{
			ID:                   uuid.NewString(),
			SellerID:             seller.ID,
			LiveSellingHistoryID: record.ID,
			Channel:              record.ID,
			AgoraUID:             req.AgoraUID,
			LiveType:             liveType,
			SelectedProducts:     snapshot,
		}
		if err := tx.Create(session).Error; err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("seller_id", seller.ID).
		Str("live_seller_id", session.ID).
		Str("history_id", session.LiveSellingHistoryID).
		Str("live_type", string(liveType)).
		Int("products", len(session.SelectedProducts)).
		Msg("seller went live")

	s.notifyFollowers(seller, session)
	s.publish(events.EventLiveStarted, seller, session, nil)

	return session, nil
}

// UpdateSelection changes the offered products of a seller without starting
// a new history. Auction state already recorded for a product is kept.
// A nil productIDs keeps the current flags.
func (s *Service) UpdateSelection(ctx context.Context, sellerID string, productIDs []string) (result *SelectionResult, err error) {
	ctx, finish := s.startTransition(ctx, "UpdateSelection", "update_selection", sellerID)
	defer func() { finish(err) }()

	unlock, err := s.lock(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	seller, err := s.loadSeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	session, err := s.findSession(ctx, s.db, seller.ID)
	if err != nil && !errors.Is(err, ErrLiveSessionNotFound) {
		return nil, err
	}

	if session != nil && session.LiveType == models.LiveTypeAuction {
		if err := license.Verify(ctx, s.license, seller.ID, s.requiredTier); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		snapshot, err := applySelection(ctx, tx, seller.ID, productIDs)
		if err != nil {
			return err
		}

		if session != nil {
			snapshot = catalog.Carry(session.SelectedProducts, snapshot)
			if err := tx.Model(&models.LiveSeller{}).
				Where("id = ?", session.ID).
				Select("selected_products", "updated_at").
				Updates(&models.LiveSeller{SelectedProducts: snapshot, UpdatedAt: now}).Error; err != nil {
				return fmt.Errorf("update session selection: %w", err)
			}
			session.SelectedProducts = snapshot
			session.UpdatedAt = now
		}

		return compareAndSwapSeller(ctx, tx, seller, liveState{
			IsLive:   true,
			Channel:  seller.LiveChannel,
			Selected: snapshot,
		}, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("seller_id", seller.ID).
		Int("products", len(seller.SelectedProducts)).
		Bool("has_session", session != nil).
		Msg("live selection updated")

	s.publish(events.EventLiveSelectionUpdated, seller, session, nil)

	return &SelectionResult{Seller: seller, Session: session}, nil
}

// GoOffline clears the seller's selection and live flag. The session row and
// history stay as they are. Calling it on an offline seller is a no-op success.
func (s *Service) GoOffline(ctx context.Context, sellerID string) (seller *models.Seller, err error) {
	ctx, finish := s.startTransition(ctx, "GoOffline", "go_offline", sellerID)
	defer func() { finish(err) }()

	unlock, err := s.lock(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	seller, err = s.loadSeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	if err := s.goOffline(ctx, s.db, seller); err != nil {
		return nil, err
	}

	s.logger.Info().Str("seller_id", seller.ID).Msg("seller went offline")
	s.publish(events.EventLiveOffline, seller, nil, nil)

	return seller, nil
}

func (s *Service) goOffline(ctx context.Context, tx *gorm.DB, seller *models.Seller) error {
	return compareAndSwapSeller(ctx, tx, seller, liveState{
		IsLive:  false,
		Channel: seller.LiveChannel,
	}, s.now().UTC())
}

// EndSession closes the history of the seller's current session and takes
// the seller offline in one transaction.
func (s *Service) EndSession(ctx context.Context, req EndSessionRequest) (record *models.LiveSellingHistory, err error) {
	ctx, finish := s.startTransition(ctx, "EndSession", "end_session", req.SellerID)
	defer func() { finish(err) }()

	unlock, err := s.lock(ctx, req.SellerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	seller, err := s.loadSeller(ctx, req.SellerID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.findSession(ctx, tx, seller.ID)
		if err != nil {
			return err
		}

		record, err = s.history.WithTx(tx).Close(ctx, session.LiveSellingHistoryID, s.now().UTC(), history.Counters{
			TotalUser:    req.TotalUser,
			LiveComments: req.LiveComments,
		})
		if err != nil {
			return err
		}

		return s.goOffline(ctx, tx, seller)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("seller_id", seller.ID).
		Str("history_id", record.ID).
		Int64("duration_seconds", record.DurationSeconds).
		Msg("live session ended")

	s.publish(events.EventLiveEnded, seller, nil, events.Payload{
		"history_id":       record.ID,
		"duration_seconds": record.DurationSeconds,
	})

	return record, nil
}

// RecordAuctionResult moves one product of the active session to a new
// auction status.
func (s *Service) RecordAuctionResult(ctx context.Context, req AuctionResultRequest) (session *models.LiveSeller, err error) {
	ctx, finish := s.startTransition(ctx, "RecordAuctionResult", "auction_result", req.SellerID)
	defer func() { finish(err) }()

	status := models.ProductStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
	}

	unlock, err := s.lock(ctx, req.SellerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	seller, err := s.loadSeller(ctx, req.SellerID)
	if err != nil {
		return nil, err
	}

	session, err = s.findSession(ctx, s.db, seller.ID)
	if err != nil {
		return nil, err
	}

	idx := session.FindProduct(req.ProductID)
	if idx < 0 {
		return nil, ErrProductNotFound
	}

	entry := session.SelectedProducts[idx]
	if !entry.ProductStatus.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, entry.ProductStatus, status)
	}

	switch status {
	case models.ProductCompleted:
		winner := strings.TrimSpace(req.WinnerUserID)
		if winner == "" {
			return nil, ErrWinnerRequired
		}
		if req.WinningBid < entry.MinimumBidPrice {
			return nil, fmt.Errorf("%w: %.2f < %.2f", ErrBidBelowMinimum, req.WinningBid, entry.MinimumBidPrice)
		}
		entry.WinnerUserID = &winner
		entry.WinningBid = req.WinningBid
	default:
		entry.WinnerUserID = nil
		entry.WinningBid = 0
	}
	entry.ProductStatus = status

	now := s.now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := append([]models.SelectedProduct(nil), session.SelectedProducts...)
		products[idx] = entry
		if err := tx.Model(&models.LiveSeller{}).
			Where("id = ?", session.ID).
			Select("selected_products", "updated_at").
			Updates(&models.LiveSeller{SelectedProducts: products, UpdatedAt: now}).Error; err != nil {
			return fmt.Errorf("update session product: %w", err)
		}
		session.SelectedProducts = products

		sellerProducts := catalog.Carry(products, seller.SelectedProducts)
		return compareAndSwapSeller(ctx, tx, seller, liveState{
			IsLive:   seller.IsLive,
			Channel:  seller.LiveChannel,
			Selected: sellerProducts,
		}, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("seller_id", seller.ID).
		Str("product_id", req.ProductID).
		Str("status", string(status)).
		Msg("auction result recorded")

	s.publish(events.EventAuctionResult, seller, session, events.Payload{
		"product_id":  req.ProductID,
		"status":      string(status),
		"winning_bid": entry.WinningBid,
	})

	return session, nil
}

// SelectedProducts returns the product snapshot of the session tied to historyID.
func (s *Service) SelectedProducts(ctx context.Context, historyID string) ([]models.SelectedProduct, error) {
	var session models.LiveSeller
	err := s.db.WithContext(ctx).
		Where("live_selling_history_id = ?", historyID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLiveSessionNotFound
		}
		return nil, fmt.Errorf("query session: %w", err)
	}
	if session.SelectedProducts == nil {
		return []models.SelectedProduct{}, nil
	}
	return session.SelectedProducts, nil
}

// Analytics returns the history projection for historyID.
func (s *Service) Analytics(ctx context.Context, historyID string) (*history.Metrics, error) {
	return s.history.Metrics(ctx, historyID)
}

// startTransition opens the span for one lifecycle operation. The returned
// func ends it and records the transition outcome.
func (s *Service) startTransition(ctx context.Context, op, transition, sellerID string) (context.Context, func(error)) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "live."+op, attribute.String("seller_id", sellerID))
	return ctx, func(err error) {
		telemetry.RecordError(span, err)
		span.End()
		observe(transition, err)
	}
}

func (s *Service) lock(ctx context.Context, sellerID string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, "seller:"+sellerID)
	if err != nil {
		if errors.Is(err, locks.ErrLockTimeout) {
			telemetry.LiveLockConflictsTotal.Inc()
			return nil, fmt.Errorf("%w: seller is busy", ErrConflict)
		}
		return nil, fmt.Errorf("lock seller: %w", err)
	}
	return unlock, nil
}

func (s *Service) loadSeller(ctx context.Context, sellerID string) (*models.Seller, error) {
	var seller models.Seller
	if err := s.db.WithContext(ctx).First(&seller, "id = ?", sellerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSellerNotFound
		}
		return nil, fmt.Errorf("query seller: %w", err)
	}
	return &seller, nil
}

func (s *Service) findSession(ctx context.Context, db *gorm.DB, sellerID string) (*models.LiveSeller, error) {
	var session models.LiveSeller
	if err := db.WithContext(ctx).Where("seller_id = ?", sellerID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLiveSessionNotFound
		}
		return nil, fmt.Errorf("query session: %w", err)
	}
	return &session, nil
}

func (s *Service) currentSettings() models.SystemSettings {
	if s.settings == nil {
		return models.DefaultSystemSettings()
	}
	return s.settings.Current()
}

func (s *Service) notifyFollowers(seller *models.Seller, session *models.LiveSeller) {
	if s.notifier == nil {
		return
	}
	cfg := s.currentSettings()
	if !cfg.LiveNotificationsEnabled {
		return
	}

	name := seller.BusinessName
	if name == "" {
		name = seller.DisplayName()
	}

	msg := notifications.Message{
		SellerID: seller.ID,
		Title:    strings.Replace(cfg.LiveNotificationTitle, "%s", name, 1),
		Body:     strings.Replace(cfg.LiveNotificationBody, "%s", name, 1),
		Data: map[string]string{
			"type":                 "LIVE",
			"sellerId":             seller.ID,
			"liveSellerId":         session.ID,
			"liveSellingHistoryId": session.LiveSellingHistoryID,
			"channel":              session.Channel,
			"liveType":             string(session.LiveType),
		},
	}
	if !s.notifier.Submit(msg) {
		s.logger.Warn().Str("seller_id", seller.ID).Msg("follower notification not queued")
	}
}

func (s *Service) publish(eventType events.EventType, seller *models.Seller, session *models.LiveSeller, extra events.Payload) {
	if s.bus == nil {
		return
	}
	payload := events.Payload{
		"seller_id":   seller.ID,
		"is_live":     seller.IsLive,
		"channel":     seller.LiveChannel,
		"product_ids": productIDs(seller.SelectedProducts),
	}
	if session != nil {
		payload["live_seller_id"] = session.ID
		payload["history_id"] = session.LiveSellingHistoryID
		payload["live_type"] = string(session.LiveType)
	}
	for k, v := range extra {
		payload[k] = v
	}
	s.bus.Publish(eventType, payload)
}

func productIDs(products []models.SelectedProduct) []string {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ProductID)
	}
	return ids
}

func observe(transition string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	telemetry.LiveTransitionsTotal.WithLabelValues(transition, result).Inc()
}
