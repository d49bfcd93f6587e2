/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/api"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/config"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/db"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/eventbus"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/events"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/history"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/license"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/listing"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/live"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/locks"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/notifications"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/settings"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/telemetry"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db         *gorm.DB
	bus        *events.Bus
	api        *api.API
	settings   *settings.Store
	dispatcher *notifications.Dispatcher
	relay      *eventbus.Relay

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("trendycart-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(timeoutMiddleware(60 * time.Second))

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		_ = srv.Close()
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		// Event streams hold the connection open; the middleware timeout covers the rest.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return srv, nil
}

// timeoutMiddleware applies a request deadline to everything except websocket upgrades.
func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(d)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, r)
				return
			}
			timeout.ServeHTTP(w, r)
		})
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	if err := db.Migrate(database); err != nil {
		return err
	}

	s.settings = settings.NewStore(database, s.bus, s.cfg.SettingsFile, s.logger)
	if err := s.settings.Reload(context.Background()); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	locker, err := s.newLocker()
	if err != nil {
		return err
	}

	var sender notifications.Sender
	if s.cfg.PushGatewayURL != "" {
		sender = notifications.NewPushGatewaySender(s.cfg.PushGatewayURL, s.cfg.PushGatewaySecret)
	} else {
		s.logger.Warn().Msg("push gateway not configured, follower notifications will only be logged")
		sender = notifications.NewLogSender(s.logger)
	}
	s.dispatcher = notifications.NewDispatcher(database, sender, s.cfg.NotificationWorkers, s.cfg.NotificationQueueSize, s.logger)

	liveSvc := live.NewService(database, history.NewRecorder(database, s.logger), s.bus, s.logger,
		live.WithLicenseChecker(s.newLicenseChecker()),
		live.WithLocker(locker),
		live.WithNotifier(s.dispatcher),
		live.WithSettings(s.settings),
		live.WithRequiredTier(s.cfg.LicenseRequiredTier),
	)
	aggregator := listing.NewAggregator(database, s.settings, s.logger)

	s.api = api.New(database, liveSvc, aggregator, s.bus, s.cfg.SecretKey, []byte(s.cfg.JWTSigningKey), s.logger)

	return s.initRelay()
}

func (s *Server) newLicenseChecker() license.Checker {
	if s.cfg.LicenseURL == "" {
		s.logger.Info().Str("tier", s.cfg.LicenseDefaultTier).Msg("license service not configured, using static tier")
		return license.NewStaticChecker(s.cfg.LicenseDefaultTier)
	}
	return license.NewHTTPChecker(s.cfg.LicenseURL, s.cfg.LicenseAPIKey, s.cfg.LicenseTimeout, s.logger)
}

func (s *Server) newLocker() (locks.Locker, error) {
	switch s.cfg.LockBackend {
	case config.LockRedis:
		lockCfg := locks.DefaultRedisConfig()
		lockCfg.Addr = s.cfg.RedisAddr
		lockCfg.Password = s.cfg.RedisPassword
		lockCfg.DB = s.cfg.RedisDB
		if s.cfg.LockTTL > 0 {
			lockCfg.LeaseDuration = s.cfg.LockTTL
		}
		if s.cfg.LockWait > 0 {
			lockCfg.Wait = s.cfg.LockWait
		}
		locker, err := locks.NewRedisLocker(lockCfg, s.logger)
		if err != nil {
			return nil, fmt.Errorf("redis locker: %w", err)
		}
		s.DeferClose(locker.Close)
		return locker, nil
	default:
		return locks.NewLocalLocker(s.cfg.LockWait), nil
	}
}

func (s *Server) initRelay() error {
	var (
		transport eventbus.Transport
		err       error
	)
	switch s.cfg.EventBusBackend {
	case config.EventBusNATS:
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = s.cfg.NATSURL
		transport, err = eventbus.NewNATSTransport(natsCfg, s.logger)
	case config.EventBusRedis:
		redisCfg := eventbus.DefaultRedisConfig()
		redisCfg.Addr = s.cfg.RedisAddr
		redisCfg.Password = s.cfg.RedisPassword
		redisCfg.DB = s.cfg.RedisDB
		transport, err = eventbus.NewRedisTransport(redisCfg, s.logger)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("event relay: %w", err)
	}

	nodeID := eventbus.NodeID(s.cfg.InstanceID)
	s.relay = eventbus.NewRelay(s.bus, transport, s.cfg.NATSSubjectPrefix, nodeID, events.LiveEventTypes, s.logger)
	s.logger.Info().Str("backend", string(s.cfg.EventBusBackend)).Str("node_id", nodeID).Msg("event relay configured")
	return nil
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	if s.dispatcher != nil {
		s.dispatcher.Start(ctx)
	}

	if s.settings != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.settings.Run(ctx, s.cfg.SettingsRefreshInterval)
		}()
	}

	if s.relay != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			if err := s.relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Msg("event relay exited")
			}
		}()
	}

	if s.db != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					db.UpdateConnectionMetrics(s.db)
				}
			}
		}()
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	// Let queued notifications finish before the workers see cancellation.
	if s.dispatcher != nil {
		s.dispatcher.Stop()
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Handle("/metrics", telemetry.Handler())
	s.api.Routes(s.router)
}
