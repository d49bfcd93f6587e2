/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package settings keeps the runtime-tunable platform settings in memory and
// mirrors them to a YAML file operators can edit and re-apply.
package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/events"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/models"
)

// ErrInvalidSettings indicates a settings document failed validation.
var ErrInvalidSettings = errors.New("invalid settings")

// Provider exposes the current settings snapshot.
type Provider interface {
	Current() models.SystemSettings
}

// Store caches the singleton settings row.
type Store struct {
	db     *gorm.DB
	bus    *events.Bus
	file   string
	logger zerolog.Logger

	current atomic.Pointer[models.SystemSettings]
}

// NewStore creates a store seeded with defaults. Call Reload to read the database.
func NewStore(db *gorm.DB, bus *events.Bus, file string, logger zerolog.Logger) *Store {
	s := &Store{
		db:     db,
		bus:    bus,
		file:   file,
		logger: logger.With().Str("component", "settings").Logger(),
	}
	def := models.DefaultSystemSettings()
	s.current.Store(&def)
	return s
}

// Current returns a copy of the cached settings.
func (s *Store) Current() models.SystemSettings {
	return *s.current.Load()
}

// Reload refreshes the cache from the database.
func (s *Store) Reload(ctx context.Context) error {
	loaded, err := models.GetSystemSettings(s.db.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	loaded.Normalize()

	prev := s.current.Swap(loaded)
	if prev == nil || !loaded.UpdatedAt.Equal(prev.UpdatedAt) {
		s.logger.Debug().
			Int("fake_viewer_min", loaded.FakeViewerMin).
			Int("fake_viewer_max", loaded.FakeViewerMax).
			Bool("simulated_first", loaded.SimulatedFirst).
			Msg("settings reloaded")
		if s.bus != nil {
			s.bus.Publish(events.EventSettingsReloaded, events.Payload{
				"updated_at": loaded.UpdatedAt,
			})
		}
	}
	return nil
}

// Update applies fn to the stored settings, persists them, refreshes the
// cache and exports the YAML mirror.
func (s *Store) Update(ctx context.Context, fn func(*models.SystemSettings)) (models.SystemSettings, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := models.GetSystemSettings(tx)
		if err != nil {
			return err
		}
		fn(row)
		if err := validate(row); err != nil {
			return err
		}
		row.Normalize()
		return tx.Save(row).Error
	})
	if err != nil {
		return models.SystemSettings{}, fmt.Errorf("update settings: %w", err)
	}

	if err := s.Reload(ctx); err != nil {
		return models.SystemSettings{}, err
	}
	current := s.Current()
	if s.file != "" {
		if err := s.Export(s.file); err != nil {
			s.logger.Warn().Err(err).Str("file", s.file).Msg("failed to export settings")
		}
	}
	return current, nil
}

// Run refreshes the cache every interval until ctx is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Reload(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn().Err(err).Msg("settings refresh failed")
			}
		}
	}
}

func validate(s *models.SystemSettings) error {
	if s.FakeViewerMin < 0 || s.FakeViewerMax < 0 {
		return fmt.Errorf("%w: fake viewer bounds must not be negative", ErrInvalidSettings)
	}
	if s.FakeViewerMax < s.FakeViewerMin {
		return fmt.Errorf("%w: fake_viewer_max below fake_viewer_min", ErrInvalidSettings)
	}
	return nil
}

// Export writes the cached settings to path as YAML.
func (s *Store) Export(path string) error {
	current := s.Current()
	data, err := yaml.Marshal(&current)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp, path)
}

// Apply reads a YAML document from path and stores it. Keys missing from
// the document keep their current values.
func (s *Store) Apply(ctx context.Context, path string) (models.SystemSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.SystemSettings{}, fmt.Errorf("read settings: %w", err)
	}

	incoming := s.Current()
	if err := yaml.Unmarshal(data, &incoming); err != nil {
		return models.SystemSettings{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	return s.Update(ctx, func(row *models.SystemSettings) {
		row.FakeViewerMin = incoming.FakeViewerMin
		row.FakeViewerMax = incoming.FakeViewerMax
		row.SimulatedFirst = incoming.SimulatedFirst
		row.LiveNotificationsEnabled = incoming.LiveNotificationsEnabled
		row.LiveNotificationTitle = incoming.LiveNotificationTitle
		row.LiveNotificationBody = incoming.LiveNotificationBody
	})
}
