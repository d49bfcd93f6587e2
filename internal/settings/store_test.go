package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/events"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&models.SystemSettings{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestStoreDefaultsBeforeReload(t *testing.T) {
	store := NewStore(newTestDB(t), nil, "", zerolog.Nop())
	got := store.Current()
	if got.FakeViewerMin != 10 || got.FakeViewerMax != 100 || !got.LiveNotificationsEnabled {
		t.Fatalf("unexpected defaults: %+v", got)
	}
}

func TestStoreUpdateAndExport(t *testing.T) {
	db := newTestDB(t)
	bus := events.NewBus()
	sub := bus.Subscribe(events.EventSettingsReloaded)
	defer bus.Unsubscribe(events.EventSettingsReloaded, sub)

	file := filepath.Join(t.TempDir(), "conf", "settings.yaml")
	store := NewStore(db, bus, file, zerolog.Nop())
	ctx := context.Background()

	if err := store.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}

	updated, err := store.Update(ctx, func(s *models.SystemSettings) {
		s.FakeViewerMin = 5
		s.FakeViewerMax = 7
		s.SimulatedFirst = true
		s.LiveNotificationsEnabled = false
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.FakeViewerMin != 5 || updated.FakeViewerMax != 7 || !updated.SimulatedFirst || updated.LiveNotificationsEnabled {
		t.Fatalf("unexpected updated settings: %+v", updated)
	}

	// A second store sees the persisted row, including the false boolean.
	other := NewStore(db, nil, "", zerolog.Nop())
	if err := other.Reload(ctx); err != nil {
		t.Fatalf("reload other: %v", err)
	}
	if got := other.Current(); got.LiveNotificationsEnabled || got.FakeViewerMax != 7 {
		t.Fatalf("settings not persisted: %+v", got)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), "fake_viewer_max: 7") {
		t.Fatalf("export missing field:\n%s", data)
	}

	select {
	case <-sub:
	case <-time.After(time.Second):
		t.Fatal("expected settings.reloaded event")
	}
}

func TestStoreUpdateRejectsInvertedRange(t *testing.T) {
	store := NewStore(newTestDB(t), nil, "", zerolog.Nop())
	_, err := store.Update(context.Background(), func(s *models.SystemSettings) {
		s.FakeViewerMin = 50
		s.FakeViewerMax = 10
	})
	if !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
}

func TestStoreApply(t *testing.T) {
	store := NewStore(newTestDB(t), nil, "", zerolog.Nop())
	ctx := context.Background()
	if err := store.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}

	path := filepath.Join(t.TempDir(), "settings.yaml")
	doc := "fake_viewer_min: 1\nfake_viewer_max: 3\nsimulated_first: true\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := store.Apply(ctx, path)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got.FakeViewerMin != 1 || got.FakeViewerMax != 3 || !got.SimulatedFirst {
		t.Fatalf("unexpected applied settings: %+v", got)
	}
	if got.LiveNotificationTitle != "%s is live now" {
		t.Fatalf("missing keys should keep current values, got title %q", got.LiveNotificationTitle)
	}

	if err := os.WriteFile(path, []byte("fake_viewer_min: [oops"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.Apply(ctx, path); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings for malformed yaml, got %v", err)
	}
}
