package db

import (
	"testing"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/config"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/models"
	"github.com/google/uuid"
)

func TestConnectAndMigrateSQLite(t *testing.T) {
	cfg := &config.Config{
		Environment: "test",
		DBBackend:   config.DatabaseSQLite,
		DBDSN:       "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}

	database, err := Connect(cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer Close(database)

	if err := Migrate(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, table := range []string{"sellers", "products", "live_sellers", "live_selling_histories", "system_settings", "followers", "users"} {
		if !database.Migrator().HasTable(table) {
			t.Errorf("expected table %s to exist", table)
		}
	}

	var settings models.SystemSettings
	if err := database.First(&settings, 1).Error; err != nil {
		t.Fatalf("expected seeded settings row: %v", err)
	}
	if !settings.LiveNotificationsEnabled || settings.FakeViewerMax != 100 {
		t.Fatalf("unexpected seeded settings: %+v", settings)
	}

	// Migrating twice is a no-op.
	if err := Migrate(database); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	UpdateConnectionMetrics(database)
}

func TestConnectRejectsUnknownBackend(t *testing.T) {
	if _, err := Connect(&config.Config{DBBackend: "mongodb"}); err == nil {
		t.Fatal("expected unknown backend to fail")
	}
}
