package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

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
	if err := db.AutoMigrate(&models.Seller{}, &models.LiveSellingHistory{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createSeller(t *testing.T, db *gorm.DB) *models.Seller {
	t.Helper()
	seller := &models.Seller{
		ID:           uuid.NewString(),
		UserID:       uuid.NewString(),
		FirstName:    "Ada",
		LastName:     "Lovelace",
		BusinessName: "Analytical Goods",
		BusinessTag:  "@analytical",
		Image:        "https://cdn.example.com/ada.png",
	}
	if err := db.Create(seller).Error; err != nil {
		t.Fatalf("create seller: %v", err)
	}
	return seller
}

func TestOpenThenCloseComputesDuration(t *testing.T) {
	db := newTestDB(t)
	seller := createSeller(t, db)
	rec := NewRecorder(db, zerolog.Nop())
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	opened, err := rec.Open(ctx, seller.ID, start)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if opened.ID == "" || opened.IsClosed() {
		t.Fatalf("expected open record with id, got %+v", opened)
	}

	end := start.Add(1*time.Hour + 2*time.Minute + 3*time.Second)
	closed, err := rec.Close(ctx, opened.ID, end, Counters{TotalUser: 42, LiveComments: 7})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !closed.IsClosed() {
		t.Fatal("expected end time to be set")
	}
	if closed.Duration() != end.Sub(start) {
		t.Fatalf("duration = %v, want %v", closed.Duration(), end.Sub(start))
	}

	stored, err := rec.Get(ctx, opened.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.EndTime == nil || !stored.EndTime.Equal(end) {
		t.Fatalf("stored end time = %v, want %v", stored.EndTime, end)
	}
	if stored.TotalUser != 42 || stored.LiveComments != 7 {
		t.Fatalf("counters not stored: %+v", stored)
	}
}

func TestCloseTwiceKeepsFirstDuration(t *testing.T) {
	db := newTestDB(t)
	seller := createSeller(t, db)
	rec := NewRecorder(db, zerolog.Nop())
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	opened, err := rec.Open(ctx, seller.ID, start)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := rec.Close(ctx, opened.ID, start.Add(10*time.Minute), Counters{TotalUser: 3}); err != nil {
		t.Fatalf("first close: %v", err)
	}

	again, err := rec.Close(ctx, opened.ID, start.Add(5*time.Hour), Counters{TotalUser: 999})
	if err != nil {
		t.Fatalf("second close: %v", err)
	}
	if again.Duration() != 10*time.Minute || again.TotalUser != 3 {
		t.Fatalf("second close changed the record: %+v", again)
	}
}

func TestCloseClampsEndBeforeStart(t *testing.T) {
	db := newTestDB(t)
	seller := createSeller(t, db)
	rec := NewRecorder(db, zerolog.Nop())
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	opened, err := rec.Open(ctx, seller.ID, start)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	closed, err := rec.Close(ctx, opened.ID, start.Add(-time.Minute), Counters{})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Duration() != 0 || !closed.EndTime.Equal(start) {
		t.Fatalf("expected clamped close, got %+v", closed)
	}
}

func TestUnknownHistory(t *testing.T) {
	rec := NewRecorder(newTestDB(t), zerolog.Nop())
	ctx := context.Background()

	if _, err := rec.Close(ctx, uuid.NewString(), time.Now(), Counters{}); !errors.Is(err, ErrHistoryNotFound) {
		t.Fatalf("close: expected ErrHistoryNotFound, got %v", err)
	}
	if _, err := rec.Metrics(ctx, uuid.NewString()); !errors.Is(err, ErrHistoryNotFound) {
		t.Fatalf("metrics: expected ErrHistoryNotFound, got %v", err)
	}
}

// Seller display fields are joined at read time, not snapshotted. A profile
// change after the broadcast shows up in the analytics projection.
func TestMetricsReflectsCurrentSellerProfile(t *testing.T) {
	db := newTestDB(t)
	seller := createSeller(t, db)
	rec := NewRecorder(db, zerolog.Nop())
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	opened, err := rec.Open(ctx, seller.ID, start)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := rec.Close(ctx, opened.ID, start.Add(90*time.Second), Counters{TotalUser: 11, LiveComments: 4}); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := db.Model(&models.Seller{}).Where("id = ?", seller.ID).Update("business_name", "Difference Engines").Error; err != nil {
		t.Fatalf("rename seller: %v", err)
	}

	m, err := rec.Metrics(ctx, opened.ID)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.Seller.BusinessName != "Difference Engines" {
		t.Fatalf("expected current business name, got %q", m.Seller.BusinessName)
	}
	if m.Seller.FirstName != "Ada" || m.Seller.BusinessTag != "@analytical" {
		t.Fatalf("unexpected seller summary: %+v", m.Seller)
	}
	if m.Duration != "00:01:30" || m.TotalUser != 11 || m.Comment != 4 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	db := newTestDB(t)
	seller := createSeller(t, db)
	rec := NewRecorder(db, zerolog.Nop())
	ctx := context.Background()

	sentinel := errors.New("abort")
	var openedID string
	err := db.Transaction(func(tx *gorm.DB) error {
		opened, err := rec.WithTx(tx).Open(ctx, seller.ID, time.Now())
		if err != nil {
			return err
		}
		openedID = opened.ID
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	if _, err := rec.Get(ctx, openedID); !errors.Is(err, ErrHistoryNotFound) {
		t.Fatalf("expected rolled back history, got %v", err)
	}
}
