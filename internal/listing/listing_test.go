package listing

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/models"
)

type staticSettings struct{ s models.SystemSettings }

func (p staticSettings) Current() models.SystemSettings { return p.s }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&models.Seller{}, &models.LiveSeller{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type sellerOpts struct {
	fake, live, block bool
	view              int64
}

func createSeller(t *testing.T, db *gorm.DB, o sellerOpts) *models.Seller {
	t.Helper()
	s := &models.Seller{
		ID:           uuid.NewString(),
		UserID:       uuid.NewString(),
		BusinessName: "Shop",
		IsLive:       o.live,
		IsFake:       o.fake,
		IsBlock:      o.block,
		LiveChannel:  uuid.NewString(),
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("create seller: %v", err)
	}
	if !o.fake {
		ls := &models.LiveSeller{
			ID:                   uuid.NewString(),
			SellerID:             s.ID,
			LiveSellingHistoryID: s.LiveChannel,
			Channel:              s.LiveChannel,
			LiveType:             models.LiveTypeNormal,
			View:                 o.view,
		}
		if err := db.Create(ls).Error; err != nil {
			t.Fatalf("create live seller: %v", err)
		}
	}
	return s
}

func TestListLivePagination(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 15; i++ {
		createSeller(t, db, sellerOpts{live: true, view: int64(i)})
	}
	for i := 0; i < 10; i++ {
		createSeller(t, db, sellerOpts{fake: true, live: true})
	}
	// Not listed.
	createSeller(t, db, sellerOpts{live: false})
	createSeller(t, db, sellerOpts{live: true, block: true})
	createSeller(t, db, sellerOpts{fake: true, live: true, block: true})
	createSeller(t, db, sellerOpts{fake: true, live: false})

	agg := NewAggregator(db, nil, zerolog.Nop())
	ctx := context.Background()

	tests := []struct {
		page, size int
		wantLen    int
	}{
		{1, 20, 20},
		{2, 20, 5},
		{3, 20, 0},
		{0, 0, 20}, // defaults
		{1, 500, 25},
		{math.MaxInt, 20, 0},
		{math.MaxInt/20 + 2, 20, 0},
		{math.MaxInt / 100, 100, 0},
	}

	for _, tt := range tests {
		got, err := agg.ListLive(ctx, Query{Page: tt.page, PageSize: tt.size})
		if err != nil {
			t.Fatalf("list page %d: %v", tt.page, err)
		}
		if got.Total != 25 {
			t.Fatalf("page %d size %d: total = %d, want 25", tt.page, tt.size, got.Total)
		}
		if len(got.Sellers) != tt.wantLen {
			t.Fatalf("page %d size %d: len = %d, want %d", tt.page, tt.size, len(got.Sellers), tt.wantLen)
		}
	}
}

func TestListLiveExcludesRequestingUser(t *testing.T) {
	db := newTestDB(t)
	me := createSeller(t, db, sellerOpts{live: true})
	createSeller(t, db, sellerOpts{live: true})

	got, err := NewAggregator(db, nil, zerolog.Nop()).ListLive(context.Background(), Query{ExcludeUserID: me.UserID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got.Total != 1 {
		t.Fatalf("expected one seller, got %d", got.Total)
	}
	if got.Sellers[0].SellerID == me.ID {
		t.Fatal("requesting user's own seller should be excluded")
	}
}

func TestListLiveSimulatedViewersAndOrdering(t *testing.T) {
	db := newTestDB(t)
	realSeller := createSeller(t, db, sellerOpts{live: true, view: 77})
	createSeller(t, db, sellerOpts{fake: true, live: true})
	createSeller(t, db, sellerOpts{fake: true, live: true})

	cfg := models.DefaultSystemSettings()
	cfg.FakeViewerMin = 30
	cfg.FakeViewerMax = 40

	agg := NewAggregator(db, staticSettings{cfg}, zerolog.Nop()).WithRand(rand.New(rand.NewSource(1)))
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		got, err := agg.ListLive(ctx, Query{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if got.Sellers[0].SellerID != realSeller.ID || got.Sellers[0].View != 77 {
			t.Fatalf("expected real seller first with stored views, got %+v", got.Sellers[0])
		}
		for _, e := range got.Sellers[1:] {
			if !e.IsFake || e.View < 30 || e.View > 40 {
				t.Fatalf("simulated viewer count out of range: %+v", e)
			}
		}
	}

	cfg.SimulatedFirst = true
	got, err := NewAggregator(db, staticSettings{cfg}, zerolog.Nop()).ListLive(ctx, Query{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !got.Sellers[0].IsFake || got.Sellers[len(got.Sellers)-1].SellerID != realSeller.ID {
		t.Fatal("expected simulated sellers first")
	}
}
