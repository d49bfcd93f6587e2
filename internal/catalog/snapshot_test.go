package catalog

import (
	"errors"
	"reflect"
	"testing"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/models"
)

func TestSnapshotDefaults(t *testing.T) {
	tests := []struct {
		name        string
		product     models.Product
		wantMinBid  float64
		wantMinTime int
	}{
		{"bid defaults to price", models.Product{ID: "p1", Price: 100}, 100, 60},
		{"zero auction time defaults", models.Product{ID: "p2", Price: 100, MinAuctionTime: 0}, 100, 60},
		{"explicit values kept", models.Product{ID: "p3", Price: 100, MinimumBidPrice: 40, MinAuctionTime: 90}, 40, 90},
		{"negative values default", models.Product{ID: "p4", Price: 25, MinimumBidPrice: -1, MinAuctionTime: -5}, 25, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Snapshot([]models.Product{tt.product})
			if len(got) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(got))
			}
			entry := got[0]
			if entry.MinimumBidPrice != tt.wantMinBid {
				t.Errorf("MinimumBidPrice = %v, want %v", entry.MinimumBidPrice, tt.wantMinBid)
			}
			if entry.MinAuctionTime != tt.wantMinTime {
				t.Errorf("MinAuctionTime = %v, want %v", entry.MinAuctionTime, tt.wantMinTime)
			}
			if entry.ProductStatus != models.ProductPending {
				t.Errorf("ProductStatus = %q, want pending", entry.ProductStatus)
			}
			if entry.WinnerUserID != nil || entry.WinningBid != 0 {
				t.Errorf("expected empty auction result, got winner=%v bid=%v", entry.WinnerUserID, entry.WinningBid)
			}
		})
	}
}

func TestSnapshotCopiesFieldsAndIsDeterministic(t *testing.T) {
	products := []models.Product{{
		ID:        "p1",
		Name:      "Linen shirt",
		MainImage: "https://cdn.example.com/shirt.png",
		Price:     49.5,
		Attributes: []models.ProductAttribute{
			{Name: "size", Values: []string{"S", "M", "L"}},
		},
	}}

	first := Snapshot(products)
	second := Snapshot(products)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("snapshot not deterministic:\n%+v\n%+v", first, second)
	}
	if first[0].ProductName != "Linen shirt" || first[0].MainImage != products[0].MainImage || first[0].Price != 49.5 {
		t.Fatalf("fields not copied: %+v", first[0])
	}

	// Editing the catalog afterwards must not leak into the snapshot.
	products[0].Attributes[0].Values[0] = "XS"
	if first[0].ProductAttributes[0].Values[0] != "S" {
		t.Fatalf("snapshot shares attribute storage with the catalog")
	}
}

func TestValidate(t *testing.T) {
	good := models.Product{ID: "ok", Attributes: []models.ProductAttribute{{Name: "colour", Values: []string{"red"}}}}
	noKey := models.Product{ID: "nokey", Attributes: []models.ProductAttribute{{Name: "", Values: []string{"red"}}}}
	noValues := models.Product{ID: "novalues", Attributes: []models.ProductAttribute{{Name: "colour"}}}

	if err := Validate([]models.Product{good, {ID: "bare"}}); err != nil {
		t.Fatalf("Validate(good) = %v", err)
	}
	for _, bad := range []models.Product{noKey, noValues} {
		err := Validate([]models.Product{good, bad})
		if !errors.Is(err, ErrInvalidAttributes) {
			t.Errorf("Validate(%s) = %v, want ErrInvalidAttributes", bad.ID, err)
		}
	}
}

func TestCarryKeepsAuctionState(t *testing.T) {
	winner := "buyer-1"
	prev := []models.SelectedProduct{
		{ProductID: "p1", ProductStatus: models.ProductCompleted, WinnerUserID: &winner, WinningBid: 120},
		{ProductID: "gone", ProductStatus: models.ProductRequeued},
	}
	next := Snapshot([]models.Product{{ID: "p1", Price: 100}, {ID: "p2", Price: 10}})

	got := Carry(prev, next)
	if got[0].ProductStatus != models.ProductCompleted || got[0].WinningBid != 120 || got[0].WinnerUserID == nil {
		t.Fatalf("expected completed state carried over, got %+v", got[0])
	}
	if got[1].ProductStatus != models.ProductPending {
		t.Fatalf("expected new product to be pending, got %q", got[1].ProductStatus)
	}
}
