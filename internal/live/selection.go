/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package live

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/catalog"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/models"
)

// applySelection is the one path both GoLive and UpdateSelection take to
// change which products a seller offers. A nil productIDs keeps the current
// flags. Writes are scoped by seller_id so other sellers' products never move.
func applySelection(ctx context.Context, tx *gorm.DB, sellerID string, productIDs []string) ([]models.SelectedProduct, error) {
	if productIDs != nil {
		if err := tx.WithContext(ctx).Model(&models.Product{}).
			Where("seller_id = ?", sellerID).
			Update("is_select", false).Error; err != nil {
			return nil, fmt.Errorf("clear selection: %w", err)
		}

		if len(productIDs) > 0 {
			if err := tx.WithContext(ctx).Model(&models.Product{}).
				Where("seller_id = ? AND id IN ?", sellerID, productIDs).
				Update("is_select", true).Error; err != nil {
				return nil, fmt.Errorf("set selection: %w", err)
			}
		}
	}

	var products []models.Product
	if err := tx.WithContext(ctx).
		Where("seller_id = ? AND is_select = ?", sellerID, true).
		Order("created_at ASC, id ASC").
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("query selected products: %w", err)
	}

	if len(products) == 0 {
		return nil, ErrNoProductsSelected
	}
	if err := catalog.Validate(products); err != nil {
		return nil, err
	}

	return catalog.Snapshot(products), nil
}

// liveState is the part of a seller row the live service owns.
type liveState struct {
	IsLive   bool
	Channel  string
	Selected []models.SelectedProduct
}

// compareAndSwapSeller writes state only if the seller's live_version still
// matches the one read, then bumps it.
func compareAndSwapSeller(ctx context.Context, tx *gorm.DB, seller *models.Seller, state liveState, now time.Time) error {
	selected := state.Selected
	if selected == nil {
		selected = []models.SelectedProduct{}
	}
	next := seller.LiveVersion + 1

	result := tx.WithContext(ctx).Model(&models.Seller{}).
		Where("id = ? AND live_version = ?", seller.ID, seller.LiveVersion).
		Select("is_live", "live_channel", "selected_products", "live_version", "updated_at").
		Updates(&models.Seller{
			IsLive:           state.IsLive,
			LiveChannel:      state.Channel,
			SelectedProducts: selected,
			LiveVersion:      next,
			UpdatedAt:        now,
		})
	if result.Error != nil {
		return fmt.Errorf("update seller: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}

	seller.IsLive = state.IsLive
	seller.LiveChannel = state.Channel
	seller.SelectedProducts = selected
	seller.LiveVersion = next
	seller.UpdatedAt = now
	return nil
}
