/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog projects catalog products into the snapshot embedded in a
// live session, so later catalog edits do not leak into a running broadcast.
package catalog

import (
	"errors"
	"fmt"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/models"
)

// DefaultMinAuctionTime is the auction duration in seconds used when a
// product does not specify one.
const DefaultMinAuctionTime = 60

// ErrInvalidAttributes indicates a product attribute lacks a name or values.
var ErrInvalidAttributes = errors.New("product attributes must have a name and at least one value")

// Snapshot maps products to session entries. It has no side effects and the
// result only depends on the input.
func Snapshot(products []models.Product) []models.SelectedProduct {
	out := make([]models.SelectedProduct, 0, len(products))
	for _, p := range products {
		out = append(out, project(p))
	}
	return out
}

func project(p models.Product) models.SelectedProduct {
	minBid := p.MinimumBidPrice
	if minBid <= 0 {
		minBid = p.Price
	}
	minTime := p.MinAuctionTime
	if minTime <= 0 {
		minTime = DefaultMinAuctionTime
	}

	return models.SelectedProduct{
		ProductID:         p.ID,
		ProductName:       p.Name,
		MainImage:         p.MainImage,
		Price:             p.Price,
		ProductAttributes: copyAttributes(p.Attributes),
		MinimumBidPrice:   minBid,
		MinAuctionTime:    minTime,
		ProductStatus:     models.ProductPending,
		WinnerUserID:      nil,
		WinningBid:        0,
	}
}

func copyAttributes(attrs []models.ProductAttribute) []models.ProductAttribute {
	if attrs == nil {
		return []models.ProductAttribute{}
	}
	out := make([]models.ProductAttribute, len(attrs))
	for i, a := range attrs {
		out[i] = models.ProductAttribute{
			Name:   a.Name,
			Values: append([]string(nil), a.Values...),
		}
	}
	return out
}

// Validate checks every attribute of every product. The first offending
// product is reported.
func Validate(products []models.Product) error {
	for _, p := range products {
		for _, attr := range p.Attributes {
			if !attr.Valid() {
				return fmt.Errorf("%w: product %s attribute %q", ErrInvalidAttributes, p.ID, attr.Name)
			}
		}
	}
	return nil
}

// Carry copies the auction state of entries already offered in prev onto the
// matching entries of next. Products new to the selection stay pending.
func Carry(prev, next []models.SelectedProduct) []models.SelectedProduct {
	if len(prev) == 0 {
		return next
	}
	byID := make(map[string]models.SelectedProduct, len(prev))
	for _, entry := range prev {
		byID[entry.ProductID] = entry
	}
	for i := range next {
		old, ok := byID[next[i].ProductID]
		if !ok {
			continue
		}
		next[i].ProductStatus = old.ProductStatus
		next[i].WinnerUserID = old.WinnerUserID
		next[i].WinningBid = old.WinningBid
	}
	return next
}
