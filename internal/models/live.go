/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"strings"
	"time"
)

// LiveType is the kind of broadcast a seller runs.
type LiveType string

const (
	LiveTypeNormal  LiveType = "Normal"
	LiveTypeAuction LiveType = "Auction"
)

// ParseLiveType accepts the canonical names case-insensitively.
func ParseLiveType(raw string) (LiveType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "normal", "1":
		return LiveTypeNormal, true
	case "auction", "2":
		return LiveTypeAuction, true
	}
	return "", false
}

// ProductStatus is the auction lifecycle of a product offered in a session.
type ProductStatus string

const (
	ProductPending   ProductStatus = "pending"
	ProductCompleted ProductStatus = "completed"
	ProductRequeued  ProductStatus = "requeued"
)

// productTransitions lists the allowed forward moves. Completed is terminal.
var productTransitions = map[ProductStatus][]ProductStatus{
	ProductPending:  {ProductCompleted, ProductRequeued},
	ProductRequeued: {ProductPending, ProductCompleted},
}

// Valid reports whether s is a known status.
func (s ProductStatus) Valid() bool {
	return s == ProductPending || s == ProductCompleted || s == ProductRequeued
}

// CanTransitionTo reports whether a product may move from s to next.
func (s ProductStatus) CanTransitionTo(next ProductStatus) bool {
	for _, allowed := range productTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SelectedProduct is the point-in-time copy of a product embedded in a live
// session and in the seller's selection.
type SelectedProduct struct {
	ProductID         string             `json:"productId"`
	ProductName       string             `json:"productName"`
	MainImage         string             `json:"mainImage"`
	Price             float64            `json:"price"`
	ProductAttributes []ProductAttribute `json:"productAttributes"`
	MinimumBidPrice   float64            `json:"minimumBidPrice"`
	MinAuctionTime    int                `json:"minAuctionTime"`
	ProductStatus     ProductStatus      `json:"productStatus"`
	WinnerUserID      *string            `json:"winnerUserId"`
	WinningBid        float64            `json:"winningBid"`
}

// LiveSeller is the active or most recent broadcast of a seller.
// There is at most one row per seller.
type LiveSeller struct {
	ID                   string            `gorm:"type:uuid;primaryKey" json:"id"`
	SellerID             string            `gorm:"type:uuid;uniqueIndex" json:"sellerId"`
	Seller               *Seller           `gorm:"foreignKey:SellerID" json:"-"`
	LiveSellingHistoryID string            `gorm:"type:uuid;index" json:"liveSellingHistoryId"`
	Channel              string            `gorm:"type:varchar(64)" json:"channel"`
	AgoraUID             int64             `json:"agoraUID"`
	LiveType             LiveType          `gorm:"type:varchar(16)" json:"liveType"`
	SelectedProducts     []SelectedProduct `gorm:"serializer:json" json:"selectedProducts"`
	View                 int64             `gorm:"default:0" json:"view"`
	CreatedAt            time.Time         `json:"createdAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
}

// TableName overrides for GORM.
func (LiveSeller) TableName() string {
	return "live_sellers"
}

// FindProduct returns the index of the entry for productID, or -1.
func (ls *LiveSeller) FindProduct(productID string) int {
	for i := range ls.SelectedProducts {
		if ls.SelectedProducts[i].ProductID == productID {
			return i
		}
	}
	return -1
}
