/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"strings"
	"time"
)

// Seller is a marketplace seller profile. Profile fields are owned by seller
// management; the live fields are mutated by the live session service.
type Seller struct {
	ID           string `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       string `gorm:"type:uuid;index" json:"userId"`
	FirstName    string `gorm:"type:varchar(100)" json:"firstName"`
	LastName     string `gorm:"type:varchar(100)" json:"lastName"`
	BusinessName string `gorm:"type:varchar(255)" json:"businessName"`
	BusinessTag  string `gorm:"type:varchar(100)" json:"businessTag"`
	Image        string `gorm:"type:text" json:"image"`

	// Live state
	IsLive           bool              `gorm:"index:idx_seller_live_listing;default:false" json:"isLive"`
	LiveChannel      string            `gorm:"type:varchar(64)" json:"channel"`
	SelectedProducts []SelectedProduct `gorm:"serializer:json" json:"selectedProducts"`
	LiveVersion      int64             `gorm:"not null;default:0" json:"-"`

	// Simulated (demo) sellers populate the live feed with a canned stream.
	IsFake       bool   `gorm:"index:idx_seller_live_listing;default:false" json:"isFake"`
	FakeVideoURL string `gorm:"type:text" json:"videoUrl,omitempty"`

	IsBlock bool `gorm:"index:idx_seller_live_listing;default:false" json:"isBlock"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName overrides for GORM.
func (Seller) TableName() string {
	return "sellers"
}

// DisplayName returns the seller's full name.
func (s *Seller) DisplayName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}
