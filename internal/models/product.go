/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Product is a canonical catalog item owned by a seller.
type Product struct {
	ID              string             `gorm:"type:uuid;primaryKey" json:"id"`
	SellerID        string             `gorm:"type:uuid;index:idx_product_seller_select" json:"sellerId"`
	Name            string             `gorm:"type:varchar(255)" json:"productName"`
	MainImage       string             `gorm:"type:text" json:"mainImage"`
	Price           float64            `json:"price"`
	Attributes      []ProductAttribute `gorm:"serializer:json" json:"attributes"`
	IsSelect        bool               `gorm:"index:idx_product_seller_select;default:false" json:"isSelect"`
	MinimumBidPrice float64            `json:"minimumBidPrice"`
	MinAuctionTime  int                `json:"minAuctionTime"` // seconds
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// TableName overrides for GORM.
func (Product) TableName() string {
	return "products"
}

// ProductAttribute is a named option set such as size or colour.
type ProductAttribute struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Valid reports whether the attribute has a name and at least one value.
func (a ProductAttribute) Valid() bool {
	return a.Name != "" && len(a.Values) > 0
}
