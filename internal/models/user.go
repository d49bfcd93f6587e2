/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// User is a marketplace account. Only the fields needed for live
// notifications are modelled here.
type User struct {
	ID                string    `gorm:"type:uuid;primaryKey"`
	FirstName         string    `gorm:"type:varchar(100)"`
	LastName          string    `gorm:"type:varchar(100)"`
	FCMToken          string    `gorm:"type:text"`
	LiveNotifications bool      `gorm:"default:true"`
	IsBlock           bool      `gorm:"default:false"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName overrides for GORM.
func (User) TableName() string {
	return "users"
}

// Follower links a user to a seller they follow.
type Follower struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	UserID    string `gorm:"type:uuid;uniqueIndex:idx_follower_pair"`
	SellerID  string `gorm:"type:uuid;uniqueIndex:idx_follower_pair;index"`
	CreatedAt time.Time
}

// TableName overrides for GORM.
func (Follower) TableName() string {
	return "followers"
}
