/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"fmt"
	"time"
)

// LiveSellingHistory records one broadcast. It is immutable once closed.
type LiveSellingHistory struct {
	ID              string     `gorm:"type:uuid;primaryKey" json:"id"`
	SellerID        string     `gorm:"type:uuid;index" json:"sellerId"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime"` // NULL while the session is open
	TotalUser       int64      `gorm:"default:0" json:"totalUser"`
	LiveComments    int64      `gorm:"default:0" json:"liveComments"`
	DurationSeconds int64      `gorm:"default:0" json:"durationSeconds"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// TableName overrides for GORM.
func (LiveSellingHistory) TableName() string {
	return "live_selling_histories"
}

// IsClosed reports whether the broadcast has ended.
func (h *LiveSellingHistory) IsClosed() bool {
	return h.EndTime != nil
}

// Duration returns the stored duration of a closed broadcast.
func (h *LiveSellingHistory) Duration() time.Duration {
	return time.Duration(h.DurationSeconds) * time.Second
}

// FormatDuration renders d as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
