/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"time"

	"gorm.io/gorm"
)

// SystemSettings stores runtime-configurable platform settings.
// Uses singleton pattern with a fixed ID=1 row.
type SystemSettings struct {
	ID                       int    `gorm:"primaryKey" yaml:"-"`
	FakeViewerMin            int    `gorm:"default:10" yaml:"fake_viewer_min"`
	FakeViewerMax            int    `gorm:"default:100" yaml:"fake_viewer_max"`
	SimulatedFirst           bool   `gorm:"default:false" yaml:"simulated_first"`
	LiveNotificationsEnabled bool   `gorm:"default:true" yaml:"live_notifications_enabled"`
	LiveNotificationTitle    string `gorm:"type:varchar(255);default:'%s is live now'" yaml:"live_notification_title"`
	LiveNotificationBody     string `gorm:"type:varchar(255);default:'Tap to join the live show and shop.'" yaml:"live_notification_body"`

	CreatedAt time.Time `yaml:"-"`
	UpdatedAt time.Time `yaml:"-"`
}

// TableName returns the table name for GORM.
func (SystemSettings) TableName() string {
	return "system_settings"
}

// Normalize clamps the viewer range into a usable shape.
func (s *SystemSettings) Normalize() {
	if s.FakeViewerMin < 0 {
		s.FakeViewerMin = 0
	}
	if s.FakeViewerMax < s.FakeViewerMin {
		s.FakeViewerMax = s.FakeViewerMin
	}
}

// DefaultSystemSettings returns the values a fresh installation starts with.
func DefaultSystemSettings() SystemSettings {
	return SystemSettings{
		ID:                       1,
		FakeViewerMin:            10,
		FakeViewerMax:            100,
		LiveNotificationsEnabled: true,
		LiveNotificationTitle:    "%s is live now",
		LiveNotificationBody:     "Tap to join the live show and shop.",
	}
}

// GetSystemSettings retrieves the singleton settings row, creating it if it doesn't exist.
func GetSystemSettings(db *gorm.DB) (*SystemSettings, error) {
	var settings SystemSettings
	result := db.Where(SystemSettings{ID: 1}).Attrs(DefaultSystemSettings()).FirstOrCreate(&settings)
	if result.Error != nil {
		return nil, result.Error
	}
	return &settings, nil
}
