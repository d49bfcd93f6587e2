/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/models"
	"gorm.io/gorm"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		// Collaborator entities
		&models.User{},
		&models.Follower{},
		&models.Seller{},
		&models.Product{},

		// Live session core
		&models.LiveSeller{},
		&models.LiveSellingHistory{},

		// Runtime settings
		&models.SystemSettings{},
	); err != nil {
		return err
	}

	if err := applyPostgresHistoryGuard(database); err != nil {
		return err
	}
	if _, err := models.GetSystemSettings(database); err != nil {
		return fmt.Errorf("seed system settings: %w", err)
	}

	return nil
}

// applyPostgresHistoryGuard rejects history rows that end before they start.
func applyPostgresHistoryGuard(database *gorm.DB) error {
	if database.Dialector.Name() != "postgres" {
		return nil
	}

	stmt := `
ALTER TABLE live_selling_histories DROP CONSTRAINT IF EXISTS chk_live_history_end_after_start;
ALTER TABLE live_selling_histories
  ADD CONSTRAINT chk_live_history_end_after_start
  CHECK (end_time IS NULL OR end_time >= start_time);
`
	if err := database.Exec(stmt).Error; err != nil {
		return fmt.Errorf("apply postgres history guard: %w", err)
	}

	return nil
}
