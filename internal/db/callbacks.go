/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"errors"
	"time"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/telemetry"
	"gorm.io/gorm"
)

const (
	_startTime = "trendycart:start_time"
)

// RegisterCallbacks registers telemetry callbacks for GORM operations.
func RegisterCallbacks(db *gorm.DB) error {
	cb := db.Callback()

	return errors.Join(
		cb.Query().Before("gorm:query").Register("telemetry:before_query", beforeCallback),
		cb.Query().After("gorm:query").Register("telemetry:after_query", afterCallback("query")),

		cb.Create().Before("gorm:create").Register("telemetry:before_create", beforeCallback),
		cb.Create().After("gorm:create").Register("telemetry:after_create", afterCallback("create")),

		cb.Update().Before("gorm:update").Register("telemetry:before_update", beforeCallback),
		cb.Update().After("gorm:update").Register("telemetry:after_update", afterCallback("update")),

		cb.Delete().Before("gorm:delete").Register("telemetry:before_delete", beforeCallback),
		cb.Delete().After("gorm:delete").Register("telemetry:after_delete", afterCallback("delete")),

		cb.Raw().Before("gorm:raw").Register("telemetry:before_raw", beforeCallback),
		cb.Raw().After("gorm:raw").Register("telemetry:after_raw", afterCallback("raw")),
	)
}

// beforeCallback records the start time before a database operation.
func beforeCallback(db *gorm.DB) {
	db.InstanceSet(_startTime, time.Now())
}

// afterCallback records duration and failures once the operation completes.
func afterCallback(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		startTimeValue, exists := db.InstanceGet(_startTime)
		if !exists {
			return
		}
		startTime, ok := startTimeValue.(time.Time)
		if !ok {
			return
		}

		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}

		telemetry.DatabaseQueryDuration.WithLabelValues(operation, table).Observe(time.Since(startTime).Seconds())

		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			telemetry.DatabaseErrorsTotal.WithLabelValues(operation, table).Inc()
		}
	}
}

// UpdateConnectionMetrics refreshes the connection pool gauges.
func UpdateConnectionMetrics(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}

	stats := sqlDB.Stats()
	telemetry.DatabaseConnectionsActive.Set(float64(stats.OpenConnections))
	telemetry.DatabaseConnectionsInUse.Set(float64(stats.InUse))
}
