/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trendycart"

// HTTP metrics
var (
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "endpoint", "status"})

	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "active_connections",
		Help:      "In-flight HTTP requests.",
	})

	APIWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "websocket_connections",
		Help:      "Open live event WebSocket connections.",
	})
)

// Database metrics
var (
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "query_duration_seconds",
		Help:      "Database operation latency by operation and table.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"operation", "table"})

	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "errors_total",
		Help:      "Failed database operations by operation and table.",
	}, []string{"operation", "table"})

	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "connections_open",
		Help:      "Open database connections.",
	})

	DatabaseConnectionsInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "connections_in_use",
		Help:      "Database connections currently in use.",
	})
)

// Live session metrics
var (
	LiveTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "live",
		Name:      "transitions_total",
		Help:      "Live session transitions by kind and result.",
	}, []string{"transition", "result"})

	LiveLockConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "live",
		Name:      "lock_conflicts_total",
		Help:      "Transitions rejected because another writer held the seller.",
	})

	LiveListingSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "live",
		Name:      "listing_sellers",
		Help:      "Combined real and simulated sellers in the most recent live listing.",
	})
)

// Notification metrics
var (
	NotificationsSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "submitted_total",
		Help:      "Notification submissions by result (queued, dropped).",
	}, []string{"result"})

	NotificationsDeliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "delivered_total",
		Help:      "Notification deliveries by result (sent, failed, skipped).",
	}, []string{"result"})
)

// Handler exposes metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
