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

// HTTP API metrics.
var (
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_api_requests_total",
		Help: "Total number of API requests.",
	}, []string{"method", "endpoint", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skald_api_request_duration_seconds",
		Help:    "API request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skald_api_active_connections",
		Help: "Number of in-flight API requests.",
	})
)

// Database metrics, recorded by the gorm callbacks in internal/db.
var (
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skald_db_query_duration_seconds",
		Help:    "Database operation latency by operation and table.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_db_errors_total",
		Help: "Database errors by operation and kind.",
	}, []string{"operation", "kind"})

	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skald_db_connections_active",
		Help: "Open database connections.",
	})
)

// Playlist engine metrics.
var (
	PlaylistQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skald_playlist_query_duration_seconds",
		Help:    "Playlist view and preview computation latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"view"})

	PlaylistMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_playlist_mutations_total",
		Help: "Playlist mutations by operation and outcome.",
	}, []string{"operation", "outcome"})

	AutoDownloadSelectedEpisodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skald_autodownload_selected_episodes",
		Help: "Episode count returned by the last auto-download selection.",
	})

	WatcherActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skald_playlist_active_watchers",
		Help: "Number of live playlist view subscriptions.",
	})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
