// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service counters and histograms. All metrics use
// the "rectify_" prefix.
//
// Each Server owns its registry so parallel test servers never fight
// over duplicate registrations.
type Metrics struct {
	registry *prometheus.Registry

	// HTTPRequestsTotal counts HTTP requests by method, path and status.
	HTTPRequestsTotal *prometheus.CounterVec

	// AnalysesTotal counts analyze operations by language.
	AnalysesTotal *prometheus.CounterVec

	// AnalysisDuration records analyze duration in seconds by language.
	AnalysisDuration *prometheus.HistogramVec

	// FixesTotal counts applied fixes by language.
	FixesTotal *prometheus.CounterVec

	// ScansTotal counts project scans by outcome.
	ScansTotal *prometheus.CounterVec
}

// NewMetrics registers all service metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rectify_http_requests_total",
			Help: "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rectify_analyses_total",
			Help: "Analyze operations by language.",
		}, []string{"language"}),
		AnalysisDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rectify_analysis_duration_seconds",
			Help:    "Analyze duration in seconds by language.",
			Buckets: prometheus.DefBuckets,
		}, []string{"language"}),
		FixesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rectify_fixes_total",
			Help: "Applied fixes by language.",
		}, []string{"language"}),
		ScansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rectify_scans_total",
			Help: "Project scans by outcome.",
		}, []string{"outcome"}),
	}
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
