// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sport Tournaments Contributors

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result label values for auth metrics.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Logins counts login attempts by result.
// Use RegisterMetrics to register this with a Prometheus registry.
var Logins = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authd_logins_total",
		Help: "Total number of login attempts by result",
	},
	[]string{"result"},
)

// RefreshRotations counts refresh-token rotations by result.
// Use RegisterMetrics to register this with a Prometheus registry.
var RefreshRotations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authd_refresh_rotations_total",
		Help: "Total number of refresh token rotations by result",
	},
	[]string{"result"},
)

// RefreshReuseDetected counts presentations of already-rotated refresh
// tokens. A nonzero rate is a signal of token theft or a misbehaving client.
// Use RegisterMetrics to register this with a Prometheus registry.
var RefreshReuseDetected = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "authd_refresh_reuse_detected_total",
		Help: "Total number of replayed already-rotated refresh tokens",
	},
)

// SessionsRevoked counts revoked sessions by cause.
// Use RegisterMetrics to register this with a Prometheus registry.
var SessionsRevoked = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authd_sessions_revoked_total",
		Help: "Total number of sessions revoked by cause",
	},
	[]string{"cause"},
)

// SessionsSwept counts expired session rows removed by the sweeper.
// Use RegisterMetrics to register this with a Prometheus registry.
var SessionsSwept = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "authd_sessions_swept_total",
		Help: "Total number of expired session rows purged",
	},
)

// RegisterMetrics registers auth package metrics with the given Prometheus
// registry. This must be called at startup to make metrics available on
// /metrics. Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Logins)
	reg.MustRegister(RefreshRotations)
	reg.MustRegister(RefreshReuseDetected)
	reg.MustRegister(SessionsRevoked)
	reg.MustRegister(SessionsSwept)
}
