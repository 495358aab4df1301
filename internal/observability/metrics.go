// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Snapshot refresh metrics
	RefreshesTotal        *prometheus.CounterVec
	RefreshDuration       *prometheus.HistogramVec
	LastSuccessfulRefresh prometheus.Gauge

	// Drop state metrics
	ClaimedSupply   prometheus.Gauge
	UnclaimedSupply prometheus.Gauge
	RenderState     *prometheus.GaugeVec

	// Chain metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec

	// Claim metrics
	ClaimsTotal   *prometheus.CounterVec
	ClaimDuration prometheus.Histogram
	TokensMinted  prometheus.Counter

	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith registers the metrics with reg instead of the default
// registry.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "drop_mint"
	}
	factory := promauto.With(reg)

	return &Metrics{
		RefreshesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "view",
			Name:      "refreshes_total",
			Help:      "Total number of snapshot refreshes by trigger and status",
		}, []string{"trigger", "status"}),
		RefreshDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "view",
			Name:      "refresh_duration_seconds",
			Help:      "Snapshot refresh duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"trigger"}),
		LastSuccessfulRefresh: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of last complete snapshot refresh",
		}),

		ClaimedSupply: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "drop",
			Name:      "claimed_supply",
			Help:      "Number of tokens claimed so far",
		}),
		UnclaimedSupply: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "drop",
			Name:      "unclaimed_supply",
			Help:      "Number of tokens still available to claim",
		}),
		RenderState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "view",
			Name:      "render_state",
			Help:      "Current page state (1 for the active state, 0 otherwise)",
		}, []string{"state"}),

		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "evm",
			Name:      "rpc_call_latency_seconds",
			Help:      "JSON-RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evm",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed JSON-RPC calls",
		}, []string{"method"}),

		ClaimsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "claim",
			Name:      "attempts_total",
			Help:      "Total number of claim attempts by outcome",
		}, []string{"outcome"}),
		ClaimDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "claim",
			Name:      "duration_seconds",
			Help:      "Claim duration from submission to receipt in seconds",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}),
		TokensMinted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "claim",
			Name:      "tokens_minted_total",
			Help:      "Total number of tokens minted through the page",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "method", "code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// Claim outcomes.
const (
	ClaimSuccess = "success"
	ClaimFailure = "failure"
)

// Refresh statuses.
const (
	RefreshOK    = "ok"
	RefreshError = "error"
	RefreshStale = "stale"
)

// RecordRefresh records a snapshot refresh.
func (m *Metrics) RecordRefresh(trigger, status string, seconds float64, unix int64) {
	m.RefreshesTotal.WithLabelValues(trigger, status).Inc()
	m.RefreshDuration.WithLabelValues(trigger).Observe(seconds)
	if status == RefreshOK {
		m.LastSuccessfulRefresh.Set(float64(unix))
	}
}

// SetSupply updates the supply gauges.
func (m *Metrics) SetSupply(claimed, unclaimed uint64) {
	m.ClaimedSupply.Set(float64(claimed))
	m.UnclaimedSupply.Set(float64(unclaimed))
}

// SetRenderState marks current as the active state among all.
func (m *Metrics) SetRenderState(current string, all ...string) {
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		m.RenderState.WithLabelValues(s).Set(v)
	}
}

// RecordRPCLatency records a JSON-RPC call.
func (m *Metrics) RecordRPCLatency(method string, seconds float64, err error) {
	m.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		m.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordClaim records a claim attempt.
func (m *Metrics) RecordClaim(outcome string, minted int, seconds float64) {
	m.ClaimsTotal.WithLabelValues(outcome).Inc()
	m.ClaimDuration.Observe(seconds)
	if minted > 0 {
		m.TokensMinted.Add(float64(minted))
	}
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(route, method string, code int, seconds float64) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(seconds)
}

// RecordRPCLatency records a JSON-RPC call on DefaultMetrics.
func RecordRPCLatency(method string, seconds float64, err error) {
	DefaultMetrics.RecordRPCLatency(method, seconds, err)
}

// RecordClaim records a claim attempt on DefaultMetrics.
func RecordClaim(outcome string, minted int, seconds float64) {
	DefaultMetrics.RecordClaim(outcome, minted, seconds)
}
