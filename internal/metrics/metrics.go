package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the funnel pipeline.
type Metrics struct {
	// Ingest metrics
	ClicksTracked    prometheus.Counter
	CheckoutIntents  prometheus.Counter
	Purchases        *prometheus.CounterVec
	Revenue          *prometheus.CounterVec
	SurveyResponses  *prometheus.CounterVec
	IngestFailures   *prometheus.CounterVec

	// Read-model metrics
	DashboardQueries  *prometheus.CounterVec
	DashboardLatency  *prometheus.HistogramVec
	DashboardCacheHit *prometheus.CounterVec

	// System metrics
	DBConnections *prometheus.GaugeVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

var (
	// DefaultMetrics is the global metrics instance
	DefaultMetrics *Metrics
)

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		ClicksTracked: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "clicks_tracked_total",
				Help:      "Total click sessions registered",
			},
		),
		CheckoutIntents: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checkout_intents_total",
				Help:      "Total checkout intents recorded",
			},
		),
		Purchases: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "purchases_total",
				Help:      "Total purchase webhooks ingested",
			},
			[]string{"attribution_source", "event"},
		),
		Revenue: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "revenue_total",
				Help:      "Total purchase revenue by currency",
			},
			[]string{"currency"},
		),
		SurveyResponses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "survey_responses_total",
				Help:      "Total survey responses ingested",
			},
			[]string{"qualification"},
		),
		IngestFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_failures_total",
				Help:      "Rejected ingest payloads by reason",
			},
			[]string{"endpoint", "reason"},
		),

		DashboardQueries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dashboard_queries_total",
				Help:      "Dashboard read-model queries",
			},
			[]string{"view"},
		),
		DashboardLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dashboard_latency_seconds",
				Help:      "Dashboard query latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"view"},
		),
		DashboardCacheHit: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dashboard_cache_total",
				Help:      "Dashboard cache lookups by outcome",
			},
			[]string{"outcome"}, // hit, miss, bypass
		),

		DBConnections: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections",
				Help:      "Database connection pool stats",
			},
			[]string{"state"}, // idle, in_use, total
		),

		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Rate limit rejections",
			},
			[]string{"endpoint", "ip"},
		),
	}

	DefaultMetrics = m
	return m
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordClick records a tracked click session.
func (m *Metrics) RecordClick() {
	m.ClicksTracked.Inc()
}

// RecordCheckoutIntent records a checkout intent.
func (m *Metrics) RecordCheckoutIntent() {
	m.CheckoutIntents.Inc()
}

// RecordPurchase records an ingested purchase webhook.
func (m *Metrics) RecordPurchase(attributionSource, event, currency string, amount float64) {
	m.Purchases.WithLabelValues(attributionSource, event).Inc()
	if amount > 0 {
		m.Revenue.WithLabelValues(currency).Add(amount)
	}
}

// RecordSurveyResponse records an ingested survey response.
func (m *Metrics) RecordSurveyResponse(qualification string) {
	m.SurveyResponses.WithLabelValues(qualification).Inc()
}

// RecordIngestFailure records a rejected ingest payload.
func (m *Metrics) RecordIngestFailure(endpoint, reason string) {
	m.IngestFailures.WithLabelValues(endpoint, reason).Inc()
}

// RecordDashboardQuery records a dashboard query and its latency.
func (m *Metrics) RecordDashboardQuery(view string, latency time.Duration) {
	m.DashboardQueries.WithLabelValues(view).Inc()
	m.DashboardLatency.WithLabelValues(view).Observe(latency.Seconds())
}

// RecordCacheOutcome records a dashboard cache lookup outcome.
func (m *Metrics) RecordCacheOutcome(outcome string) {
	m.DashboardCacheHit.WithLabelValues(outcome).Inc()
}

// UpdateDBStats updates database connection metrics.
func (m *Metrics) UpdateDBStats(idle, inUse, total int) {
	m.DBConnections.WithLabelValues("idle").Set(float64(idle))
	m.DBConnections.WithLabelValues("in_use").Set(float64(inUse))
	m.DBConnections.WithLabelValues("total").Set(float64(total))
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(endpoint, ip string) {
	m.RateLimitHits.WithLabelValues(endpoint, ip).Inc()
}
