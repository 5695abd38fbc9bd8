package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the support core.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec

	verifications *prometheus.CounterVec
	solutions     *prometheus.CounterVec
	escalations   *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	sessions      *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "support_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "support_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "support_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "support_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		verifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "support_verifications_total",
				Help: "Verification outcomes by issue type.",
			},
			[]string{"issue", "outcome"},
		),
		solutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "support_solutions_total",
				Help: "Computed solutions by type.",
			},
			[]string{"type"},
		),
		escalations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "support_escalations_total",
				Help: "Escalations by priority.",
			},
			[]string{"priority"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "support_fallbacks_total",
				Help: "Fail-open fallbacks taken, by stage.",
			},
			[]string{"stage"},
		),
		sessions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "support_sessions_total",
				Help: "Session lifecycle events.",
			},
			[]string{"event"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrVerification records a verification outcome for an issue type.
func (m *Metrics) IncrVerification(issue string, verified bool) {
	outcome := "rejected"
	if verified {
		outcome = "verified"
	}
	m.verifications.WithLabelValues(issue, outcome).Inc()
}

// IncrSolution records a computed solution type.
func (m *Metrics) IncrSolution(solutionType string) {
	m.solutions.WithLabelValues(solutionType).Inc()
}

// IncrEscalation records an escalation with its priority.
func (m *Metrics) IncrEscalation(priority string) {
	m.escalations.WithLabelValues(priority).Inc()
}

// IncrFallback records a fail-open fallback at the given pipeline stage.
func (m *Metrics) IncrFallback(stage string) {
	m.fallbacks.WithLabelValues(stage).Inc()
}

// IncrSession records a session lifecycle event (started, ended).
func (m *Metrics) IncrSession(event string) {
	m.sessions.WithLabelValues(event).Inc()
}

// DecisionSnapshot is a point-in-time view of the decision counters,
// served by GET /v1/metrics/decisions.
type DecisionSnapshot struct {
	Verified        int64   `json:"verified"`
	Rejected        int64   `json:"rejected"`
	Refunds         int64   `json:"refunds"`
	Redeliveries    int64   `json:"redeliveries"`
	Credits         int64   `json:"credits"`
	Escalations     int64   `json:"escalations"`
	Fallbacks       int64   `json:"fallbacks"`
	VerifiedRate    float64 `json:"verified_rate"`
	SessionsStarted int64   `json:"sessions_started"`
	SessionsEnded   int64   `json:"sessions_ended"`
}

// GetDecisionSnapshot gathers current counter values for the snapshot
// endpoint. Prometheus counters expose cumulative values.
func (m *Metrics) GetDecisionSnapshot() *DecisionSnapshot {
	verified := sumCounter(m.verifications, func(labels map[string]string) bool {
		return labels["outcome"] == "verified"
	})
	rejected := sumCounter(m.verifications, func(labels map[string]string) bool {
		return labels["outcome"] == "rejected"
	})

	snap := &DecisionSnapshot{
		Verified:        int64(verified),
		Rejected:        int64(rejected),
		Refunds:         int64(getCounterValue(m.solutions, "REFUND")),
		Redeliveries:    int64(getCounterValue(m.solutions, "REDELIVERY")),
		Credits:         int64(getCounterValue(m.solutions, "CREDIT")),
		Escalations:     int64(getCounterValue(m.escalations, "HIGH") + getCounterValue(m.escalations, "MEDIUM") + getCounterValue(m.escalations, "LOW")),
		Fallbacks:       int64(sumCounter(m.fallbacks, func(map[string]string) bool { return true })),
		SessionsStarted: int64(getCounterValue(m.sessions, "started")),
		SessionsEnded:   int64(getCounterValue(m.sessions, "ended")),
	}
	if total := verified + rejected; total > 0 {
		snap.VerifiedRate = verified / total
	}
	return snap
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounter sums all series of a CounterVec whose labels match the filter.
func sumCounter(cv *prometheus.CounterVec, match func(labels map[string]string) bool) float64 {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	var total float64
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil {
			continue
		}
		labels := make(map[string]string, len(m.Label))
		for _, l := range m.Label {
			labels[l.GetName()] = l.GetValue()
		}
		if match(labels) && m.Counter != nil && m.Counter.Value != nil {
			total += *m.Counter.Value
		}
	}
	return total
}
