// Package metrics holds the Prometheus collectors for verification runs.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joseph-ayodele/cert-verifier/internal/entity"
)

const namespace = "certverify"

type Metrics struct {
	verdicts     *prometheus.CounterVec
	hashGate     *prometheus.CounterVec
	linkChecks   *prometheus.CounterVec
	stageSeconds *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Verification verdicts by status and mode.",
		}, []string{"status", "mode"}),
		hashGate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hashgate_lookups_total",
			Help:      "Fingerprint lookups by result (hit, miss, error).",
		}, []string{"result"}),
		linkChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_checks_total",
			Help:      "Probed URLs by outcome (strong, reachable, unreachable, timeout).",
		}, []string{"outcome"}),
		stageSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"stage"}),
	}
	if reg != nil {
		reg.MustRegister(m.verdicts, m.hashGate, m.linkChecks, m.stageSeconds)
	}
	return m
}

func (m *Metrics) ObserveVerdict(v entity.Verdict) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(string(v.Status), string(v.Mode)).Inc()
}

// ObserveHashGate records "hit", "miss" or "error".
func (m *Metrics) ObserveHashGate(result string) {
	if m == nil {
		return
	}
	m.hashGate.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveLinkChecks(results []entity.LinkCheckResult, timeoutError string) {
	if m == nil {
		return
	}
	for _, r := range results {
		outcome := "unreachable"
		switch {
		case r.Strong():
			outcome = "strong"
		case r.Reachable:
			outcome = "reachable"
		case r.Error != nil && *r.Error == timeoutError:
			outcome = "timeout"
		}
		m.linkChecks.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageSeconds.WithLabelValues(stage).Observe(d.Seconds())
}
