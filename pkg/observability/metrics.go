/*
Package observability provides Prometheus instrumentation for the signing
pipeline.

Metrics are optional: every recording method is nil-safe, so library components
carry a *Metrics without guarding call sites.
*/
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline stages used as the label of the failure counter.
const (
	StagePermission = "permission"
	StageNonce      = "nonce"
	StageEncode     = "encode"
	StageSign       = "sign"
	StageSubmit     = "submit"
	StageFinality   = "finality"
)

// Metrics instruments the transaction signing pipeline.
type Metrics struct {
	signedTotal    prometheus.Counter
	submittedTotal prometheus.Counter
	failuresTotal  *prometheus.CounterVec
	signDuration   prometheus.Histogram
}

// NewMetrics creates pipeline metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		signedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "selector",
			Name:      "transactions_signed_total",
			Help:      "Transactions successfully signed.",
		}),
		submittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "selector",
			Name:      "transactions_submitted_total",
			Help:      "Transactions successfully submitted and finalized.",
		}),
		failuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "selector",
			Name:      "pipeline_failures_total",
			Help:      "Signing pipeline failures by stage.",
		}, []string{"stage"}),
		signDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "selector",
			Name:      "sign_duration_seconds",
			Help:      "Wall time of external signing round-trips.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
	reg.MustRegister(m.signedTotal, m.submittedTotal, m.failuresTotal, m.signDuration)
	return m
}

// TransactionSigned records one successful signing round-trip.
func (m *Metrics) TransactionSigned(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.signedTotal.Inc()
	m.signDuration.Observe(elapsed.Seconds())
}

// TransactionSubmitted records one finalized submission.
func (m *Metrics) TransactionSubmitted() {
	if m == nil {
		return
	}
	m.submittedTotal.Inc()
}

// PipelineFailure records a failure attributed to a pipeline stage.
func (m *Metrics) PipelineFailure(stage string) {
	if m == nil {
		return
	}
	m.failuresTotal.WithLabelValues(stage).Inc()
}
