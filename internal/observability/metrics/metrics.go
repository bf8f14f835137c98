package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReceiptMetrics exposes counters/histograms for the decision receipt flows.
type ReceiptMetrics struct {
	receiptsTotal     *prometheus.CounterVec
	inferenceFailures prometheus.Counter
	inferenceLatency  prometheus.Histogram
	reviewsTotal      *prometheus.CounterVec
}

func NewReceiptMetrics(reg prometheus.Registerer) *ReceiptMetrics {
	m := &ReceiptMetrics{
		receiptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adrs",
			Subsystem: "receipts",
			Name:      "created_total",
			Help:      "Total decision receipts created",
		}, []string{"intent"}),
		inferenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adrs",
			Subsystem: "inference",
			Name:      "failures_total",
			Help:      "Total failed inference invocations",
		}),
		inferenceLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "adrs",
			Subsystem: "inference",
			Name:      "latency_seconds",
			Help:      "Latency of inference backend invocations",
			Buckets:   prometheus.DefBuckets,
		}),
		reviewsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adrs",
			Subsystem: "reviews",
			Name:      "total",
			Help:      "Total receipt reviews by terminal status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.receiptsTotal, m.inferenceFailures, m.inferenceLatency, m.reviewsTotal)
	return m
}

func (m *ReceiptMetrics) ObserveReceiptCreated(intent string) {
	if m == nil {
		return
	}
	m.receiptsTotal.WithLabelValues(intent).Inc()
}

func (m *ReceiptMetrics) ObserveInferenceFailure() {
	if m == nil {
		return
	}
	m.inferenceFailures.Inc()
}

func (m *ReceiptMetrics) ObserveInferenceLatency(seconds float64) {
	if m == nil {
		return
	}
	m.inferenceLatency.Observe(seconds)
}

func (m *ReceiptMetrics) ObserveReview(status string) {
	if m == nil {
		return
	}
	m.reviewsTotal.WithLabelValues(status).Inc()
}
