package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics exports cart store activity to Prometheus.
type CartMetrics struct {
	mutations       *prometheus.CounterVec
	clamps          *prometheus.CounterVec
	storageFailures *prometheus.CounterVec
}

// NewCartMetrics registers the cart counters on reg. A nil reg yields a
// recorder that drops everything.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cartstore",
		Name:      "mutations_total",
		Help:      "Committed cart mutations by operation.",
	}, []string{"op"})
	clamps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cartstore",
		Name:      "clamps_total",
		Help:      "Quantities reduced to satisfy a stock cap, by operation.",
	}, []string{"op"})
	storageFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cartstore",
		Name:      "storage_failures_total",
		Help:      "Failed durable reads and writes, by operation.",
	}, []string{"op"})
	reg.MustRegister(mutations, clamps, storageFailures)
	return &CartMetrics{
		mutations:       mutations,
		clamps:          clamps,
		storageFailures: storageFailures,
	}
}

func (m *CartMetrics) IncMutation(op string) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.WithLabelValues(normalizeLabel(op)).Inc()
}

func (m *CartMetrics) IncClamp(op string) {
	if m == nil || m.clamps == nil {
		return
	}
	m.clamps.WithLabelValues(normalizeLabel(op)).Inc()
}

func (m *CartMetrics) IncStorageFailure(op string) {
	if m == nil || m.storageFailures == nil {
		return
	}
	m.storageFailures.WithLabelValues(normalizeLabel(op)).Inc()
}

func normalizeLabel(op string) string {
	op = strings.TrimSpace(strings.ToLower(op))
	if op == "" {
		return "unknown"
	}
	return op
}
