package indexer

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeIndexed = "indexed"
	outcomeFailed  = "failed"
)

// Metrics exposes drain statistics to Prometheus. A nil *Metrics records nothing.
type Metrics struct {
	runs     prometheus.Counter
	messages *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics creates the indexer collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "apimgmt",
			Subsystem: "indexer",
			Name:      "runs_total",
			Help:      "Number of drain runs started.",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apimgmt",
			Subsystem: "indexer",
			Name:      "messages_total",
			Help:      "Drained messages by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "apimgmt",
			Subsystem: "indexer",
			Name:      "run_duration_seconds",
			Help:      "Duration of drain runs.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	var err error
	if m.runs, err = register(reg, m.runs); err != nil {
		return nil, err
	}
	if m.messages, err = register(reg, m.messages); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// register returns the already registered collector when c is a duplicate.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) runStarted() {
	if m != nil {
		m.runs.Inc()
	}
}

func (m *Metrics) processed(indexed, failed int) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(outcomeIndexed).Add(float64(indexed))
	m.messages.WithLabelValues(outcomeFailed).Add(float64(failed))
}

func (m *Metrics) observe(d time.Duration) {
	if m != nil {
		m.duration.Observe(d.Seconds())
	}
}
