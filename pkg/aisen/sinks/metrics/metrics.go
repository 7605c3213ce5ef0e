// Package metrics provides a sink wrapper that exports Prometheus counters
// for recorded events and their exception records.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/strongdm/ai-cxdb-exceptions/pkg/aisen"
)

const namespace = "aisen"

// Metrics holds the collectors registered for exception reporting.
type Metrics struct {
	events        *prometheus.CounterVec
	exceptions    *prometheus.CounterVec
	chainLength   prometheus.Histogram
	writeFailures prometheus.Counter
	dropped       prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Total error events recorded",
			},
			[]string{"severity", "error_type"},
		),
		exceptions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exceptions_total",
				Help:      "Total exception records by error class",
			},
			[]string{"error_class"},
		),
		chainLength: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "exception_chain_length",
				Help:      "Number of exception records per event",
				Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 64},
			},
		),
		writeFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sink_write_failures_total",
				Help:      "Total events the wrapped sink failed to write",
			},
		),
		dropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_dropped_total",
				Help:      "Total events dropped due to queue overflow",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.events, m.exceptions, m.chainLength, m.writeFailures, m.dropped} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// OnDropped counts events discarded by a bounded queue. It matches the
// signature of async.WithOnDropped.
func (m *Metrics) OnDropped(count int) {
	m.dropped.Add(float64(count))
}

// Observe counts one event.
func (m *Metrics) Observe(event aisen.ErrorEvent) {
	m.events.WithLabelValues(string(event.Severity), event.ErrorType).Inc()
	m.chainLength.Observe(float64(event.Exceptions.Len()))
	for exc := range event.Exceptions.All() {
		m.exceptions.WithLabelValues(exc.ErrorClass()).Inc()
	}
}

// Wrap returns a sink that observes every event before delegating to inner.
func (m *Metrics) Wrap(inner aisen.Sink) aisen.Sink {
	return &metricsSink{inner: inner, metrics: m}
}

type metricsSink struct {
	inner   aisen.Sink
	metrics *Metrics
}

func (s *metricsSink) Write(ctx context.Context, event aisen.ErrorEvent) error {
	s.metrics.Observe(event)
	if err := s.inner.Write(ctx, event); err != nil {
		s.metrics.writeFailures.Inc()
		return err
	}
	return nil
}

func (s *metricsSink) Flush(ctx context.Context) error {
	return s.inner.Flush(ctx)
}

func (s *metricsSink) Close() error {
	return s.inner.Close()
}
