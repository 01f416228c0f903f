package metric

import (
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type (
	PrometheusOption func(*prometheusRegistry)

	prometheusRegistry struct {
		registerer prometheus.Registerer
		namespace  string
		buckets    []float64

		mu         sync.Mutex
		counters   map[string]*prometheus.CounterVec
		histograms map[string]*prometheus.HistogramVec
	}

	prometheusMetrics struct {
		registry *prometheusRegistry
		labels   Labels
	}
)

func WithNamespace(namespace string) PrometheusOption {
	return func(r *prometheusRegistry) {
		r.namespace = namespace
	}
}

func WithBuckets(buckets []float64) PrometheusOption {
	return func(r *prometheusRegistry) {
		r.buckets = buckets
	}
}

// NewPrometheus creates collectors lazily, one per metric key and label set.
func NewPrometheus(registerer prometheus.Registerer, opts ...PrometheusOption) Metrics {
	r := &prometheusRegistry{
		registerer: registerer,
		buckets:    prometheus.DefBuckets,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
	for _, opt := range opts {
		opt(r)
	}

	return prometheusMetrics{registry: r}
}

func (m prometheusMetrics) With(labels Labels) Metrics {
	merged := make(Labels, len(m.labels)+len(labels))
	maps.Copy(merged, m.labels)
	maps.Copy(merged, labels)

	return prometheusMetrics{
		registry: m.registry,
		labels:   merged,
	}
}

func (m prometheusMetrics) Increment(key string) {
	counter := m.registry.counter(key, labelNames(m.labels))
	if counter == nil {
		return
	}

	counter.With(prometheus.Labels(m.labels)).Inc()
}

func (m prometheusMetrics) Duration(key string, duration time.Duration) {
	histogram := m.registry.histogram(key, labelNames(m.labels))
	if histogram == nil {
		return
	}

	histogram.With(prometheus.Labels(m.labels)).Observe(duration.Seconds())
}

func (r *prometheusRegistry) counter(key string, labels []string) *prometheus.CounterVec {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := collectorID(key, labels)
	if counter, ok := r.counters[id]; ok {
		return counter
	}

	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      key,
		Help:      key,
	}, labels)
	counter, ok := register(r.registerer, counter)
	if !ok {
		return nil
	}

	r.counters[id] = counter
	return counter
}

func (r *prometheusRegistry) histogram(key string, labels []string) *prometheus.HistogramVec {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := collectorID(key, labels)
	if histogram, ok := r.histograms[id]; ok {
		return histogram
	}

	histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      key,
		Help:      key,
		Buckets:   r.buckets,
	}, labels)
	histogram, ok := register(r.registerer, histogram)
	if !ok {
		return nil
	}

	r.histograms[id] = histogram
	return histogram
}

// register returns the already registered collector when an identical one exists.
// A collector conflicting by labels is dropped.
func register[T prometheus.Collector](registerer prometheus.Registerer, collector T) (T, bool) {
	err := registerer.Register(collector)
	if err == nil {
		return collector, true
	}

	var alreadyRegistered prometheus.AlreadyRegisteredError
	if errors.As(err, &alreadyRegistered) {
		existing, ok := alreadyRegistered.ExistingCollector.(T)
		return existing, ok
	}

	var blank T
	return blank, false
}

func labelNames(labels Labels) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func collectorID(key string, labels []string) string {
	return key + "|" + strings.Join(labels, ",")
}
