package telemetry

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusStatsRecorder implements StatsRecorder on top of a Prometheus
// registry. Metrics are created lazily on first use; the label set of the
// first recording for a given name fixes that metric's label keys.
type PrometheusStatsRecorder struct {
	registerer prometheus.Registerer

	mu       sync.Mutex
	counters map[string]*prometheus.CounterVec
	timers   map[string]*prometheus.HistogramVec
	gauges   map[string]*prometheus.GaugeVec
}

// NewPrometheusStatsRecorder builds a recorder registering metrics with reg.
// Passing nil uses the default registerer.
func NewPrometheusStatsRecorder(reg prometheus.Registerer) *PrometheusStatsRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PrometheusStatsRecorder{
		registerer: reg,
		counters:   make(map[string]*prometheus.CounterVec),
		timers:     make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

func (r *PrometheusStatsRecorder) RecordCounterIncrement(tags map[string]string, name string) {
	labels := labelKeys(tags)
	r.mu.Lock()
	vec, ok := r.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: metricName(name)}, labels)
		r.registerer.MustRegister(vec)
		r.counters[name] = vec
	}
	r.mu.Unlock()
	vec.With(prometheus.Labels(tags)).Inc()
}

func (r *PrometheusStatsRecorder) RecordTimer(tags map[string]string, name string, value time.Duration) {
	labels := labelKeys(tags)
	r.mu.Lock()
	vec, ok := r.timers[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: metricName(name) + "_seconds"}, labels)
		r.registerer.MustRegister(vec)
		r.timers[name] = vec
	}
	r.mu.Unlock()
	vec.With(prometheus.Labels(tags)).Observe(value.Seconds())
}

func (r *PrometheusStatsRecorder) RecordGauge(tags map[string]string, name string, value float64) {
	labels := labelKeys(tags)
	r.mu.Lock()
	vec, ok := r.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: metricName(name)}, labels)
		r.registerer.MustRegister(vec)
		r.gauges[name] = vec
	}
	r.mu.Unlock()
	vec.With(prometheus.Labels(tags)).Set(value)
}

func metricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}

func labelKeys(tags map[string]string) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
