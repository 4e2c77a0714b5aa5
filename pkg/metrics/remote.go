package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RemoteCallMetrics records latency and failures of CRM remote procedures.
type RemoteCallMetrics struct {
	duration *prometheus.HistogramVec
	failure  *prometheus.CounterVec
}

// NewRemoteCallMetrics registers the remote call metrics on the provided registerer.
func NewRemoteCallMetrics(reg prometheus.Registerer) *RemoteCallMetrics {
	if reg == nil {
		return &RemoteCallMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crm_call_duration_seconds",
		Help:    "Duration of CRM remote procedure calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"procedure"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_call_failures_total",
		Help: "Failed CRM remote procedure calls.",
	}, []string{"procedure"})
	reg.MustRegister(duration, failure)
	return &RemoteCallMetrics{
		duration: duration,
		failure:  failure,
	}
}

// Observe records one call; a non-nil err also counts as a failure.
func (m *RemoteCallMetrics) Observe(procedure string, duration time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	label := normalizeLabel(procedure)
	m.duration.WithLabelValues(label).Observe(duration.Seconds())
	if err != nil {
		m.failure.WithLabelValues(label).Inc()
	}
}

// ReloadMetrics counts reload requests and how many were folded into an in-flight fetch.
type ReloadMetrics struct {
	fetches *prometheus.CounterVec
	shared  *prometheus.CounterVec
}

// NewReloadMetrics registers the reload coalescing metrics on the provided registerer.
func NewReloadMetrics(reg prometheus.Registerer) *ReloadMetrics {
	if reg == nil {
		return &ReloadMetrics{}
	}
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "view_reload_fetches_total",
		Help: "Remote fetches executed for view reloads.",
	}, []string{"resource"})
	shared := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "view_reload_shared_total",
		Help: "Reload requests served by an already in-flight fetch.",
	}, []string{"resource"})
	reg.MustRegister(fetches, shared)
	return &ReloadMetrics{
		fetches: fetches,
		shared:  shared,
	}
}

// IncFetch counts an executed fetch.
func (m *ReloadMetrics) IncFetch(resource string) {
	if m == nil || m.fetches == nil {
		return
	}
	m.fetches.WithLabelValues(normalizeLabel(resource)).Inc()
}

// IncShared counts a request that joined an in-flight fetch.
func (m *ReloadMetrics) IncShared(resource string) {
	if m == nil || m.shared == nil {
		return
	}
	m.shared.WithLabelValues(normalizeLabel(resource)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
