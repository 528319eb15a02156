package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AccessMetrics records outcomes of the access-resolution engine.
type AccessMetrics struct {
	decisions        *prometheus.CounterVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	upstreamFailures *prometheus.CounterVec
}

// NewAccessMetrics registers the access metrics on the provided registerer.
func NewAccessMetrics(reg prometheus.Registerer) *AccessMetrics {
	if reg == nil {
		return &AccessMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_decisions_total",
		Help: "Access decisions by reason.",
	}, []string{"reason"})
	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "whitelist_cache_hits_total",
		Help: "Whitelist lookups served from the in-process cache.",
	})
	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "whitelist_cache_misses_total",
		Help: "Whitelist lookups that required an upstream fetch.",
	})
	upstreamFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_upstream_failures_total",
		Help: "Failed calls to external collaborators by source.",
	}, []string{"source"})
	reg.MustRegister(decisions, cacheHits, cacheMisses, upstreamFailures)
	return &AccessMetrics{
		decisions:        decisions,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		upstreamFailures: upstreamFailures,
	}
}

// IncDecision increments the decision counter for the given reason.
func (m *AccessMetrics) IncDecision(reason string) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncCacheHit records a whitelist cache hit.
func (m *AccessMetrics) IncCacheHit() {
	if m == nil || m.cacheHits == nil {
		return
	}
	m.cacheHits.Inc()
}

// IncCacheMiss records a whitelist cache miss.
func (m *AccessMetrics) IncCacheMiss() {
	if m == nil || m.cacheMisses == nil {
		return
	}
	m.cacheMisses.Inc()
}

// IncUpstreamFailure records a failed external call for the named source.
func (m *AccessMetrics) IncUpstreamFailure(source string) {
	if m == nil || m.upstreamFailures == nil {
		return
	}
	m.upstreamFailures.WithLabelValues(normalizeLabel(source)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
