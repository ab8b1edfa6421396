package serializers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution results recorded by Metrics.
const (
	ResultMatched       = "matched"
	ResultDefault       = "default"
	ResultDeferred      = "deferred"
	ResultNotAcceptable = "not_acceptable"
)

// Metrics holds the prometheus collectors for serializer resolution. A nil *Metrics
// records nothing.
type Metrics struct {
	resolutionsTotal  *prometheus.CounterVec
	cacheLookupsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the resolution collectors with registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		resolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "spanaccept",
				Name:      "resolutions_total",
				Help:      "Total number of response serializer resolutions by result",
			},
			[]string{"result"},
		),
		cacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "spanaccept",
				Name:      "cache_lookups_total",
				Help:      "Total number of resolution cache lookups by registry scope",
			},
			[]string{"scope", "result"},
		),
	}
}

// ResolutionsTotal exposes the resolution counter, mainly for tests.
func (metrics *Metrics) ResolutionsTotal() *prometheus.CounterVec {
	return metrics.resolutionsTotal
}

// CacheLookupsTotal exposes the cache lookup counter, mainly for tests.
func (metrics *Metrics) CacheLookupsTotal() *prometheus.CounterVec {
	return metrics.cacheLookupsTotal
}

func (metrics *Metrics) recordResolution(result string) {
	if metrics == nil {
		return
	}
	metrics.resolutionsTotal.WithLabelValues(result).Inc()
}

func (metrics *Metrics) recordCacheLookup(scope string, hit bool) {
	if metrics == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	metrics.cacheLookupsTotal.WithLabelValues(scope, result).Inc()
}
