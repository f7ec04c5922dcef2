package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dnstrail/dnstrail/evt"
	"github.com/dnstrail/dnstrail/util"
)

// RegisterEventListeners registers all metric handlers by the event bus
func RegisterEventListeners() {
	registerApplicationEventListeners()
	registerResolutionEventListeners()
	registerCachingEventListeners()
	registerBlockingEventListeners()
}

func registerApplicationEventListeners() {
	v := versionNumberGauge()
	RegisterMetric(v)

	subscribe(evt.ApplicationStarted, func(version, buildTime string) {
		v.WithLabelValues(version, buildTime).Set(1)
	})
}

func versionNumberGauge() *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dnstrail_build_info",
			Help: "Version number and build info",
		}, []string{"version", "build_time"},
	)
}

func registerResolutionEventListeners() {
	resolutionCount := resolutionCount()
	resolutionDuration := resolutionDurationHistogram()

	RegisterMetric(resolutionCount)
	RegisterMetric(resolutionDuration)

	subscribe(evt.ResolutionFinished, func(_, mode, responseType string, durationMs int64) {
		resolutionCount.WithLabelValues(mode, responseType).Inc()
		resolutionDuration.WithLabelValues(mode).Observe(float64(durationMs))
	})
}

func resolutionCount() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dnstrail_resolution_count",
			Help: "Number of processed resolutions",
		}, []string{"mode", "response_type"},
	)
}

func resolutionDurationHistogram() *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dnstrail_resolution_duration_ms",
			Help:    "Resolution duration distribution",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"mode"},
	)
}

func registerCachingEventListeners() {
	entryCount := cacheEntryCount()
	hitCount := cacheHitCount()
	missCount := cacheMissCount()

	RegisterMetric(entryCount)
	RegisterMetric(hitCount)
	RegisterMetric(missCount)

	subscribe(evt.CachingResultCacheHit, func(_ string) {
		hitCount.Inc()
	})

	subscribe(evt.CachingResultCacheMiss, func(_ string) {
		missCount.Inc()
	})

	subscribe(evt.CachingResultCacheChanged, func(cnt int) {
		entryCount.Set(float64(cnt))
	})
}

func cacheHitCount() prometheus.Counter {
	return prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dnstrail_cache_hit_count",
			Help: "Cache hit counter",
		},
	)
}

func cacheMissCount() prometheus.Counter {
	return prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dnstrail_cache_miss_count",
			Help: "Cache miss counter",
		},
	)
}

func cacheEntryCount() prometheus.Gauge {
	return prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dnstrail_cache_entry_count",
			Help: "Number of entries in cache",
		},
	)
}

func registerBlockingEventListeners() {
	denylistCnt := denylistGauge()
	RegisterMetric(denylistCnt)

	subscribe(evt.BlockingListChanged, func(cnt int) {
		denylistCnt.Set(float64(cnt))
	})
}

func denylistGauge() prometheus.Gauge {
	return prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dnstrail_denylist_entry_count",
			Help: "Number of blocked domains",
		},
	)
}

func subscribe(topic string, fn interface{}) {
	util.FatalOnError(fmt.Sprintf("can't subscribe topic '%s'", topic), evt.Bus().Subscribe(topic, fn))
}
