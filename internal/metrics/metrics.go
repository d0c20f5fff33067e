// Package metrics 汇总事件管道的 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GeoResolutions 按结果统计地理位置解析次数
	// outcome: cache_hit, lookup, miss, non_routable, invalid, degraded, error
	GeoResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muslink_geo_resolutions_total",
		Help: "Geolocation resolutions by outcome",
	}, []string{"outcome"})

	// GeoLookupDuration 本地地理库查询耗时
	GeoLookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "muslink_geo_lookup_duration_seconds",
		Help:    "Latency of geo database lookups",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
	})

	// GeoSharedCacheState 共享缓存熔断器状态 (0=closed, 1=half-open, 2=open)
	GeoSharedCacheState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "muslink_geo_shared_cache_breaker_state",
		Help: "Circuit breaker state of the shared geo cache",
	})

	// EventsRecorded 成功写入的事件数
	EventsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muslink_events_recorded_total",
		Help: "Events appended to the event log",
	}, []string{"type"})

	// EventRecordFailures 写入失败的事件数
	// stage: validate, persist
	EventRecordFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muslink_event_record_failures_total",
		Help: "Events that could not be recorded",
	}, []string{"type", "stage"})

	// EventQueueDepth 异步事件队列当前长度
	EventQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "muslink_event_queue_depth",
		Help: "Drafts waiting in the background event queue",
	})

	// EventQueueOverflow 队列已满时转为独立协程写入的次数
	EventQueueOverflow = promauto.NewCounter(prometheus.CounterOpts{
		Name: "muslink_event_queue_overflow_total",
		Help: "Drafts recorded outside the queue because it was full",
	})

	// Redirects 跳转请求结果
	Redirects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muslink_redirects_total",
		Help: "Redirect requests by kind and status",
	}, []string{"kind", "status"})
)
