// Package metrics 定义 QueryFlow 的 Prometheus 指标集合。
// Collector 的所有方法对 nil 接收者安全，未启用指标时直接注入 nil。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector 聚合服务的全部业务指标.
type Collector struct {
	queriesTotal     *prometheus.CounterVec
	queryDuration    prometheus.Histogram
	stepDuration     *prometheus.HistogramVec
	retrieverResults *prometheus.CounterVec
	fallbackTotal    *prometheus.CounterVec
	cacheSize        prometheus.Gauge
}

// NewCollector 创建并注册全部指标.
// registry 为 nil 时使用默认注册表.
func NewCollector(registry *prometheus.Registry) *Collector {
	c := &Collector{
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "queryflow",
			Name:      "queries_total",
			Help:      "Total processed queries by terminal status.",
		}, []string{"status"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "queryflow",
			Name:      "query_duration_seconds",
			Help:      "End-to-end query processing latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "queryflow",
			Name:      "step_duration_seconds",
			Help:      "Per-step execution latency of the query state machine.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
		retrieverResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "queryflow",
			Name:      "retriever_results_total",
			Help:      "Documents produced per retriever.",
		}, []string{"retriever"}),
		fallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "queryflow",
			Name:      "fallback_total",
			Help:      "Degraded-path activations per component.",
		}, []string{"component"}),
		cacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "queryflow",
			Name:      "cache_documents",
			Help:      "Documents currently held by the similarity cache.",
		}),
	}

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	if registry != nil {
		registerer = registry
	}
	registerer.MustRegister(
		c.queriesTotal,
		c.queryDuration,
		c.stepDuration,
		c.retrieverResults,
		c.fallbackTotal,
		c.cacheSize,
	)
	return c
}

// RecordQuery 记录一次查询的终态与耗时.
func (c *Collector) RecordQuery(status string, seconds float64) {
	if c == nil {
		return
	}
	c.queriesTotal.WithLabelValues(status).Inc()
	c.queryDuration.Observe(seconds)
}

// RecordStep 记录一个状态机步骤的耗时.
func (c *Collector) RecordStep(step string, seconds float64) {
	if c == nil {
		return
	}
	c.stepDuration.WithLabelValues(step).Observe(seconds)
}

// RecordRetrieverResults 记录某检索器产出的文档数.
func (c *Collector) RecordRetrieverResults(retriever string, count int) {
	if c == nil {
		return
	}
	c.retrieverResults.WithLabelValues(retriever).Add(float64(count))
}

// RecordFallback 记录一次降级路径触发.
func (c *Collector) RecordFallback(component string) {
	if c == nil {
		return
	}
	c.fallbackTotal.WithLabelValues(component).Inc()
}

// SetCacheSize 更新缓存文档数.
func (c *Collector) SetCacheSize(size int) {
	if c == nil {
		return
	}
	c.cacheSize.Set(float64(size))
}
