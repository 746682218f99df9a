package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gin-gonic/gin"
)

// 缓存与分析链路的核心指标，经 /metrics 暴露
var (
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fairodds_cache_hits_total",
		Help: "TTL内命中缓存的查询次数",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fairodds_cache_misses_total",
		Help: "缓存未命中（含过期）触发重算的次数",
	})
	StaleServes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fairodds_cache_stale_serves_total",
		Help: "重算失败后用过期缓存兜底的次数",
	})
	AnalysisFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fairodds_analysis_failures_total",
		Help: "对用户可见的分析失败次数，按原因分类",
	}, []string{"reason"})
	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fairodds_analysis_duration_seconds",
		Help:    "完整分析（取数+信号+混合）耗时",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})
)

// Handler 把prometheus默认Registry包装成gin处理函数
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
