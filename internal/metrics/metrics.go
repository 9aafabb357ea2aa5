package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MapRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "votemap_map_requests_total",
		Help: "Total number of map requests by granularity",
	}, []string{"level"})
	MapRequestErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "votemap_map_request_errors_total",
		Help: "Map requests rejected by reason",
	}, []string{"reason"})
	RenderDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "votemap_render_duration_ms",
		Help:    "Map render duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2000},
	})
	EmptyMapsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "votemap_empty_maps_total",
		Help: "Total number of rendered maps without any coloured feature",
	})
	JoinUnmatchedFeaturesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "votemap_join_unmatched_features_total",
		Help: "Geometry features drawn with the no-data fill",
	}, []string{"level"})
	JoinUnmatchedRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "votemap_join_unmatched_rows_total",
		Help: "Result rows without a matching geometry feature",
	}, []string{"level"})
	RedisHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "votemap_redis_hits_total",
		Help: "Total redis map cache hits",
	})
	RedisMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "votemap_redis_misses_total",
		Help: "Total redis map cache misses",
	})
	LocateTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "votemap_locate_total",
		Help: "Locate lookups by outcome",
	}, []string{"outcome"})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "votemap_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})
)

func init() {
	prometheus.MustRegister(MapRequestsTotal)
	prometheus.MustRegister(MapRequestErrorsTotal)
	prometheus.MustRegister(RenderDurationMs)
	prometheus.MustRegister(EmptyMapsTotal)
	prometheus.MustRegister(JoinUnmatchedFeaturesTotal)
	prometheus.MustRegister(JoinUnmatchedRowsTotal)
	prometheus.MustRegister(RedisHitsTotal)
	prometheus.MustRegister(RedisMissesTotal)
	prometheus.MustRegister(LocateTotal)
	prometheus.MustRegister(RateLimitedTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
