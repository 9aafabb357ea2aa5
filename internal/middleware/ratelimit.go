package middleware

import (
	"net/http"

	"vote-map/internal/logger"
	"vote-map/internal/metrics"

	"golang.org/x/time/rate"
)

// 文档注释：令牌桶限流中间件（每秒）
// 背景：渲染市镇级地图需要遍历数万个要素，在流量峰值时对入口限速，避免 CPU 被打满；由配置开关与速率控制。
// 约束：不做队列排队，仅丢弃并返回 429；qps<=0 时不限流；突发容量与 qps 相同。
func RateLimit(qps int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if qps <= 0 {
			return next
		}
		lim := rate.NewLimiter(rate.Limit(qps), qps)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow() {
				metrics.RateLimitedTotal.Inc()
				logger.L().Debug("rate_limited", "path", r.URL.Path, "remote", r.RemoteAddr)
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
