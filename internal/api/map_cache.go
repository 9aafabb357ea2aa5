package api

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"vote-map/internal/logger"
	"vote-map/internal/metrics"
	"vote-map/internal/version"

	"github.com/redis/go-redis/v9"
)

// 文档注释：地图产物的 Redis 热点缓存
// 背景：渲染对输入为纯函数，同一选择的产物在进程生命周期内不变，可按选择参数直接缓存序列化后的 JSON。
// 约束：rc 为 nil 时所有操作为空操作；读写失败按未命中处理不影响主流程；键中带构建版本，升级后旧键自然失效。
type MapCache struct {
	rc  *redis.Client
	ttl time.Duration
}

func NewMapCache(rc *redis.Client, ttl time.Duration) *MapCache {
	return &MapCache{rc: rc, ttl: ttl}
}

// mapKey：缓存键（候选人/粒度/省/指标/主题）
type mapKey struct {
	Candidate  int
	Level      string
	Department string
	Metric     string
	Dark       bool
}

func (k mapKey) String() string {
	theme := "light"
	if k.Dark {
		theme = "dark"
	}
	return strings.Join([]string{
		"votemap", "map", version.Commit,
		strconv.Itoa(k.Candidate), k.Level, k.Department, k.Metric, theme,
	}, ":")
}

func (c *MapCache) Get(ctx context.Context, k mapKey) ([]byte, bool) {
	if c == nil || c.rc == nil {
		return nil, false
	}
	b, err := c.rc.Get(ctx, k.String()).Bytes()
	if err != nil || len(b) == 0 {
		if err != nil && !errors.Is(err, redis.Nil) {
			logger.L().Debug("map_cache_get_error", "key", k.String(), "err", err)
		}
		metrics.RedisMissesTotal.Inc()
		return nil, false
	}
	metrics.RedisHitsTotal.Inc()
	return b, true
}

func (c *MapCache) Set(ctx context.Context, k mapKey, b []byte) {
	if c == nil || c.rc == nil || c.ttl <= 0 {
		return
	}
	if err := c.rc.Set(ctx, k.String(), b, c.ttl).Err(); err != nil {
		logger.L().Debug("map_cache_set_error", "key", k.String(), "err", err)
	}
}
