// 包 utils：Redis 连接工具，统一由配置构建客户端并做启动探活
package utils

import (
	"context"
	"time"

	"vote-map/internal/config"
	"vote-map/internal/logger"

	"github.com/redis/go-redis/v9"
)

// OpenRedis：使用地址与密码打开 Redis 客户端
// 背景：保留直接传入参数的能力，用于测试与手工注入场景
func OpenRedis(addr, pass string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}

// OpenRedisFromConfig：按配置打开 Redis 客户端
// 约束：未启用时返回 nil；探活失败仅记录日志并仍返回客户端（缓存读写失败时按未命中处理）
func OpenRedisFromConfig(ctx context.Context, c *config.Config) *redis.Client {
	if !c.Redis.Enabled {
		logger.L().Info("redis_disabled")
		return nil
	}
	rc := OpenRedis(c.RedisAddr(), c.Redis.Pass, c.Redis.DB)
	logger.L().Debug("redis_env", "addr", c.RedisAddr(), "db", c.Redis.DB)
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pctx).Err(); err != nil {
		logger.L().Error("redis_ping_error", "err", err)
	} else {
		logger.L().Info("redis_ping_ok")
	}
	return rc
}
