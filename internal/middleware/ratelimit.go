package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"muslink-platform/internal/config"
)

// 内存中最多保留的客户端限流器数量，超过后清理闲置的
const maxTrackedClients = 10000

// RateLimit 按客户端地址限流。配置了 Redis 时用固定窗口计数，多实例共享配额；
// Redis 不可用时退回进程内的令牌桶
func RateLimit(redisClient *redis.Client, limitConfig *config.Limit) gin.HandlerFunc {
	if !limitConfig.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	local := newClientLimiters(limitConfig.Requests, limitConfig.Burst)
	window := &redisWindow{client: redisClient, limit: limitConfig.Requests + limitConfig.Burst}

	return func(c *gin.Context) {
		// 跳过特定路径
		for _, path := range limitConfig.SkipPaths {
			if strings.HasPrefix(c.Request.URL.Path, path) {
				c.Next()
				return
			}
		}

		client := c.ClientIP()
		allowed, err := window.allow(c.Request.Context(), client)
		if err != nil {
			if !errors.Is(err, errNoRedis) {
				zap.S().Debugw("限流计数失败，使用本地限流", "error", err)
			}
			allowed = local.allow(client)
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "请求过于频繁，请稍后再试",
			})
			return
		}

		c.Next()
	}
}

// redisWindow 每分钟一个计数窗口
type redisWindow struct {
	client *redis.Client
	limit  int64
}

var errNoRedis = errors.New("ratelimit: redis not configured")

func (w *redisWindow) allow(ctx context.Context, client string) (bool, error) {
	if w.client == nil {
		return false, errNoRedis
	}

	ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	key := "ratelimit:" + client + ":" + strconv.FormatInt(time.Now().Unix()/60, 10)
	pipe := w.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= w.limit, nil
}

// clientLimiters 进程内的按客户端令牌桶
type clientLimiters struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*trackedLimiter
}

type trackedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiters(perMinute, burst int64) *clientLimiters {
	if burst <= 0 {
		burst = 1
	}
	return &clientLimiters{
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    int(burst),
		limiters: make(map[string]*trackedLimiter),
	}
}

func (l *clientLimiters) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	tracked, ok := l.limiters[client]
	if !ok {
		if len(l.limiters) >= maxTrackedClients {
			l.evictIdle(now)
		}
		tracked = &trackedLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[client] = tracked
	}
	tracked.lastSeen = now
	return tracked.limiter.AllowN(now, 1)
}

// evictIdle 清理超过一分钟未出现的客户端
func (l *clientLimiters) evictIdle(now time.Time) {
	for client, tracked := range l.limiters {
		if now.Sub(tracked.lastSeen) > time.Minute {
			delete(l.limiters, client)
		}
	}
}
