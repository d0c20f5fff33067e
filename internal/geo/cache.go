package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"muslink-platform/internal/metrics"
)

// Cache 解析结果缓存，按地址字符串作键
type Cache interface {
	Get(ctx context.Context, key string) (Location, bool)
	Set(ctx context.Context, key string, loc Location)
}

// MemoryCache 进程内带 TTL 的有界缓存
type MemoryCache struct {
	client *ristretto.Cache[string, Location]
	ttl    time.Duration
}

// NewMemoryCache 创建进程内缓存，maxEntries 为最多保留的地址数
func NewMemoryCache(maxEntries int64, ttl time.Duration) (*MemoryCache, error) {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	client, err := ristretto.NewCache(&ristretto.Config[string, Location]{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("创建地理缓存失败: %w", err)
	}
	return &MemoryCache{client: client, ttl: ttl}, nil
}

// Get 读取缓存
func (c *MemoryCache) Get(_ context.Context, key string) (Location, bool) {
	return c.client.Get(key)
}

// Set 写入缓存并等待写缓冲落地，保证随后的 Get 可见
func (c *MemoryCache) Set(_ context.Context, key string, loc Location) {
	if c.client.SetWithTTL(key, loc, 1, c.ttl) {
		c.client.Wait()
	}
}

// Close 释放缓存
func (c *MemoryCache) Close() {
	c.client.Close()
}

const redisKeyPrefix = "geo:"

// RedisCache 多实例共享的缓存层，外面包一层熔断器，Redis 故障时快速跳过
type RedisCache struct {
	rdb     *redis.Client
	ttl     time.Duration
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[string]
	logger  *zap.SugaredLogger
}

// NewRedisCache 创建共享缓存
func NewRedisCache(rdb *redis.Client, ttl time.Duration, logger *zap.SugaredLogger) *RedisCache {
	c := &RedisCache{
		rdb:     rdb,
		ttl:     ttl,
		timeout: 50 * time.Millisecond,
		logger:  logger.Named("geo_shared_cache"),
	}
	c.cb = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "geo-redis",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warnf("熔断器 %s 状态变化: %s -> %s", name, from, to)
			metrics.GeoSharedCacheState.Set(float64(to))
		},
	})
	return c
}

// Get 读取共享缓存；熔断打开、键不存在或解码失败都按未命中处理
func (c *RedisCache) Get(ctx context.Context, key string) (Location, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	val, err := c.cb.Execute(func() (string, error) {
		return c.rdb.Get(ctx, redisKeyPrefix+key).Result()
	})
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, gobreaker.ErrOpenState) {
			c.logger.Debugf("读取共享缓存失败: %v", err)
		}
		return Location{}, false
	}

	var loc Location
	if err := json.Unmarshal([]byte(val), &loc); err != nil {
		return Location{}, false
	}
	return loc, true
}

// Set 写入共享缓存，失败只记录日志
func (c *RedisCache) Set(ctx context.Context, key string, loc Location) {
	data, err := json.Marshal(loc)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err = c.cb.Execute(func() (string, error) {
		return c.rdb.Set(ctx, redisKeyPrefix+key, data, c.ttl).Result()
	})
	if err != nil && !errors.Is(err, gobreaker.ErrOpenState) {
		c.logger.Debugf("写入共享缓存失败: %v", err)
	}
}
