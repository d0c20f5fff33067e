package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Options struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// NewClient 创建Redis客户端；未配置 Host 时返回 nil，调用方按无缓存处理
func NewClient(opts *Options) (*redis.Client, error) {
	if opts.Host == "" {
		return nil, nil
	}

	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = 20
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: poolSize,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}

	return client, nil
}
