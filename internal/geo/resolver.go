package geo

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"muslink-platform/internal/metrics"
)

// Options 解析器构造参数
type Options struct {
	CacheTTL        time.Duration
	CacheMaxEntries int64
	LookupTimeout   time.Duration
	// Shared 可选的共享缓存层（Redis），位于进程内缓存之后
	Shared Cache
}

// Resolver 把客户端地址解析成 (国家, 城市)。
// 它是一个全函数：非法地址、内网地址、查询失败、超时都返回 Unknown，从不向调用方报错。
type Resolver struct {
	locator Locator
	local   *MemoryCache
	shared  Cache
	group   singleflight.Group
	timeout time.Duration
	logger  *zap.SugaredLogger
}

// NewResolver 创建解析器，缓存随实例创建，不依赖全局状态
func NewResolver(locator Locator, logger *zap.SugaredLogger, opts Options) (*Resolver, error) {
	if locator == nil {
		locator = NopLocator{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 200 * time.Millisecond
	}

	local, err := NewMemoryCache(opts.CacheMaxEntries, opts.CacheTTL)
	if err != nil {
		return nil, err
	}

	return &Resolver{
		locator: locator,
		local:   local,
		shared:  opts.Shared,
		timeout: opts.LookupTimeout,
		logger:  logger.Named("geo_resolver"),
	}, nil
}

// Resolve 解析一个候选地址（通常来自 ClientIP）
func (r *Resolver) Resolve(ctx context.Context, raw string) Location {
	addr, ok := ParseAddr(raw)
	if !ok {
		metrics.GeoResolutions.WithLabelValues("invalid").Inc()
		return Unknown
	}
	if !Classify(addr).Routable() {
		metrics.GeoResolutions.WithLabelValues("non_routable").Inc()
		return Unknown
	}

	key := addr.String()
	if loc, ok := r.cached(ctx, key); ok {
		metrics.GeoResolutions.WithLabelValues("cache_hit").Inc()
		return loc
	}

	// 同一地址的并发解析合并为一次查询。查询本身不受调用方超时影响，
	// 超时的调用方先拿 Unknown 返回，查询完成后结果照常进入缓存
	ch := r.group.DoChan(key, func() (any, error) {
		return r.lookup(key, addr)
	})

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	select {
	case res := <-ch:
		if res.Err != nil {
			metrics.GeoResolutions.WithLabelValues("error").Inc()
			return Unknown
		}
		return res.Val.(Location)
	case <-ctx.Done():
		metrics.GeoResolutions.WithLabelValues("degraded").Inc()
		r.logger.Debugf("地址 %s 解析超时，按未知处理", key)
		return Unknown
	}
}

func (r *Resolver) cached(ctx context.Context, key string) (Location, bool) {
	if loc, ok := r.local.Get(ctx, key); ok {
		return loc, true
	}
	if r.shared == nil {
		return Location{}, false
	}
	loc, ok := r.shared.Get(ctx, key)
	if ok {
		r.local.Set(ctx, key, loc)
	}
	return loc, ok
}

func (r *Resolver) lookup(key string, addr netip.Addr) (loc Location, err error) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("地理库查询 panic: %v", p)
			r.logger.Errorf("地址 %s 查询异常: %v", key, p)
		}
	}()

	loc, err = r.locator.Locate(addr)
	metrics.GeoLookupDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, ErrLocationNotFound):
		// 地理库是静态文件，未命中的结果同样缓存
		metrics.GeoResolutions.WithLabelValues("miss").Inc()
		loc, err = Unknown, nil
	case err != nil:
		r.logger.Warnf("地址 %s 查询失败: %v", key, err)
		return Location{}, err
	default:
		metrics.GeoResolutions.WithLabelValues("lookup").Inc()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.local.Set(ctx, key, loc)
	if r.shared != nil {
		r.shared.Set(ctx, key, loc)
	}
	return loc, nil
}

// Close 释放进程内缓存
func (r *Resolver) Close() {
	r.local.Close()
}
