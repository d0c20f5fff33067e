// Package recorder 负责把点击、浏览、分享、扫码等访问写入事件日志
package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"muslink-platform/internal/catalog"
	"muslink-platform/internal/geo"
	"muslink-platform/internal/metrics"
	"muslink-platform/internal/model"
	"muslink-platform/internal/repository"
)

// ErrPersistence 事件未能写入事件日志
var ErrPersistence = errors.New("recorder: event could not be persisted")

// ValidationError 事件草稿的结构不合法
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Draft 尚未解析地理位置、尚未分配 ID 的事件
type Draft struct {
	Type       model.EventType
	PageID     uint
	LinkID     *uint
	Platform   *string
	ShareType  *string
	ClientIP   string
	OccurredAt time.Time
}

// GeoResolver 地理位置解析
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) geo.Location
}

// LinkOwner 查询外链所属页面，用于校验 click 事件
type LinkOwner interface {
	LinkPageID(ctx context.Context, linkID uint) (uint, error)
}

// Options 记录器参数
type Options struct {
	// ResolveTimeout 等待地理位置解析的上限，超时按 Unknown 处理
	ResolveTimeout time.Duration
}

// Recorder 校验草稿、解析地理位置并追加到事件日志
type Recorder struct {
	events   repository.EventRepository
	resolver GeoResolver
	links    LinkOwner
	timeout  time.Duration
	now      func() time.Time
	logger   *zap.SugaredLogger
}

// New 创建记录器；links 为 nil 时跳过外链归属校验
func New(events repository.EventRepository, resolver GeoResolver, links LinkOwner, logger *zap.SugaredLogger, opts Options) *Recorder {
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = 300 * time.Millisecond
	}
	return &Recorder{
		events:   events,
		resolver: resolver,
		links:    links,
		timeout:  opts.ResolveTimeout,
		now:      time.Now,
		logger:   logger.Named("event_recorder"),
	}
}

// Validate 按事件类型校验草稿结构：
// link_id 当且仅当 click 存在，share_type 当且仅当 share 存在，
// click 的外链必须属于草稿中的页面
func (r *Recorder) Validate(ctx context.Context, d Draft) error {
	if !d.Type.Valid() {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("不支持的事件类型 %q", d.Type)}
	}
	if d.PageID == 0 {
		return &ValidationError{Field: "page_id", Message: "必填"}
	}

	switch d.Type {
	case model.EventClick:
		if d.LinkID == nil || *d.LinkID == 0 {
			return &ValidationError{Field: "link_id", Message: "click 事件必须携带 link_id"}
		}
	default:
		if d.LinkID != nil {
			return &ValidationError{Field: "link_id", Message: "只有 click 事件可以携带 link_id"}
		}
		if d.Platform != nil {
			return &ValidationError{Field: "platform", Message: "只有 click 事件可以携带 platform"}
		}
	}

	if d.Type == model.EventShare {
		if d.ShareType == nil || *d.ShareType == "" {
			return &ValidationError{Field: "share_type", Message: "share 事件必须携带 share_type"}
		}
	} else if d.ShareType != nil {
		return &ValidationError{Field: "share_type", Message: "只有 share 事件可以携带 share_type"}
	}

	if d.Type == model.EventClick && r.links != nil {
		pageID, err := r.links.LinkPageID(ctx, *d.LinkID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return &ValidationError{Field: "link_id", Message: "外链不存在"}
			}
			return fmt.Errorf("校验外链归属失败: %w", err)
		}
		if pageID != d.PageID {
			return &ValidationError{Field: "link_id", Message: "外链不属于该页面"}
		}
	}
	return nil
}

// Build 校验草稿并解析地理位置，得到待写入的事件
func (r *Recorder) Build(ctx context.Context, d Draft) (*model.Event, error) {
	if err := r.Validate(ctx, d); err != nil {
		metrics.EventRecordFailures.WithLabelValues(string(d.Type), "validate").Inc()
		return nil, err
	}

	loc := r.resolve(ctx, d.ClientIP)

	occurred := d.OccurredAt
	if occurred.IsZero() {
		occurred = r.now()
	}

	return &model.Event{
		Type:      d.Type,
		PageID:    d.PageID,
		LinkID:    d.LinkID,
		Country:   loc.Country,
		City:      loc.City,
		Platform:  d.Platform,
		ShareType: d.ShareType,
		CreatedAt: occurred.UTC(),
	}, nil
}

// Record 同步记录一条事件；写入失败返回包装了 ErrPersistence 的错误
func (r *Recorder) Record(ctx context.Context, d Draft) (*model.Event, error) {
	event, err := r.Build(ctx, d)
	if err != nil {
		return nil, err
	}
	if err := r.Append(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// Append 追加已构建好的事件
func (r *Recorder) Append(ctx context.Context, events ...*model.Event) error {
	if err := r.events.Append(ctx, events...); err != nil {
		for _, e := range events {
			metrics.EventRecordFailures.WithLabelValues(string(e.Type), "persist").Inc()
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	for _, e := range events {
		metrics.EventsRecorded.WithLabelValues(string(e.Type)).Inc()
	}
	return nil
}

// resolve 地理位置只是尽力而为，超时或异常一律退化为 Unknown
func (r *Recorder) resolve(ctx context.Context, ip string) (loc geo.Location) {
	if r.resolver == nil {
		return geo.Unknown
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan geo.Location, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				r.logger.Errorf("地理位置解析异常: %v", p)
				done <- geo.Unknown
			}
		}()
		done <- r.resolver.Resolve(ctx, ip)
	}()

	select {
	case loc = <-done:
	case <-ctx.Done():
		metrics.GeoResolutions.WithLabelValues("degraded").Inc()
		return geo.Unknown
	}

	if loc.Country == "" {
		loc.Country = model.UnknownLocation
	}
	if loc.City == "" {
		loc.City = model.UnknownLocation
	}
	return loc
}
