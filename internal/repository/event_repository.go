package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"muslink-platform/internal/model"
)

// DefaultScanBatch 扫描事件日志时每批读取的行数
const DefaultScanBatch = 1000

// EventFilter 扫描范围，PageID 为空表示全站
type EventFilter struct {
	PageID *uint
}

// EventRepository 只追加的事件日志
type EventRepository interface {
	// Append 追加事件，ID 由数据库分配并回写到传入的结构体
	Append(ctx context.Context, events ...*model.Event) error

	// Scan 按 ID 升序（即写入顺序）分批读取事件
	Scan(ctx context.Context, filter EventFilter, batchSize int, fn func([]model.Event) error) error

	// Count 统计事件数
	Count(ctx context.Context, filter EventFilter) (int64, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository 创建基于 gorm 的事件日志
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Append(ctx context.Context, events ...*model.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(events, 100).Error; err != nil {
		return fmt.Errorf("写入事件失败: %w", err)
	}
	return nil
}

func (r *eventRepository) Scan(ctx context.Context, filter EventFilter, batchSize int, fn func([]model.Event) error) error {
	if batchSize <= 0 {
		batchSize = DefaultScanBatch
	}

	var batch []model.Event
	// FindInBatches 按主键游标翻页，批次之间新追加的事件不会打乱已读部分的顺序
	result := r.scope(ctx, filter).FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
		return fn(batch)
	})
	if result.Error != nil {
		return fmt.Errorf("读取事件失败: %w", result.Error)
	}
	return nil
}

func (r *eventRepository) Count(ctx context.Context, filter EventFilter) (int64, error) {
	var n int64
	if err := r.scope(ctx, filter).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("统计事件失败: %w", err)
	}
	return n, nil
}

func (r *eventRepository) scope(ctx context.Context, filter EventFilter) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&model.Event{})
	if filter.PageID != nil {
		tx = tx.Where("page_id = ?", *filter.PageID)
	}
	return tx
}
