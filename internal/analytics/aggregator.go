package analytics

import (
	"context"
	"fmt"

	"muslink-platform/internal/model"
	"muslink-platform/internal/repository"
)

// Scope 汇总范围：单个页面或全站
type Scope struct {
	PageID uint
	Global bool
}

// PageScope 单页面范围
func PageScope(pageID uint) Scope {
	return Scope{PageID: pageID}
}

// GlobalScope 全站范围
func GlobalScope() Scope {
	return Scope{Global: true}
}

func (s Scope) filter() repository.EventFilter {
	if s.Global {
		return repository.EventFilter{}
	}
	id := s.PageID
	return repository.EventFilter{PageID: &id}
}

// Aggregator 按需扫描事件日志，没有任何独立维护的计数器，
// 对同一份日志重复调用得到完全相同的结果
type Aggregator struct {
	events    repository.EventRepository
	batchSize int
}

// NewAggregator 创建聚合器
func NewAggregator(events repository.EventRepository, batchSize int) *Aggregator {
	if batchSize <= 0 {
		batchSize = repository.DefaultScanBatch
	}
	return &Aggregator{events: events, batchSize: batchSize}
}

// Summarize 计算指定范围的汇总
func (a *Aggregator) Summarize(ctx context.Context, scope Scope) (model.Summary, error) {
	if !scope.Global && scope.PageID == 0 {
		return model.Summary{}, fmt.Errorf("analytics: page scope requires a page id")
	}

	acc := NewAccumulator()
	err := a.events.Scan(ctx, scope.filter(), a.batchSize, func(batch []model.Event) error {
		for i := range batch {
			acc.Add(&batch[i])
		}
		return nil
	})
	if err != nil {
		return model.Summary{}, err
	}
	return acc.Summary(), nil
}
