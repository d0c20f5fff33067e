// Package analytics 从事件日志实时计算汇总视图
package analytics

import (
	"sort"

	"muslink-platform/internal/model"
)

// tally 计数器，记住每个键第一次出现的位置，用于同票时保持先到先排
type tally[K comparable] struct {
	index  map[K]int
	keys   []K
	counts []int64
}

func newTally[K comparable]() *tally[K] {
	return &tally[K]{index: make(map[K]int)}
}

func (t *tally[K]) add(k K) {
	i, ok := t.index[k]
	if !ok {
		i = len(t.keys)
		t.index[k] = i
		t.keys = append(t.keys, k)
		t.counts = append(t.counts, 0)
	}
	t.counts[i]++
}

// ranked 按计数降序；稳定排序保证同票按首次出现顺序
func (t *tally[K]) ranked() []int {
	order := make([]int, len(t.keys))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return t.counts[order[a]] > t.counts[order[b]]
	})
	return order
}

// Accumulator 逐条折叠事件。输入顺序必须是写入顺序（ID 升序）
type Accumulator struct {
	views, clicks, shares, scans int64

	countries *tally[string]
	cities    *tally[string]
	platforms *tally[string]
	links     *tally[uint]
	linkNames map[uint]string
}

// NewAccumulator 创建空的累加器
func NewAccumulator() *Accumulator {
	return &Accumulator{
		countries: newTally[string](),
		cities:    newTally[string](),
		platforms: newTally[string](),
		links:     newTally[uint](),
		linkNames: make(map[uint]string),
	}
}

// Add 折叠一条事件。国家/城市统计覆盖所有类型的事件，
// Unknown 作为独立的桶保留，不会被过滤或合并
func (a *Accumulator) Add(e *model.Event) {
	switch e.Type {
	case model.EventView:
		a.views++
	case model.EventClick:
		a.clicks++
		platform := ""
		if e.Platform != nil {
			platform = *e.Platform
		}
		if platform != "" {
			a.platforms.add(platform)
		}
		if e.LinkID != nil {
			a.links.add(*e.LinkID)
			if _, ok := a.linkNames[*e.LinkID]; !ok {
				a.linkNames[*e.LinkID] = platform
			}
		}
	case model.EventShare:
		a.shares++
	case model.EventQRScan:
		a.scans++
	}

	a.countries.add(orUnknown(e.Country))
	// 城市榜只输出城市名，按名称分组
	a.cities.add(orUnknown(e.City))
}

// Summary 生成汇总结果；列表永远非 nil，序列化后是 [] 而不是 null
func (a *Accumulator) Summary() model.Summary {
	s := model.Summary{
		TotalViews:   a.views,
		TotalClicks:  a.clicks,
		TotalShares:  a.shares,
		TotalQRScans: a.scans,
		ByCountry:    make([]model.CountryCount, 0, len(a.countries.keys)),
		ByCity:       make([]model.CityCount, 0, len(a.cities.keys)),
		ByPlatform:   make([]model.PlatformCount, 0, len(a.platforms.keys)),
		ByLink:       make([]model.LinkClicks, 0, len(a.links.keys)),
	}

	for _, i := range a.countries.ranked() {
		s.ByCountry = append(s.ByCountry, model.CountryCount{Country: a.countries.keys[i], Count: a.countries.counts[i]})
	}
	for _, i := range a.cities.ranked() {
		s.ByCity = append(s.ByCity, model.CityCount{City: a.cities.keys[i], Count: a.cities.counts[i]})
	}
	for _, i := range a.platforms.ranked() {
		s.ByPlatform = append(s.ByPlatform, model.PlatformCount{Platform: a.platforms.keys[i], Count: a.platforms.counts[i]})
	}
	for _, i := range a.links.ranked() {
		id := a.links.keys[i]
		s.ByLink = append(s.ByLink, model.LinkClicks{ID: id, Platform: a.linkNames[id], Clicks: a.links.counts[i]})
	}
	return s
}

// Aggregate 对一组按写入顺序排列的事件做汇总
func Aggregate(events []model.Event) model.Summary {
	acc := NewAccumulator()
	for i := range events {
		acc.Add(&events[i])
	}
	return acc.Summary()
}

// 历史数据里可能存在空值，统一归入 Unknown
func orUnknown(v string) string {
	if v == "" {
		return model.UnknownLocation
	}
	return v
}
