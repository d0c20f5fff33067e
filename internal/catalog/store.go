// Package catalog 读取页面与外链的状态。页面/外链由外部 CRUD 服务维护，
// 这里只提供跳转所需的只读视图和管理员的启用/禁用开关。
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"muslink-platform/internal/model"
)

// ErrNotFound 页面或外链不存在
var ErrNotFound = errors.New("catalog: not found")

// Target 一次外链跳转需要的全部信息。启用状态不进缓存，每次都从数据库读取
type Target struct {
	LinkID     uint   `json:"link_id"`
	PageID     uint   `json:"page_id"`
	Platform   string `json:"platform"`
	URL        string `json:"url"`
	LinkActive bool   `json:"-"`
	PageActive bool   `json:"-"`
}

// flagRow 外链及其父页面的启用状态
type flagRow struct {
	LinkActive bool
	PageActive bool
}

// Servable 页面和外链都处于启用状态时才允许跳转
func (t *Target) Servable() bool {
	return t.LinkActive && t.PageActive
}

// Store 页面/外链存储，Redis 可选
type Store struct {
	db     *gorm.DB
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.SugaredLogger
}

// NewStore 创建存储实例；redisClient 为 nil 时不做缓存
func NewStore(db *gorm.DB, redisClient *redis.Client, ttl time.Duration, logger *zap.SugaredLogger) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{db: db, redis: redisClient, ttl: ttl, logger: logger.Named("catalog")}
}

func targetKey(linkID uint) string {
	return "link_target:" + strconv.FormatUint(uint64(linkID), 10)
}

// LinkTarget 读取外链及其父页面的状态。地址和平台先查 Redis，
// 启用状态总是查数据库，外部服务直接改库禁用后下一次跳转立即生效
func (s *Store) LinkTarget(ctx context.Context, linkID uint) (*Target, error) {
	if t, ok := s.cachedTarget(ctx, linkID); ok {
		flags, err := s.activeFlags(ctx, linkID)
		if err != nil {
			return nil, err
		}
		t.LinkActive, t.PageActive = flags.LinkActive, flags.PageActive
		return t, nil
	}

	var link model.Link
	if err := s.db.WithContext(ctx).First(&link, linkID).Error; err != nil {
		return nil, notFound(err)
	}
	var page model.Page
	if err := s.db.WithContext(ctx).First(&page, link.PageID).Error; err != nil {
		return nil, notFound(err)
	}

	t := &Target{
		LinkID:     link.ID,
		PageID:     page.ID,
		Platform:   link.Platform,
		URL:        link.URL,
		LinkActive: link.IsActive,
		PageActive: page.IsActive,
	}
	s.cacheTarget(ctx, t)
	return t, nil
}

// LinkPageID 返回外链所属页面
func (s *Store) LinkPageID(ctx context.Context, linkID uint) (uint, error) {
	t, err := s.LinkTarget(ctx, linkID)
	if err != nil {
		return 0, err
	}
	return t.PageID, nil
}

// Page 按 ID 读取页面
func (s *Store) Page(ctx context.Context, pageID uint) (*model.Page, error) {
	var page model.Page
	if err := s.db.WithContext(ctx).First(&page, pageID).Error; err != nil {
		return nil, notFound(err)
	}
	return &page, nil
}

// PageLinks 页面下的全部外链，按创建顺序
func (s *Store) PageLinks(ctx context.Context, pageID uint) ([]model.Link, error) {
	var links []model.Link
	if err := s.db.WithContext(ctx).Where("page_id = ?", pageID).Order("id ASC").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("读取外链失败: %w", err)
	}
	return links, nil
}

// ToggleLink 切换外链启用状态，返回新状态
func (s *Store) ToggleLink(ctx context.Context, linkID uint) (bool, error) {
	var link model.Link
	if err := s.db.WithContext(ctx).First(&link, linkID).Error; err != nil {
		return false, notFound(err)
	}
	return s.SetLinkActive(ctx, linkID, !link.IsActive)
}

// SetLinkActive 设置外链启用状态并清除跳转缓存
func (s *Store) SetLinkActive(ctx context.Context, linkID uint, active bool) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Link{}).Where("id = ?", linkID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("查询外链失败: %w", err)
	}
	if n == 0 {
		return false, ErrNotFound
	}
	if err := s.db.WithContext(ctx).Model(&model.Link{}).Where("id = ?", linkID).Update("is_active", active).Error; err != nil {
		return false, fmt.Errorf("更新外链状态失败: %w", err)
	}
	s.invalidate(ctx, linkID)
	return active, nil
}

// TogglePage 切换页面启用状态，返回新状态
func (s *Store) TogglePage(ctx context.Context, pageID uint) (bool, error) {
	page, err := s.Page(ctx, pageID)
	if err != nil {
		return false, err
	}
	return s.SetPageActive(ctx, pageID, !page.IsActive)
}

// SetPageActive 设置页面启用状态，页面下所有外链的跳转缓存一并清除
func (s *Store) SetPageActive(ctx context.Context, pageID uint, active bool) (bool, error) {
	if _, err := s.Page(ctx, pageID); err != nil {
		return false, err
	}
	if err := s.db.WithContext(ctx).Model(&model.Page{}).Where("id = ?", pageID).Update("is_active", active).Error; err != nil {
		return false, fmt.Errorf("更新页面状态失败: %w", err)
	}

	links, err := s.PageLinks(ctx, pageID)
	if err != nil {
		return active, err
	}
	ids := make([]uint, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.ID)
	}
	s.invalidate(ctx, ids...)
	return active, nil
}

func (s *Store) activeFlags(ctx context.Context, linkID uint) (*flagRow, error) {
	var rows []flagRow
	err := s.db.WithContext(ctx).
		Table("links").
		Select("links.is_active AS link_active, pages.is_active AS page_active").
		Joins("JOIN pages ON pages.id = links.page_id").
		Where("links.id = ?", linkID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询启用状态失败: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *Store) cachedTarget(ctx context.Context, linkID uint) (*Target, bool) {
	if s.redis == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	data, err := s.redis.Get(ctx, targetKey(linkID)).Bytes()
	if err != nil {
		return nil, false
	}
	var t Target
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, false
	}
	return &t, true
}

func (s *Store) cacheTarget(ctx context.Context, t *Target) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(t)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()
	if err := s.redis.Set(ctx, targetKey(t.LinkID), data, s.ttl).Err(); err != nil {
		s.logger.Warnf("缓存跳转目标失败: %v", err)
	}
}

func (s *Store) invalidate(ctx context.Context, linkIDs ...uint) {
	if s.redis == nil || len(linkIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(linkIDs))
	for _, id := range linkIDs {
		keys = append(keys, targetKey(id))
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		s.logger.Errorf("清除跳转缓存失败: %v", err)
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("查询失败: %w", err)
}
