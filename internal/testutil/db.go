// Package testutil 测试用的数据库与日志辅助
package testutil

import (
	"fmt"
	"hash/fnv"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"muslink-platform/internal/model"
)

var seq atomic.Int64

// NewDB 为每个测试创建独立的内存数据库并完成迁移。
// 只开一个连接，避免 sqlite 内存库在多连接下互相看不见或锁表
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	h := fnv.New64a()
	_, _ = h.Write([]byte(t.Name()))
	dsn := fmt.Sprintf("file:memdb_%x_%d?mode=memory&cache=shared", h.Sum64(), seq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("无法连接到内存数据库: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取底层连接失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.Page{}, &model.Link{}, &model.Event{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// Logger 测试用的静默日志
func Logger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// SeedPage 创建一个页面及其外链，返回创建后的记录
func SeedPage(t testing.TB, db *gorm.DB, slug string, ownerID uint, platforms ...string) (model.Page, []model.Link) {
	t.Helper()

	page := model.Page{Slug: slug, OwnerID: ownerID, Title: slug, IsActive: true}
	if err := db.Create(&page).Error; err != nil {
		t.Fatalf("创建页面失败: %v", err)
	}

	links := make([]model.Link, 0, len(platforms))
	for _, p := range platforms {
		link := model.Link{PageID: page.ID, Platform: p, URL: "https://" + p + ".example.com/track/" + slug, IsActive: true}
		if err := db.Create(&link).Error; err != nil {
			t.Fatalf("创建外链失败: %v", err)
		}
		links = append(links, link)
	}
	return page, links
}
