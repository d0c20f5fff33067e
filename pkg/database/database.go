package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"muslink-platform/internal/config"
	"muslink-platform/internal/model"
)

// Open 按驱动建立连接：生产使用 MySQL，本地/单机可用 sqlite 文件
func Open(cfg config.DB) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(MySQLDSN(cfg))
	case "sqlite":
		// sqlite 只允许单写者，WAL 让读请求不被事件写入阻塞
		dialector = sqlite.Open(cfg.Path + "?_journal_mode=WAL&_busy_timeout=5000")
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Driver)
	}

	connection, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	sqlDB, err := connection.DB()
	if err != nil {
		return nil, fmt.Errorf("获取连接池失败: %w", err)
	}
	if cfg.Driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return connection, nil
}

// MySQLDSN 拼接 MySQL 连接串
func MySQLDSN(cfg config.DB) string {
	charset := cfg.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, charset)
}

// Migrate 自动迁移表。pages / links 由 CRUD 服务维护，这里迁移只为保证本地环境可用
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Page{}, &model.Link{}, &model.Event{}); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	return nil
}
