package model

import (
	"time"
)

// Page 艺人落地页。页面的增删改由外部 CRUD 服务负责，这里只读取 id / slug / is_active
type Page struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Slug      string    `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	OwnerID   uint      `gorm:"not null;index" json:"owner_id"`
	Title     string    `gorm:"size:200" json:"title"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Page) TableName() string {
	return "pages"
}
