package model

import (
	"time"
)

// Link 页面上的一个外链平台（spotify、apple、youtube ...）
type Link struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	PageID    uint      `gorm:"not null;index" json:"page_id"`
	Platform  string    `gorm:"size:32;not null" json:"platform"`
	URL       string    `gorm:"type:text;not null" json:"url"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Link) TableName() string {
	return "links"
}
