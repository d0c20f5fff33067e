package model

import (
	"time"
)

// UnknownLocation 无法解析地理位置时统一使用的哨兵值
const UnknownLocation = "Unknown"

// EventType 事件类型
type EventType string

const (
	EventView   EventType = "view"
	EventClick  EventType = "click"
	EventShare  EventType = "share"
	EventQRScan EventType = "qr_scan"
)

// Valid 判断是否为已知事件类型
func (t EventType) Valid() bool {
	switch t {
	case EventView, EventClick, EventShare, EventQRScan:
		return true
	}
	return false
}

// Event 一条不可变的访问事件。来源 IP 只用于解析地理位置，不落库。
// LinkID 与 Platform 仅在 click 事件上存在，ShareType 仅在 share 事件上存在。
type Event struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Type      EventType `gorm:"size:16;not null;index:idx_events_page_type,priority:2" json:"type"`
	PageID    uint      `gorm:"not null;index:idx_events_page_type,priority:1" json:"page_id"`
	LinkID    *uint     `gorm:"index" json:"link_id,omitempty"`
	Country   string    `gorm:"size:100;not null" json:"country"`
	City      string    `gorm:"size:100;not null" json:"city"`
	Platform  *string   `gorm:"size:32" json:"platform,omitempty"`
	ShareType *string   `gorm:"size:32" json:"share_type,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (Event) TableName() string {
	return "events"
}
