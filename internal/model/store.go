package model

import (
	"time"
)

// ==================== 店铺角色常量 ====================

// StoreRole 店铺在同步链路中的角色
const (
	StoreRoleSource      = "source"      // 订单来源店铺
	StoreRoleDestination = "destination" // 订单目标店铺（负责履约发货）
)

// ==================== Store 店铺配置表 ====================

// Store 店铺配置（1 个来源店铺 + N 个目标店铺）
type Store struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:255;not null"`

	// 平台类型（connector 注册表的 key，如 shopify）
	PlatformType string `gorm:"size:50;not null"`

	// 角色: source / destination
	Role string `gorm:"size:20;not null;index"`

	// 店铺唯一标识（如 xxx.myshopify.com），全局唯一
	ShopURL string `gorm:"size:255;not null;uniqueIndex"`

	// API 凭证
	AccessToken string `gorm:"size:255"`
	APIKey      string `gorm:"size:255"`
	APISecret   string `gorm:"size:255"`
	APIVersion  string `gorm:"size:50;default:2024-01"`

	CreatedAt time.Time
}

// TableName 指定表名
func (Store) TableName() string {
	return "stores"
}

// IsSource 是否为来源店铺
func (s *Store) IsSource() bool {
	return s.Role == StoreRoleSource
}
