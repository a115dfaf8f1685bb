package model

import (
	"time"
)

// ==================== 路由方式常量 ====================

// RoutingMethod 订单路由匹配方式
const (
	RoutingMethodAll       = "all"        // 匹配所有订单
	RoutingMethodOrderTags = "order_tags" // 按订单行标签匹配
)

// LookupMethod 目标店铺商品匹配方式
const (
	LookupMethodSKU = "sku"
	LookupMethodEAN = "ean"
)

// ==================== OrderRouting 路由规则表 ====================

// OrderRouting 路由规则：哪些订单发到哪个目标店铺
// 规则只对 source_store_id 匹配的订单生效；所有命中的规则都会触发分发
// （非首条命中即止），一个订单可以同时发往多个目标店铺
type OrderRouting struct {
	ID int64 `gorm:"primaryKey;autoIncrement"`

	SourceStoreID      int64 `gorm:"not null;index"`
	DestinationStoreID int64 `gorm:"not null;index"`

	// 匹配方式: all / order_tags
	RoutingMethod string `gorm:"size:50;not null;default:all"`

	// 匹配值（order_tags 时为目标标签，忽略大小写）
	RoutingMethodValue string `gorm:"size:255"`

	// 目标店铺商品匹配方式: sku / ean
	LookupMethod string `gorm:"size:50;not null;default:sku"`

	// 优先级，越大越先评估
	Priority int `gorm:"default:0"`

	IsActive int    `gorm:"default:1"`
	Notes    string `gorm:"type:text"`

	CreatedAt time.Time
}

// TableName 指定表名
func (OrderRouting) TableName() string {
	return "order_routing"
}
