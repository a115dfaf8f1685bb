package model

import (
	"time"

	"gorm.io/datatypes"
)

// ==================== 订单状态常量 ====================

// OrderStatus 同步订单状态
// 流转: pending -> synced -> tracking_updated
//
//	synced -> cancelled（目标店铺取消后回写来源）
//	pending/failed -> failed（路由阶段异常，10 分钟冷却后重试）
//	failed -> needs_review（重试次数超限，需人工处理）
const (
	OrderStatusPending         = "pending"          // 待路由
	OrderStatusSynced          = "synced"           // 已下发目标店铺
	OrderStatusTrackingUpdated = "tracking_updated" // 物流单号已回写来源
	OrderStatusCancelled       = "cancelled"        // 已取消
	OrderStatusFailed          = "failed"           // 路由失败，等待重试
	OrderStatusNeedsReview     = "needs_review"     // 重试超限，人工介入
)

// MaxRouteAttempts 路由失败重试次数上限，超过后进入 needs_review
const MaxRouteAttempts = 5

// ==================== Order 订单主表 ====================

// Order 在店铺之间同步的订单
// 去重键: (source_store_id, source_order_id)
type Order struct {
	ID int64 `gorm:"primaryKey;autoIncrement"`

	SourceStoreID      int64  `gorm:"not null;index;uniqueIndex:uniq_source_order"`
	DestinationStoreID *int64 `gorm:"index"`

	// 外部订单 ID
	SourceOrderID      string `gorm:"size:255;not null;uniqueIndex:uniq_source_order"`
	DestinationOrderID string `gorm:"size:255"`

	// 订单信息
	OrderNumber   string `gorm:"size:255"`
	CustomerEmail string `gorm:"size:255"`
	CustomerName  string `gorm:"size:255"`
	CustomerPhone string `gorm:"size:50"`
	TotalPrice    string `gorm:"type:decimal(10,2)"`
	Currency      string `gorm:"size:3"`

	// 客户地址（完整地址对象）
	ShippingAddress datatypes.JSONMap `gorm:"type:jsonb"`
	BillingAddress  datatypes.JSONMap `gorm:"type:jsonb"`

	// 来源订单完整原始数据（审计/重放用）
	OrderJSON datatypes.JSON `gorm:"type:jsonb"`

	Status string `gorm:"size:50;index;default:pending"`

	// 路由失败重试计数
	RouteAttempts int `gorm:"default:0"`

	// 物流跟踪（本地缓存，首次写入后不覆盖）
	TrackingNumber  string `gorm:"size:255"`
	TrackingCompany string `gorm:"size:255"`
	TrackingURL     string `gorm:"size:512"`

	// 时间戳
	CreatedAt        time.Time
	SyncedAt         *time.Time
	TrackingSyncedAt *time.Time

	// 关联
	Lines        []OrderLine        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Destinations []OrderDestination `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// HasDestination 是否已经有可用的主目标店铺信息
func (o *Order) HasDestination() bool {
	return o.DestinationStoreID != nil && o.DestinationOrderID != ""
}

// ==================== OrderLine 订单行 ====================

// OrderLine 订单行项目，随订单级联删除
type OrderLine struct {
	ID      int64 `gorm:"primaryKey;autoIncrement"`
	OrderID int64 `gorm:"not null;index"`

	// 商品信息
	SKU       string `gorm:"size:255"`
	EAN       string `gorm:"size:255"` // EAN / 条码
	ProductID string `gorm:"size:255"`
	Title     string `gorm:"size:512"`
	Quantity  int    `gorm:"not null"`
	Price     string `gorm:"type:decimal(10,2)"`

	// 标签（订单级标签 + 行属性标签，逗号拼接）
	Tags string `gorm:"type:text"`
}

// TableName 指定表名
func (OrderLine) TableName() string {
	return "order_lines"
}

// ==================== OrderDestination 订单分发记录 ====================

// OrderDestination 记录订单在每个目标店铺的创建结果
// 一条记录代表一次成功的目标下单；部分分发失败后重试时，
// 只会对没有记录的目标重新下单，避免重复创建
type OrderDestination struct {
	ID      int64 `gorm:"primaryKey;autoIncrement"`
	OrderID int64 `gorm:"not null;index;uniqueIndex:uniq_order_destination"`

	DestinationStoreID int64  `gorm:"not null;uniqueIndex:uniq_order_destination"`
	DestinationOrderID string `gorm:"size:255;not null"`

	// 路由规则配置的商品匹配方式（sku / ean）
	LookupMethod string `gorm:"size:50"`

	CreatedAt time.Time
}

// TableName 指定表名
func (OrderDestination) TableName() string {
	return "order_destinations"
}
