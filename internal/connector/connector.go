package connector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ==================== 错误定义 ====================

var (
	// ErrUnknownPlatform 未注册的店铺平台类型
	ErrUnknownPlatform = errors.New("unsupported store platform")

	// ErrNoValidLineItems 创建订单时没有任何行项目能在目标店铺匹配到商品
	ErrNoValidLineItems = errors.New("no valid line items: all products missing in destination store")

	// ErrNoFulfillmentOrders 订单在平台上不存在任何可履约单元
	ErrNoFulfillmentOrders = errors.New("no fulfillment orders found")
)

// ==================== Connector 能力契约 ====================

// Config 连接目标平台所需的店铺配置
type Config struct {
	ShopURL     string
	AccessToken string
	APIVersion  string
}

// Connector 店铺平台连接器，每个平台实现一份
// 所有实现必须保证:
//   - FetchOrders 只返回未履约、未打 synced 标签、未取消、未退款的订单
//   - GetOrder 对不存在的订单返回 (nil, nil)，不报错
//   - TagOrder 幂等：标签已存在（忽略大小写）时直接成功，且不覆盖已有标签
//   - UpdateTracking 在所有履约单元均已关闭时视为成功空操作
type Connector interface {
	// FetchOrders 拉取 since 之后创建的待同步订单
	FetchOrders(ctx context.Context, since time.Time) ([]OrderData, error)

	// CreateOrder 在店铺创建订单，按 LookupMethod 匹配商品
	// 无法匹配的行项目丢弃（告警）；全部无法匹配返回 ErrNoValidLineItems
	CreateOrder(ctx context.Context, in *CreateOrderInput) (*OrderData, error)

	// GetOrder 按外部 ID 查询订单
	GetOrder(ctx context.Context, orderID string) (*OrderData, error)

	// UpdateTracking 为订单挂载物流信息（创建履约记录）
	UpdateTracking(ctx context.Context, orderID string, tracking *Tracking) error

	// TagOrder 为订单追加标签
	TagOrder(ctx context.Context, orderID string, tag string) error

	// CancelOrder 取消订单，reason 为标准化取消原因
	CancelOrder(ctx context.Context, orderID string, reason string) error
}

// ==================== 平台注册表 ====================

// Factory 根据店铺配置构造连接器实例
type Factory func(cfg Config) Connector

var registry = map[string]Factory{}

// Register 注册平台实现，新增平台只需在实现包 init 中调用一次
func Register(platform string, factory Factory) {
	registry[strings.ToLower(platform)] = factory
}

// New 按平台类型创建连接器
func New(platform string, cfg Config) (Connector, error) {
	factory, ok := registry[strings.ToLower(platform)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}
	return factory(cfg), nil
}

// Supported 平台类型是否已注册
func Supported(platform string) bool {
	_, ok := registry[strings.ToLower(platform)]
	return ok
}

// Platforms 返回已注册的平台类型（排序后）
func Platforms() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ==================== 取消原因 ====================

// 平台取消原因枚举: customer / inventory / fraud / declined / other
var validCancelReasons = map[string]bool{
	"customer":  true,
	"inventory": true,
	"fraud":     true,
	"declined":  true,
	"other":     true,
}

// NormalizeCancelReason 将任意取消原因归一化到标准枚举，未知值归入 other
func NormalizeCancelReason(reason string) string {
	reason = strings.ToLower(strings.TrimSpace(reason))
	if validCancelReasons[reason] {
		return reason
	}
	return "other"
}
