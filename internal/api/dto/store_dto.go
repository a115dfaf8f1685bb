package dto

import "time"

// ==================== 店铺管理 ====================

// CreateStoreReq 新增店铺请求
type CreateStoreReq struct {
	Name         string `json:"name" binding:"required"`
	PlatformType string `json:"platform_type" binding:"required"`
	Role         string `json:"role" binding:"required"`
	ShopURL      string `json:"shop_url" binding:"required"`
	AccessToken  string `json:"access_token"`
	APIKey       string `json:"api_key"`
	APISecret    string `json:"api_secret"`
	APIVersion   string `json:"api_version"`
}

// StoreItem 店铺列表项（不回传凭证）
type StoreItem struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	PlatformType string    `json:"platform_type"`
	Role         string    `json:"role"`
	ShopURL      string    `json:"shop_url"`
	APIVersion   string    `json:"api_version"`
	CreatedAt    time.Time `json:"created_at"`
}

// ==================== 路由规则管理 ====================

// CreateRouteReq 新增路由规则请求
type CreateRouteReq struct {
	SourceStoreID      int64  `json:"source_store_id" binding:"required"`
	DestinationStoreID int64  `json:"destination_store_id" binding:"required"`
	RoutingMethod      string `json:"routing_method"`
	RoutingMethodValue string `json:"routing_method_value"`
	LookupMethod       string `json:"lookup_method"`
	Priority           int    `json:"priority"`
	Notes              string `json:"notes"`
}

// RouteItem 路由规则列表项
type RouteItem struct {
	ID                 int64     `json:"id"`
	SourceStoreID      int64     `json:"source_store_id"`
	DestinationStoreID int64     `json:"destination_store_id"`
	RoutingMethod      string    `json:"routing_method"`
	RoutingMethodValue string    `json:"routing_method_value,omitempty"`
	LookupMethod       string    `json:"lookup_method"`
	Priority           int       `json:"priority"`
	IsActive           bool      `json:"is_active"`
	Notes              string    `json:"notes,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// SetRouteActiveReq 启用/停用路由规则
type SetRouteActiveReq struct {
	Active *bool `json:"active" binding:"required"`
}
