package dto

import "time"

// ==================== 订单查询 ====================

// ListOrdersReq 订单列表查询参数
type ListOrdersReq struct {
	SourceStoreID int64  `form:"source_store_id"`
	Status        string `form:"status"`
	Keyword       string `form:"keyword"`
	Page          int    `form:"page"`
	PageSize      int    `form:"page_size"`
}

// OrderListItem 订单列表项
type OrderListItem struct {
	ID                 int64      `json:"id"`
	SourceStoreID      int64      `json:"source_store_id"`
	SourceOrderID      string     `json:"source_order_id"`
	DestinationStoreID *int64     `json:"destination_store_id,omitempty"`
	DestinationOrderID string     `json:"destination_order_id,omitempty"`
	OrderNumber        string     `json:"order_number"`
	CustomerName       string     `json:"customer_name"`
	CustomerEmail      string     `json:"customer_email"`
	TotalPrice         string     `json:"total_price"`
	Currency           string     `json:"currency"`
	Status             string     `json:"status"`
	RouteAttempts      int        `json:"route_attempts"`
	TrackingNumber     string     `json:"tracking_number,omitempty"`
	LineCount          int        `json:"line_count"`
	CreatedAt          time.Time  `json:"created_at"`
	SyncedAt           *time.Time `json:"synced_at,omitempty"`
	TrackingSyncedAt   *time.Time `json:"tracking_synced_at,omitempty"`
}

// ListOrdersResp 订单列表响应
type ListOrdersResp struct {
	Total int64           `json:"total"`
	List  []OrderListItem `json:"list"`
}

// OrderLineVO 订单行
type OrderLineVO struct {
	ID        int64  `json:"id"`
	SKU       string `json:"sku"`
	EAN       string `json:"ean,omitempty"`
	ProductID string `json:"product_id,omitempty"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Tags      string `json:"tags,omitempty"`
}

// OrderDestinationVO 订单分发记录
type OrderDestinationVO struct {
	DestinationStoreID int64     `json:"destination_store_id"`
	DestinationOrderID string    `json:"destination_order_id"`
	LookupMethod       string    `json:"lookup_method"`
	CreatedAt          time.Time `json:"created_at"`
}

// OrderDetailResp 订单详情
type OrderDetailResp struct {
	Order        OrderListItem        `json:"order"`
	Lines        []OrderLineVO        `json:"lines"`
	Destinations []OrderDestinationVO `json:"destinations"`
}
