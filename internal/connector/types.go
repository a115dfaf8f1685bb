package connector

// ==================== 标准化订单结构 ====================

// OrderData 平台无关的标准化订单
// 所有连接器的 FetchOrders / GetOrder / CreateOrder 都返回该结构
type OrderData struct {
	ID                string         `json:"id"`
	OrderNumber       string         `json:"order_number"`
	Email             string         `json:"email"`
	CustomerName      string         `json:"customer_name"`
	CustomerPhone     string         `json:"customer_phone"`
	CreatedAt         string         `json:"created_at"` // ISO-8601
	TotalPrice        string         `json:"total_price"`
	Currency          string         `json:"currency"`
	FulfillmentStatus string         `json:"fulfillment_status"`
	FinancialStatus   string         `json:"financial_status"`
	CancelledAt       string         `json:"cancelled_at"`
	CancelReason      string         `json:"cancel_reason"`
	ShippingAddress   map[string]any `json:"shipping_address"`
	BillingAddress    map[string]any `json:"billing_address"`
	LineItems         []LineItemData `json:"line_items"`
	Fulfillments      []Fulfillment  `json:"fulfillments"`
}

// LineItemData 标准化订单行
type LineItemData struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	SKU       string `json:"sku"`
	EAN       string `json:"ean"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Tags      string `json:"tags"` // 逗号拼接
}

// Fulfillment 履约记录（物流信息）
type Fulfillment struct {
	TrackingNumber  string `json:"tracking_number"`
	TrackingCompany string `json:"tracking_company"`
	TrackingURL     string `json:"tracking_url"`
}

// Tracking 回写来源店铺的物流信息
type Tracking struct {
	TrackingNumber  string `json:"tracking_number"`
	TrackingCompany string `json:"tracking_company"`
	TrackingURL     string `json:"tracking_url"`
}

// ==================== 创建订单输入 ====================

// CreateOrderInput 下发目标店铺的订单数据
type CreateOrderInput struct {
	// 商品匹配方式: sku / ean（由路由规则决定）
	LookupMethod string

	// 来源信息，写入目标订单备注
	SourceStoreName   string
	SourceOrderNumber string

	CustomerEmail string
	CustomerName  string
	CustomerPhone string

	ShippingAddress map[string]any
	BillingAddress  map[string]any

	LineItems []CreateLineItem
}

// CreateLineItem 下发订单的行项目
type CreateLineItem struct {
	SKU      string
	EAN      string
	Title    string
	Quantity int
	Price    string
}
