package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"storesync_dev_v1_202608/pkg/utils"
)

func init() {
	Register("shopify", NewShopifyConnector)
}

// ==================== ShopifyConnector ====================

// ShopifyConnector 基于 Shopify Admin REST API 的连接器实现
type ShopifyConnector struct {
	cfg     Config
	baseURL string
	client  *resty.Client
}

var _ Connector = (*ShopifyConnector)(nil)

// NewShopifyConnector 创建 Shopify 连接器
func NewShopifyConnector(cfg Config) Connector {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-01"
	}

	// ShopURL 允许带 scheme（本地联调 / 测试桩），默认按 https 拼接
	root := cfg.ShopURL
	if !strings.HasPrefix(root, "http://") && !strings.HasPrefix(root, "https://") {
		root = "https://" + root
	}

	client := utils.NewAPIClient(20*time.Second).
		SetHeader("X-Shopify-Access-Token", cfg.AccessToken)

	return &ShopifyConnector{
		cfg:     cfg,
		baseURL: fmt.Sprintf("%s/admin/api/%s", root, cfg.APIVersion),
		client:  client,
	}
}

// ==================== Shopify API 响应结构 ====================

type shopifyProperty struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type shopifyLineItem struct {
	ID         int64             `json:"id"`
	ProductID  int64             `json:"product_id"`
	VariantID  int64             `json:"variant_id"`
	SKU        string            `json:"sku"`
	Title      string            `json:"title"`
	Quantity   int               `json:"quantity"`
	Price      string            `json:"price"`
	Properties []shopifyProperty `json:"properties"`
}

type shopifyFulfillment struct {
	TrackingNumber  string `json:"tracking_number"`
	TrackingCompany string `json:"tracking_company"`
	TrackingURL     string `json:"tracking_url"`
}

type shopifyCustomer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type shopifyOrder struct {
	ID                int64                `json:"id"`
	OrderNumber       json.Number          `json:"order_number"`
	Name              string               `json:"name"`
	Email             string               `json:"email"`
	Phone             string               `json:"phone"`
	CreatedAt         string               `json:"created_at"`
	TotalPrice        string               `json:"total_price"`
	Currency          string               `json:"currency"`
	FulfillmentStatus string               `json:"fulfillment_status"`
	FinancialStatus   string               `json:"financial_status"`
	CancelledAt       string               `json:"cancelled_at"`
	CancelReason      string               `json:"cancel_reason"`
	Tags              string               `json:"tags"`
	Customer          *shopifyCustomer     `json:"customer"`
	ShippingAddress   map[string]any       `json:"shipping_address"`
	BillingAddress    map[string]any       `json:"billing_address"`
	LineItems         []shopifyLineItem    `json:"line_items"`
	Fulfillments      []shopifyFulfillment `json:"fulfillments"`
}

// ==================== FetchOrders ====================

// FetchOrders 拉取未履约订单，过滤掉已打 synced 标签、已取消、已退款的订单
func (c *ShopifyConnector) FetchOrders(ctx context.Context, since time.Time) ([]OrderData, error) {
	var result struct {
		Orders []shopifyOrder `json:"orders"`
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"created_at_min":     since.Format(time.RFC3339),
			"status":             "any",
			"fulfillment_status": "unfulfilled",
			"limit":              "250",
		}).
		SetResult(&result).
		Get(c.baseURL + "/orders.json")
	if err != nil {
		return nil, fmt.Errorf("拉取订单失败: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("拉取订单失败: 状态码 %d: %s", resp.StatusCode(), resp.String())
	}

	orders := make([]OrderData, 0, len(result.Orders))
	for i := range result.Orders {
		o := &result.Orders[i]
		if hasTag(o.Tags, "synced") {
			continue
		}
		if o.CancelledAt != "" {
			continue
		}
		switch o.FinancialStatus {
		case "voided", "refunded", "partially_refunded":
			continue
		}
		orders = append(orders, c.serializeOrder(ctx, o))
	}
	return orders, nil
}

// ==================== CreateOrder ====================

// CreateOrder 在目标店铺创建订单
// 每个行项目先按 LookupMethod 匹配目标店铺已有商品变体（含 SKU/EAN 互为兜底），
// 匹配不到的行丢弃；全部丢弃返回 ErrNoValidLineItems
func (c *ShopifyConnector) CreateOrder(ctx context.Context, in *CreateOrderInput) (*OrderData, error) {
	lookupMethod := in.LookupMethod
	if lookupMethod == "" {
		lookupMethod = "sku"
	}

	lineItems := make([]map[string]any, 0, len(in.LineItems))
	for _, item := range in.LineItems {
		variantID, lookupUsed := c.resolveVariant(ctx, item, lookupMethod)
		if variantID == 0 {
			log.Printf("[ShopifyConnector] 目标店铺未找到商品，丢弃行项目: sku=%s ean=%s title=%q",
				item.SKU, item.EAN, item.Title)
			continue
		}

		log.Printf("[ShopifyConnector] 行项目已匹配: sku=%s -> variant=%d (匹配方式: %s)",
			item.SKU, variantID, lookupUsed)

		lineItems = append(lineItems, map[string]any{
			"variant_id": variantID,
			"quantity":   item.Quantity,
		})
	}

	if len(lineItems) == 0 {
		return nil, ErrNoValidLineItems
	}

	// 备注携带来源店铺信息
	var notes []string
	if in.SourceStoreName != "" {
		notes = append(notes, "ChannelName\n"+in.SourceStoreName)
	}
	if in.SourceOrderNumber != "" {
		notes = append(notes, "ChannelOrderNo\n"+in.SourceOrderNumber)
	}
	notes = append(notes, "Integrator\ninit_sync")

	// 客户信息
	customer := map[string]any{}
	if in.CustomerName != "" {
		first, last, _ := strings.Cut(in.CustomerName, " ")
		customer["first_name"] = first
		customer["last_name"] = last
	}
	if in.CustomerEmail != "" {
		customer["email"] = in.CustomerEmail
	}
	if in.CustomerPhone != "" {
		customer["phone"] = in.CustomerPhone
	}

	payload := map[string]any{
		"order": map[string]any{
			"email":            in.CustomerEmail,
			"line_items":       lineItems,
			"note":             strings.Join(notes, "\n\n"),
			"customer":         customer,
			"shipping_address": in.ShippingAddress,
			"billing_address":  in.BillingAddress,
		},
	}

	var result struct {
		Order shopifyOrder `json:"order"`
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		Post(c.baseURL + "/orders.json")
	if err != nil {
		return nil, fmt.Errorf("创建订单失败: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("创建订单失败: 状态码 %d: %s", resp.StatusCode(), resp.String())
	}

	created := c.serializeOrder(ctx, &result.Order)
	return &created, nil
}

// ==================== GetOrder ====================

// GetOrder 按 ID 查询订单，不存在或查询出错时返回 (nil, nil)
func (c *ShopifyConnector) GetOrder(ctx context.Context, orderID string) (*OrderData, error) {
	var result struct {
		Order shopifyOrder `json:"order"`
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get(c.baseURL + "/orders/" + orderID + ".json")
	if err != nil {
		log.Printf("[ShopifyConnector] 查询订单 %s 失败: %v", orderID, err)
		return nil, nil
	}
	if resp.IsError() {
		if resp.StatusCode() != http.StatusNotFound {
			log.Printf("[ShopifyConnector] 查询订单 %s 失败: 状态码 %d", orderID, resp.StatusCode())
		}
		return nil, nil
	}
	if result.Order.ID == 0 {
		return nil, nil
	}

	order := c.serializeOrder(ctx, &result.Order)
	return &order, nil
}

// ==================== UpdateTracking ====================

// UpdateTracking 通过 FulfillmentOrders API 创建履约记录并挂载物流单号
// 所有履约单元都已关闭/取消时视为已处理，返回 nil（调用方不应重试）
func (c *ShopifyConnector) UpdateTracking(ctx context.Context, orderID string, tracking *Tracking) error {
	var foResult struct {
		FulfillmentOrders []struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
		} `json:"fulfillment_orders"`
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&foResult).
		Get(c.baseURL + "/orders/" + orderID + "/fulfillment_orders.json")
	if err != nil {
		return fmt.Errorf("获取履约单失败: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("获取履约单失败: 状态码 %d", resp.StatusCode())
	}

	if len(foResult.FulfillmentOrders) == 0 {
		return fmt.Errorf("订单 %s: %w", orderID, ErrNoFulfillmentOrders)
	}

	// 找一个 open 状态的履约单
	var fulfillmentOrderID int64
	for _, fo := range foResult.FulfillmentOrders {
		if fo.Status == "open" {
			fulfillmentOrderID = fo.ID
			break
		}
	}
	if fulfillmentOrderID == 0 {
		log.Printf("[ShopifyConnector] 订单 %s 的履约单均已关闭/取消，跳过物流回写", orderID)
		return nil
	}

	payload := map[string]any{
		"fulfillment": map[string]any{
			"line_items_by_fulfillment_order": []map[string]any{
				{"fulfillment_order_id": fulfillmentOrderID},
			},
			"tracking_info": map[string]any{
				"number":  tracking.TrackingNumber,
				"company": tracking.TrackingCompany,
				"url":     tracking.TrackingURL,
			},
			"notify_customer": false,
		},
	}

	resp, err = c.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.baseURL + "/fulfillments.json")
	if err != nil {
		return fmt.Errorf("创建履约记录失败: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("创建履约记录失败: 状态码 %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// ==================== TagOrder ====================

// TagOrder 为订单追加标签（保留已有标签）
// 标签已存在时（忽略大小写）不发起写请求
func (c *ShopifyConnector) TagOrder(ctx context.Context, orderID string, tag string) error {
	var result struct {
		Order struct {
			ID   int64  `json:"id"`
			Tags string `json:"tags"`
		} `json:"order"`
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get(c.baseURL + "/orders/" + orderID + ".json")
	if err != nil {
		return fmt.Errorf("查询订单标签失败: %w", err)
	}
	if resp.IsError() || result.Order.ID == 0 {
		return fmt.Errorf("查询订单标签失败: 状态码 %d", resp.StatusCode())
	}

	if hasTag(result.Order.Tags, tag) {
		return nil
	}

	tags := splitTags(result.Order.Tags)
	tags = append(tags, tag)

	payload := map[string]any{
		"order": map[string]any{
			"id":   result.Order.ID,
			"tags": strings.Join(tags, ", "),
		},
	}

	resp, err = c.client.R().
		SetContext(ctx).
		SetBody(payload).
		Put(c.baseURL + "/orders/" + orderID + ".json")
	if err != nil {
		return fmt.Errorf("更新订单标签失败: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("更新订单标签失败: 状态码 %d", resp.StatusCode())
	}
	return nil
}

// ==================== CancelOrder ====================

// CancelOrder 取消订单，原因归一化到平台允许的枚举值
func (c *ShopifyConnector) CancelOrder(ctx context.Context, orderID string, reason string) error {
	payload := map[string]any{
		"reason": NormalizeCancelReason(reason),
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.baseURL + "/orders/" + orderID + "/cancel.json")
	if err != nil {
		return fmt.Errorf("取消订单失败: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("取消订单失败: 状态码 %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// ==================== 商品匹配 ====================

// resolveVariant 按配置的匹配方式查找目标店铺的商品变体
// 主方式未命中且行项目带有另一种标识时，用另一种标识兜底，
// 返回实际生效的匹配方式（如 "ean (fallback)"）
func (c *ShopifyConnector) resolveVariant(ctx context.Context, item CreateLineItem, lookupMethod string) (int64, string) {
	switch lookupMethod {
	case "ean":
		if item.EAN != "" {
			if id := c.findVariantByBarcode(ctx, item.EAN); id != 0 {
				return id, "ean"
			}
		}
		if item.SKU != "" {
			if id := c.findVariantBySKU(ctx, item.SKU); id != 0 {
				return id, "sku (fallback)"
			}
		}
	default: // sku
		if item.SKU != "" {
			if id := c.findVariantBySKU(ctx, item.SKU); id != 0 {
				return id, "sku"
			}
		}
		if item.EAN != "" {
			if id := c.findVariantByBarcode(ctx, item.EAN); id != 0 {
				return id, "ean (fallback)"
			}
		}
	}
	return 0, ""
}

// findVariantBySKU 按 SKU 遍历商品目录查找变体 ID，未命中返回 0
func (c *ShopifyConnector) findVariantBySKU(ctx context.Context, sku string) int64 {
	return c.findVariant(ctx, func(variantSKU, _ string) bool {
		return variantSKU == sku
	})
}

// findVariantByBarcode 按 EAN/条码遍历商品目录查找变体 ID，未命中返回 0
func (c *ShopifyConnector) findVariantByBarcode(ctx context.Context, barcode string) int64 {
	return c.findVariant(ctx, func(_, variantBarcode string) bool {
		return variantBarcode == barcode
	})
}

// findVariant 分页遍历全量商品目录（每页 250，跟随 Link header 翻页）
// 目录规模线性开销，每个未匹配行项目都会触发一次全量扫描
func (c *ShopifyConnector) findVariant(ctx context.Context, match func(sku, barcode string) bool) int64 {
	url := c.baseURL + "/products.json?limit=250"

	for url != "" {
		var result struct {
			Products []struct {
				ID       int64 `json:"id"`
				Variants []struct {
					ID      int64  `json:"id"`
					SKU     string `json:"sku"`
					Barcode string `json:"barcode"`
				} `json:"variants"`
			} `json:"products"`
		}

		resp, err := c.client.R().
			SetContext(ctx).
			SetResult(&result).
			Get(url)
		if err != nil {
			log.Printf("[ShopifyConnector] 拉取商品目录失败: %v", err)
			return 0
		}
		if resp.IsError() {
			log.Printf("[ShopifyConnector] 拉取商品目录失败: 状态码 %d", resp.StatusCode())
			return 0
		}

		for _, product := range result.Products {
			for _, variant := range product.Variants {
				if match(variant.SKU, variant.Barcode) {
					return variant.ID
				}
			}
		}

		url = nextPageURL(resp.Header().Get("Link"))
	}
	return 0
}

// getVariantBarcode 查询变体的 EAN/条码
func (c *ShopifyConnector) getVariantBarcode(ctx context.Context, variantID int64) string {
	if variantID == 0 {
		return ""
	}

	var result struct {
		Variant struct {
			Barcode string `json:"barcode"`
		} `json:"variant"`
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get(c.baseURL + "/variants/" + strconv.FormatInt(variantID, 10) + ".json")
	if err != nil || resp.IsError() {
		return ""
	}
	return result.Variant.Barcode
}

// ==================== 序列化 ====================

// serializeOrder 将 Shopify 订单转换为标准化结构
func (c *ShopifyConnector) serializeOrder(ctx context.Context, o *shopifyOrder) OrderData {
	var customerName, customerEmail, customerPhone string
	if o.Customer != nil {
		customerName = strings.TrimSpace(o.Customer.FirstName + " " + o.Customer.LastName)
		customerEmail = o.Customer.Email
		customerPhone = o.Customer.Phone
	}

	email := o.Email
	if email == "" {
		email = customerEmail
	}
	phone := customerPhone
	if phone == "" {
		phone = o.Phone
	}

	orderNumber := o.OrderNumber.String()
	if orderNumber == "" {
		orderNumber = o.Name
	}

	lines := make([]LineItemData, len(o.LineItems))
	for i, item := range o.LineItems {
		lines[i] = LineItemData{
			ID:        strconv.FormatInt(item.ID, 10),
			ProductID: formatID(item.ProductID),
			VariantID: formatID(item.VariantID),
			SKU:       item.SKU,
			EAN:       c.getVariantBarcode(ctx, item.VariantID),
			Title:     item.Title,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Tags:      combineLineTags(o.Tags, item.Properties),
		}
	}

	fulfillments := make([]Fulfillment, len(o.Fulfillments))
	for i, f := range o.Fulfillments {
		fulfillments[i] = Fulfillment{
			TrackingNumber:  f.TrackingNumber,
			TrackingCompany: f.TrackingCompany,
			TrackingURL:     f.TrackingURL,
		}
	}

	return OrderData{
		ID:                strconv.FormatInt(o.ID, 10),
		OrderNumber:       orderNumber,
		Email:             email,
		CustomerName:      customerName,
		CustomerPhone:     phone,
		CreatedAt:         o.CreatedAt,
		TotalPrice:        o.TotalPrice,
		Currency:          o.Currency,
		FulfillmentStatus: o.FulfillmentStatus,
		FinancialStatus:   o.FinancialStatus,
		CancelledAt:       o.CancelledAt,
		CancelReason:      o.CancelReason,
		ShippingAddress:   o.ShippingAddress,
		BillingAddress:    o.BillingAddress,
		LineItems:         lines,
		Fulfillments:      fulfillments,
	}
}

// ==================== 辅助函数 ====================

// formatID 数字 ID 转字符串，0 视为缺失返回空串
func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

// splitTags 拆分逗号分隔的标签串，去掉空白项
func splitTags(tags string) []string {
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// hasTag 判断标签串中是否包含指定标签（忽略大小写）
func hasTag(tags, target string) bool {
	target = strings.ToLower(strings.TrimSpace(target))
	for _, t := range splitTags(tags) {
		if strings.ToLower(t) == target {
			return true
		}
	}
	return false
}

// combineLineTags 合并订单级标签与行属性衍生标签，逗号拼接
func combineLineTags(orderTags string, props []shopifyProperty) string {
	combined := splitTags(orderTags)

	for _, p := range props {
		var val string
		if p.Value != nil {
			val = strings.TrimSpace(fmt.Sprintf("%v", p.Value))
		}
		if val == "" {
			val = strings.TrimSpace(p.Name)
		}
		if val != "" {
			combined = append(combined, val)
		}
	}

	return strings.Join(combined, ",")
}

// nextPageURL 从 Link header 中解析 rel="next" 的翻页地址
func nextPageURL(linkHeader string) string {
	if linkHeader == "" {
		return ""
	}
	for _, part := range strings.Split(linkHeader, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		segment := strings.SplitN(part, ";", 2)[0]
		return strings.Trim(strings.TrimSpace(segment), "<> ")
	}
	return ""
}
