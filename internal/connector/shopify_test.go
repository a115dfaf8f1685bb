package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// newShopifyConn 指向测试桩的连接器
func newShopifyConn(serverURL string) Connector {
	return NewShopifyConnector(Config{
		ShopURL:     serverURL,
		AccessToken: "shpat_test",
		APIVersion:  "2024-01",
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// ==================== FetchOrders ====================

func TestShopifyFetchOrders_Filters(t *testing.T) {
	var gotQuery map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc("/admin/api/2024-01/orders.json", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"created_at_min":     r.URL.Query().Get("created_at_min"),
			"fulfillment_status": r.URL.Query().Get("fulfillment_status"),
		}
		writeJSON(w, map[string]any{
			"orders": []map[string]any{
				{
					"id":           1,
					"order_number": 1001,
					"name":         "#1001",
					"email":        "anna@example.com",
					"created_at":   "2026-08-30T09:00:00Z",
					"total_price":  "59.97",
					"currency":     "EUR",
					"tags":         "priority",
					"customer": map[string]any{
						"first_name": "Anna", "last_name": "Schmidt",
					},
					"line_items": []map[string]any{
						{
							"id": 11, "product_id": 21, "variant_id": 31,
							"sku": "SKU-1", "title": "Hundebox", "quantity": 3, "price": "19.99",
							"properties": []map[string]any{{"name": "gravur", "value": "engraved"}},
						},
					},
				},
				// 已打 synced 标签（忽略大小写），应过滤
				{"id": 2, "order_number": 1002, "tags": "Synced, retail"},
				// 已取消，应过滤
				{"id": 3, "order_number": 1003, "cancelled_at": "2026-08-29T10:00:00Z"},
				// 已退款，应过滤
				{"id": 4, "order_number": 1004, "financial_status": "refunded"},
			},
		})
	})
	mux.HandleFunc("/admin/api/2024-01/variants/31.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"variant": map[string]any{"barcode": "4001234567890"}})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	conn := newShopifyConn(server.URL)
	since := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	orders, err := conn.FetchOrders(context.Background(), since)
	if err != nil {
		t.Fatalf("拉取订单失败: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("过滤结果错误: got %d 个订单", len(orders))
	}

	if gotQuery["fulfillment_status"] != "unfulfilled" {
		t.Errorf("履约状态查询参数错误: %q", gotQuery["fulfillment_status"])
	}
	if gotQuery["created_at_min"] != since.Format(time.RFC3339) {
		t.Errorf("时间窗口查询参数错误: %q", gotQuery["created_at_min"])
	}

	o := orders[0]
	if o.ID != "1" || o.OrderNumber != "1001" {
		t.Errorf("订单标识错误: id=%s number=%s", o.ID, o.OrderNumber)
	}
	if o.CustomerName != "Anna Schmidt" || o.Email != "anna@example.com" {
		t.Errorf("客户信息错误: %s / %s", o.CustomerName, o.Email)
	}
	if len(o.LineItems) != 1 {
		t.Fatalf("订单行数量错误: %d", len(o.LineItems))
	}

	line := o.LineItems[0]
	if line.EAN != "4001234567890" {
		t.Errorf("EAN 补全错误: %q", line.EAN)
	}
	// 订单级标签 + 行属性衍生标签
	if line.Tags != "priority,engraved" {
		t.Errorf("行标签合并错误: %q", line.Tags)
	}
}

func TestShopifyFetchOrders_NameFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/api/2024-01/orders.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"orders": []map[string]any{
				{"id": 5, "name": "#GD1005", "created_at": "2026-08-30T09:00:00Z"},
			},
		})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	orders, err := newShopifyConn(server.URL).FetchOrders(context.Background(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("拉取订单失败: %v", err)
	}
	if len(orders) != 1 || orders[0].OrderNumber != "#GD1005" {
		t.Errorf("订单号兜底错误: %+v", orders)
	}
}

// ==================== CreateOrder ====================

func TestShopifyCreateOrder(t *testing.T) {
	var createBody map[string]any
	productPages := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/admin/api/2024-01/products.json", func(w http.ResponseWriter, r *http.Request) {
		// 第一页无匹配并带 Link 翻页头，第二页命中
		if r.URL.Query().Get("page_info") == "" {
			productPages++
			w.Header().Set("Link",
				fmt.Sprintf(`<%s/admin/api/2024-01/products.json?limit=250&page_info=p2>; rel="next"`, "http://"+r.Host))
			writeJSON(w, map[string]any{
				"products": []map[string]any{
					{"id": 100, "variants": []map[string]any{{"id": 110, "sku": "OTHER", "barcode": ""}}},
				},
			})
			return
		}
		writeJSON(w, map[string]any{
			"products": []map[string]any{
				{"id": 200, "variants": []map[string]any{
					{"id": 210, "sku": "SKU-1", "barcode": "4001234567890"},
				}},
			},
		})
	})
	mux.HandleFunc("/admin/api/2024-01/orders.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&createBody)
		writeJSON(w, map[string]any{
			"order": map[string]any{"id": 999, "order_number": 2001, "created_at": "2026-08-31T08:00:00Z"},
		})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	created, err := newShopifyConn(server.URL).CreateOrder(context.Background(), &CreateOrderInput{
		LookupMethod:      "sku",
		SourceStoreName:   "EU Store",
		SourceOrderNumber: "#1001",
		CustomerEmail:     "anna@example.com",
		CustomerName:      "Anna Maria Schmidt",
		LineItems: []CreateLineItem{
			{SKU: "SKU-1", Quantity: 3, Price: "19.99"},
			// 目标店铺不存在的商品，应丢弃
			{SKU: "SKU-MISSING", Quantity: 1, Price: "9.99"},
		},
	})
	if err != nil {
		t.Fatalf("创建订单失败: %v", err)
	}
	if created.ID != "999" || created.OrderNumber != "2001" {
		t.Errorf("创建结果错误: id=%s number=%s", created.ID, created.OrderNumber)
	}

	order := createBody["order"].(map[string]any)

	// 备注格式
	wantNote := "ChannelName\nEU Store\n\nChannelOrderNo\n#1001\n\nIntegrator\ninit_sync"
	if order["note"] != wantNote {
		t.Errorf("备注格式错误:\n got: %q\nwant: %q", order["note"], wantNote)
	}

	// 未匹配行已丢弃，只剩命中的变体
	lines := order["line_items"].([]any)
	if len(lines) != 1 {
		t.Fatalf("行项目数量错误: %d", len(lines))
	}
	line := lines[0].(map[string]any)
	if line["variant_id"].(float64) != 210 || line["quantity"].(float64) != 3 {
		t.Errorf("行项目错误: %+v", line)
	}

	// 客户名按首个空格拆分
	customer := order["customer"].(map[string]any)
	if customer["first_name"] != "Anna" || customer["last_name"] != "Maria Schmidt" {
		t.Errorf("客户名拆分错误: %+v", customer)
	}

	// 每个待匹配行各触发一次目录扫描（SKU-1 命中，SKU-MISSING 扫完丢弃）
	if productPages != 2 {
		t.Errorf("目录扫描次数错误: %d", productPages)
	}
}

func TestShopifyCreateOrder_EANFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/api/2024-01/products.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"products": []map[string]any{
				{"id": 300, "variants": []map[string]any{
					{"id": 310, "sku": "LOCAL-SKU", "barcode": "4001234567890"},
				}},
			},
		})
	})
	mux.HandleFunc("/admin/api/2024-01/orders.json", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		lines := body["order"].(map[string]any)["line_items"].([]any)
		if len(lines) != 1 || lines[0].(map[string]any)["variant_id"].(float64) != 310 {
			t.Errorf("EAN 兜底匹配错误: %+v", lines)
		}
		writeJSON(w, map[string]any{"order": map[string]any{"id": 888}})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	// SKU 在目标店铺不存在，但 EAN 能对上
	_, err := newShopifyConn(server.URL).CreateOrder(context.Background(), &CreateOrderInput{
		LookupMethod: "sku",
		LineItems: []CreateLineItem{
			{SKU: "EU-SKU-9", EAN: "4001234567890", Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("创建订单失败: %v", err)
	}
}

func TestShopifyCreateOrder_NoValidLineItems(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/api/2024-01/products.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"products": []any{}})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	_, err := newShopifyConn(server.URL).CreateOrder(context.Background(), &CreateOrderInput{
		LookupMethod: "sku",
		LineItems:    []CreateLineItem{{SKU: "GONE", Quantity: 1}},
	})
	if !errors.Is(err, ErrNoValidLineItems) {
		t.Errorf("错误类型不符: %v", err)
	}
}

// ==================== GetOrder ====================

func TestShopifyGetOrder_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	order, err := newShopifyConn(server.URL).GetOrder(context.Background(), "404404")
	if err != nil {
		t.Errorf("不存在的订单不应报错: %v", err)
	}
	if order != nil {
		t.Errorf("不存在的订单应返回 nil: %+v", order)
	}
}

// ==================== TagOrder ====================

func TestShopifyTagOrder(t *testing.T) {
	tags := "retail"
	var putBody map[string]any
	putCalls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/admin/api/2024-01/orders/7.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			putCalls++
			_ = json.NewDecoder(r.Body).Decode(&putBody)
			writeJSON(w, map[string]any{"order": map[string]any{"id": 7}})
			return
		}
		writeJSON(w, map[string]any{"order": map[string]any{"id": 7, "tags": tags}})
	})

	server := httptest.NewServer(mux)
	defer server.Close()
	conn := newShopifyConn(server.URL)

	// 追加标签并保留已有标签
	if err := conn.TagOrder(context.Background(), "7", "synced"); err != nil {
		t.Fatalf("打标签失败: %v", err)
	}
	if putCalls != 1 {
		t.Fatalf("PUT 次数错误: %d", putCalls)
	}
	if got := putBody["order"].(map[string]any)["tags"]; got != "retail, synced" {
		t.Errorf("标签合并错误: %q", got)
	}

	// 标签已存在（忽略大小写）时不发写请求
	tags = "Synced, retail"
	if err := conn.TagOrder(context.Background(), "7", "synced"); err != nil {
		t.Fatalf("幂等打标签失败: %v", err)
	}
	if putCalls != 1 {
		t.Errorf("幂等打标签不应发 PUT: %d 次", putCalls)
	}
}

// ==================== UpdateTracking ====================

func TestShopifyUpdateTracking(t *testing.T) {
	tracking := &Tracking{
		TrackingNumber:  "1Z9999W99999999999",
		TrackingCompany: "UPS",
		TrackingURL:     "https://track.example/1Z",
	}

	t.Run("正常挂载物流", func(t *testing.T) {
		var fulfillBody map[string]any

		mux := http.NewServeMux()
		mux.HandleFunc("/admin/api/2024-01/orders/9/fulfillment_orders.json", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{
				"fulfillment_orders": []map[string]any{
					{"id": 91, "status": "closed"},
					{"id": 92, "status": "open"},
				},
			})
		})
		mux.HandleFunc("/admin/api/2024-01/fulfillments.json", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&fulfillBody)
			writeJSON(w, map[string]any{"fulfillment": map[string]any{"id": 1}})
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		if err := newShopifyConn(server.URL).UpdateTracking(context.Background(), "9", tracking); err != nil {
			t.Fatalf("物流挂载失败: %v", err)
		}

		f := fulfillBody["fulfillment"].(map[string]any)
		info := f["tracking_info"].(map[string]any)
		if info["number"] != tracking.TrackingNumber || info["company"] != "UPS" {
			t.Errorf("物流信息错误: %+v", info)
		}
		if f["notify_customer"] != false {
			t.Errorf("不应通知客户: %v", f["notify_customer"])
		}
		byFO := f["line_items_by_fulfillment_order"].([]any)
		if byFO[0].(map[string]any)["fulfillment_order_id"].(float64) != 92 {
			t.Errorf("应选择 open 状态的履约单: %+v", byFO)
		}
	})

	t.Run("履约单全部关闭视为成功", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/admin/api/2024-01/orders/9/fulfillment_orders.json", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{
				"fulfillment_orders": []map[string]any{{"id": 91, "status": "closed"}},
			})
		})
		mux.HandleFunc("/admin/api/2024-01/fulfillments.json", func(w http.ResponseWriter, r *http.Request) {
			t.Error("不应创建履约记录")
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		if err := newShopifyConn(server.URL).UpdateTracking(context.Background(), "9", tracking); err != nil {
			t.Errorf("应视为成功空操作: %v", err)
		}
	})

	t.Run("无履约单报错", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/admin/api/2024-01/orders/9/fulfillment_orders.json", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"fulfillment_orders": []any{}})
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		err := newShopifyConn(server.URL).UpdateTracking(context.Background(), "9", tracking)
		if !errors.Is(err, ErrNoFulfillmentOrders) {
			t.Errorf("错误类型不符: %v", err)
		}
	})
}

// ==================== CancelOrder ====================

func TestShopifyCancelOrder(t *testing.T) {
	var cancelBody map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/admin/api/2024-01/orders/12/cancel.json", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&cancelBody)
		writeJSON(w, map[string]any{"order": map[string]any{"id": 12}})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	if err := newShopifyConn(server.URL).CancelOrder(context.Background(), "12", "Customer changed mind"); err != nil {
		t.Fatalf("取消订单失败: %v", err)
	}
	if cancelBody["reason"] != "other" {
		t.Errorf("取消原因未归一化: %q", cancelBody["reason"])
	}
}

// ==================== 辅助函数 ====================

func TestNextPageURL(t *testing.T) {
	link := `<https://shop.myshopify.com/admin/api/2024-01/products.json?page_info=prev>; rel="previous", ` +
		`<https://shop.myshopify.com/admin/api/2024-01/products.json?page_info=next>; rel="next"`
	got := nextPageURL(link)
	want := "https://shop.myshopify.com/admin/api/2024-01/products.json?page_info=next"
	if got != want {
		t.Errorf("翻页地址解析错误: %q", got)
	}

	if nextPageURL(`<https://x/prev>; rel="previous"`) != "" {
		t.Error("无 next 时应返回空")
	}
	if nextPageURL("") != "" {
		t.Error("空 Link 应返回空")
	}
}

func TestHasTag(t *testing.T) {
	if !hasTag("Synced, retail", "synced") {
		t.Error("忽略大小写匹配失败")
	}
	if hasTag("resynced, retail", "synced") {
		t.Error("子串不应命中")
	}
	if hasTag("", "synced") {
		t.Error("空标签串不应命中")
	}
}

func TestCombineLineTags(t *testing.T) {
	props := []shopifyProperty{
		{Name: "gravur", Value: "engraved"},
		{Name: "fallback-name", Value: ""},
		{Name: "", Value: nil},
	}
	got := combineLineTags("vip, gift", props)
	if !strings.Contains(got, "vip") || !strings.Contains(got, "engraved") || !strings.Contains(got, "fallback-name") {
		t.Errorf("标签合并错误: %q", got)
	}
}
