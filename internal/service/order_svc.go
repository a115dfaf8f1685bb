package service

import (
	"context"
	"fmt"

	"storesync_dev_v1_202608/internal/api/dto"
	"storesync_dev_v1_202608/internal/model"
	"storesync_dev_v1_202608/internal/repository"
)

// ==================== OrderService 订单查询服务 ====================

// OrderService 同步订单的只读查询（订单状态只由同步编排写入）
type OrderService struct {
	orderRepo repository.OrderRepository
}

// NewOrderService 创建订单查询服务
func NewOrderService(orderRepo repository.OrderRepository) *OrderService {
	return &OrderService{orderRepo: orderRepo}
}

// ListOrders 订单列表
func (s *OrderService) ListOrders(ctx context.Context, req *dto.ListOrdersReq) (*dto.ListOrdersResp, error) {
	orders, total, err := s.orderRepo.List(ctx, repository.OrderFilter{
		SourceStoreID: req.SourceStoreID,
		Status:        req.Status,
		Keyword:       req.Keyword,
		Page:          req.Page,
		PageSize:      req.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("查询订单列表失败: %w", err)
	}

	list := make([]dto.OrderListItem, len(orders))
	for i := range orders {
		list[i] = toOrderListItem(&orders[i])
	}
	return &dto.ListOrdersResp{Total: total, List: list}, nil
}

// GetOrderDetail 订单详情（含行项目与分发记录）
func (s *OrderService) GetOrderDetail(ctx context.Context, orderID int64) (*dto.OrderDetailResp, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("订单不存在")
	}

	resp := &dto.OrderDetailResp{Order: toOrderListItem(order)}

	resp.Lines = make([]dto.OrderLineVO, len(order.Lines))
	for i, line := range order.Lines {
		resp.Lines[i] = dto.OrderLineVO{
			ID:        line.ID,
			SKU:       line.SKU,
			EAN:       line.EAN,
			ProductID: line.ProductID,
			Title:     line.Title,
			Quantity:  line.Quantity,
			Price:     line.Price,
			Tags:      line.Tags,
		}
	}

	resp.Destinations = make([]dto.OrderDestinationVO, len(order.Destinations))
	for i, dest := range order.Destinations {
		resp.Destinations[i] = dto.OrderDestinationVO{
			DestinationStoreID: dest.DestinationStoreID,
			DestinationOrderID: dest.DestinationOrderID,
			LookupMethod:       dest.LookupMethod,
			CreatedAt:          dest.CreatedAt,
		}
	}
	return resp, nil
}

func toOrderListItem(order *model.Order) dto.OrderListItem {
	return dto.OrderListItem{
		ID:                 order.ID,
		SourceStoreID:      order.SourceStoreID,
		SourceOrderID:      order.SourceOrderID,
		DestinationStoreID: order.DestinationStoreID,
		DestinationOrderID: order.DestinationOrderID,
		OrderNumber:        order.OrderNumber,
		CustomerName:       order.CustomerName,
		CustomerEmail:      order.CustomerEmail,
		TotalPrice:         order.TotalPrice,
		Currency:           order.Currency,
		Status:             order.Status,
		RouteAttempts:      order.RouteAttempts,
		TrackingNumber:     order.TrackingNumber,
		LineCount:          len(order.Lines),
		CreatedAt:          order.CreatedAt,
		SyncedAt:           order.SyncedAt,
		TrackingSyncedAt:   order.TrackingSyncedAt,
	}
}
