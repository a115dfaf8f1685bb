package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storesync_dev_v1_202608/internal/api/dto"
	"storesync_dev_v1_202608/internal/service"
)

// ==================== OrderController 订单查询 ====================

// OrderController 订单查询接口（只读）
type OrderController struct {
	orderSvc *service.OrderService
}

// NewOrderController 创建订单控制器
func NewOrderController(orderSvc *service.OrderService) *OrderController {
	return &OrderController{orderSvc: orderSvc}
}

// ListOrders 订单列表（分页）
// GET /api/orders
func (c *OrderController) ListOrders(ctx *gin.Context) {
	var req dto.ListOrdersReq
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	resp, err := c.orderSvc.ListOrders(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetOrder 订单详情（含订单行与分发记录）
// GET /api/orders/:id
func (c *OrderController) GetOrder(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "ID 格式错误"})
		return
	}

	resp, err := c.orderSvc.GetOrderDetail(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
