package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storesync_dev_v1_202608/internal/api/dto"
	"storesync_dev_v1_202608/internal/service"
)

// ==================== StoreController 店铺与路由管理 ====================

// StoreController 店铺与路由规则管理接口
type StoreController struct {
	storeSvc *service.StoreService
}

// NewStoreController 创建店铺控制器
func NewStoreController(storeSvc *service.StoreService) *StoreController {
	return &StoreController{storeSvc: storeSvc}
}

// ListStores 店铺列表
// GET /api/stores
func (c *StoreController) ListStores(ctx *gin.Context) {
	items, err := c.storeSvc.ListStores(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"list": items})
}

// CreateStore 新增店铺
// POST /api/stores
func (c *StoreController) CreateStore(ctx *gin.Context) {
	var req dto.CreateStoreReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	store, err := c.storeSvc.CreateStore(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"id": store.ID})
}

// DeleteStore 删除店铺（被引用的店铺拒绝删除）
// DELETE /api/stores/:id
func (c *StoreController) DeleteStore(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "ID 格式错误"})
		return
	}

	if err := c.storeSvc.DeleteStore(ctx.Request.Context(), id); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "已删除"})
}

// ListRoutes 路由规则列表
// GET /api/routes
func (c *StoreController) ListRoutes(ctx *gin.Context) {
	items, err := c.storeSvc.ListRoutes(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"list": items})
}

// CreateRoute 新增路由规则
// POST /api/routes
func (c *StoreController) CreateRoute(ctx *gin.Context) {
	var req dto.CreateRouteReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	rule, err := c.storeSvc.CreateRoute(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"id": rule.ID})
}

// SetRouteActive 启用/停用路由规则
// PATCH /api/routes/:id/active
func (c *StoreController) SetRouteActive(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "ID 格式错误"})
		return
	}

	var req dto.SetRouteActiveReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	if err := c.storeSvc.SetRouteActive(ctx.Request.Context(), id, *req.Active); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "已更新"})
}

// DeleteRoute 删除路由规则
// DELETE /api/routes/:id
func (c *StoreController) DeleteRoute(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "ID 格式错误"})
		return
	}

	if err := c.storeSvc.DeleteRoute(ctx.Request.Context(), id); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "已删除"})
}
