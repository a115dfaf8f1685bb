package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storesync_dev_v1_202608/internal/api/dto"
	"storesync_dev_v1_202608/internal/model"
	"storesync_dev_v1_202608/internal/repository"
	"storesync_dev_v1_202608/internal/task"
)

// ==================== SyncController 同步触发与历史 ====================

// SyncController 手动触发同步周期（外部调度器的 HTTP 入口）并查询历史周期
type SyncController struct {
	syncTask  *task.SyncTask
	cycleRepo repository.CycleLogRepository
}

// NewSyncController 创建同步控制器
func NewSyncController(syncTask *task.SyncTask, cycleRepo repository.CycleLogRepository) *SyncController {
	return &SyncController{
		syncTask:  syncTask,
		cycleRepo: cycleRepo,
	}
}

// Run 立即执行一轮完整同步周期，返回结构化结果
// POST /api/sync/run
func (c *SyncController) Run(ctx *gin.Context) {
	result, err := c.syncTask.RunNow(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusOK
	if result.Status == model.CycleStatusError {
		status = http.StatusInternalServerError
	}
	ctx.JSON(status, result)
}

// ListCycles 查询最近的同步周期记录
// GET /api/sync/cycles?limit=20
func (c *SyncController) ListCycles(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	logs, err := c.cycleRepo.ListRecent(ctx.Request.Context(), limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]dto.CycleLogItem, len(logs))
	for i, cycleLog := range logs {
		items[i] = dto.CycleLogItem{
			CycleID:         cycleLog.CycleID,
			Status:          cycleLog.Status,
			OrdersSynced:    cycleLog.OrdersSynced,
			OrdersRouted:    cycleLog.OrdersRouted,
			OrdersCancelled: cycleLog.OrdersCancelled,
			TrackingUpdates: cycleLog.TrackingUpdates,
			Errors:          cycleLog.Errors,
			StartedAt:       cycleLog.StartedAt,
			FinishedAt:      cycleLog.FinishedAt,
		}
	}
	ctx.JSON(http.StatusOK, gin.H{"list": items})
}
