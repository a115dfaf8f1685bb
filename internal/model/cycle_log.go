package model

import (
	"time"

	"github.com/lib/pq"
)

// ==================== 同步周期状态常量 ====================

// CycleStatus 同步周期执行状态
const (
	CycleStatusSuccess = "success"
	CycleStatusError   = "error"
)

// ==================== SyncCycleLog 同步周期记录表 ====================

// SyncCycleLog 每轮同步的结构化执行记录
// 替代逐行打印的运行叙述，供运维查询历史周期结果
type SyncCycleLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement"`

	// 周期唯一标识（UUID）
	CycleID string `gorm:"size:36;uniqueIndex"`

	Status string `gorm:"size:20;not null"`

	// 各阶段计数
	OrdersSynced    int
	OrdersRouted    int
	OrdersCancelled int
	TrackingUpdates int

	// 周期内收集到的告警/错误明细
	Errors pq.StringArray `gorm:"type:text[]"`

	StartedAt  time.Time
	FinishedAt time.Time
}

// TableName 指定表名
func (SyncCycleLog) TableName() string {
	return "sync_cycle_logs"
}
