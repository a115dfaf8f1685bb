package dto

import "time"

// ==================== 同步周期 ====================

// CycleResult 一轮同步（4 个阶段）的结构化结果
type CycleResult struct {
	CycleID string `json:"cycle_id"`
	Status  string `json:"status"` // success / error

	OrdersSynced    int `json:"orders_synced"`    // 阶段 1: 新入库订单数
	OrdersRouted    int `json:"orders_routed"`    // 阶段 2: 目标下单成功次数
	OrdersCancelled int `json:"orders_cancelled"` // 阶段 3: 回写取消数
	TrackingUpdates int `json:"tracking_updates"` // 阶段 4: 物流回写成功数

	// 周期内收集的告警/错误明细（不包含已按订单隔离处理的常规跳过）
	Errors []string `json:"errors,omitempty"`

	// 周期级致命错误
	Error string `json:"error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// CycleLogItem 历史周期记录
type CycleLogItem struct {
	CycleID         string    `json:"cycle_id"`
	Status          string    `json:"status"`
	OrdersSynced    int       `json:"orders_synced"`
	OrdersRouted    int       `json:"orders_routed"`
	OrdersCancelled int       `json:"orders_cancelled"`
	TrackingUpdates int       `json:"tracking_updates"`
	Errors          []string  `json:"errors,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}
