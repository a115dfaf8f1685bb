package repository

import (
	"context"

	"gorm.io/gorm"

	"storesync_dev_v1_202608/internal/model"
)

// ==================== CycleLogRepository 同步周期记录仓库 ====================

// CycleLogRepository 同步周期记录仓库接口
type CycleLogRepository interface {
	Create(ctx context.Context, cycleLog *model.SyncCycleLog) error
	ListRecent(ctx context.Context, limit int) ([]model.SyncCycleLog, error)
}

type cycleLogRepo struct {
	db *gorm.DB
}

// NewCycleLogRepository 创建同步周期记录仓库
func NewCycleLogRepository(db *gorm.DB) CycleLogRepository {
	return &cycleLogRepo{db: db}
}

func (r *cycleLogRepo) Create(ctx context.Context, cycleLog *model.SyncCycleLog) error {
	return r.db.WithContext(ctx).Create(cycleLog).Error
}

func (r *cycleLogRepo) ListRecent(ctx context.Context, limit int) ([]model.SyncCycleLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var logs []model.SyncCycleLog
	err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
