package task

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"storesync_dev_v1_202608/internal/api/dto"
	"storesync_dev_v1_202608/internal/service"
)

// ==================== SyncTask 订单同步定时任务 ====================

// SyncTask 固定间隔触发同步周期
// 设计上单 worker 串行：上一轮未结束时跳过本次触发，绝不并发跑两轮
type SyncTask struct {
	syncService  *service.SyncService
	cron         *cron.Cron
	interval     time.Duration
	cycleTimeout time.Duration

	// 防止周期重叠
	running sync.Mutex
}

// NewSyncTask 创建同步任务
func NewSyncTask(syncService *service.SyncService, interval time.Duration) *SyncTask {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &SyncTask{
		syncService:  syncService,
		cron:         cron.New(),
		interval:     interval,
		cycleTimeout: 10 * time.Minute,
	}
}

// Start 启动定时任务
func (t *SyncTask) Start(runImmediately bool) error {
	if runImmediately {
		go func() {
			log.Println("[SyncTask] 执行首次同步周期...")
			t.runCycle()
		}()
	}

	spec := fmt.Sprintf("@every %s", t.interval)
	if _, err := t.cron.AddFunc(spec, t.runCycle); err != nil {
		return fmt.Errorf("定时任务启动失败: %w", err)
	}

	t.cron.Start()
	log.Printf("[SyncTask] 已启动 (间隔 %s)", t.interval)
	return nil
}

// Stop 停止任务并等待在途周期结束
func (t *SyncTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	t.running.Lock() // 等待在途周期
	t.running.Unlock()
	log.Println("[SyncTask] 已停止")
}

// runCycle 执行一轮周期，上一轮未结束时跳过
func (t *SyncTask) runCycle() {
	if !t.running.TryLock() {
		log.Println("[SyncTask] 上一轮周期仍在执行，本次跳过")
		return
	}
	defer t.running.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), t.cycleTimeout)
	defer cancel()

	t.syncService.RunCycle(ctx)
}

// RunNow 立即执行一轮周期（手动触发入口），与定时触发共用同一把锁
func (t *SyncTask) RunNow(ctx context.Context) (*dto.CycleResult, error) {
	if !t.running.TryLock() {
		return nil, fmt.Errorf("同步周期正在执行中，请稍后再试")
	}
	defer t.running.Unlock()

	return t.syncService.RunCycle(ctx), nil
}
