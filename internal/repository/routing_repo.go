package repository

import (
	"context"

	"gorm.io/gorm"

	"storesync_dev_v1_202608/internal/model"
)

// ==================== RoutingRepository 路由规则仓库 ====================

// RoutingRepository 路由规则仓库接口
type RoutingRepository interface {
	Create(ctx context.Context, rule *model.OrderRouting) error
	GetByID(ctx context.Context, id int64) (*model.OrderRouting, error)
	List(ctx context.Context) ([]model.OrderRouting, error)
	ListActiveBySource(ctx context.Context, sourceStoreID int64) ([]model.OrderRouting, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	CountByStore(ctx context.Context, storeID int64) (int64, error)
}

type routingRepo struct {
	db *gorm.DB
}

// NewRoutingRepository 创建路由规则仓库
func NewRoutingRepository(db *gorm.DB) RoutingRepository {
	return &routingRepo{db: db}
}

func (r *routingRepo) Create(ctx context.Context, rule *model.OrderRouting) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *routingRepo) GetByID(ctx context.Context, id int64) (*model.OrderRouting, error) {
	var rule model.OrderRouting
	if err := r.db.WithContext(ctx).First(&rule, id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *routingRepo) List(ctx context.Context) ([]model.OrderRouting, error) {
	var rules []model.OrderRouting
	err := r.db.WithContext(ctx).Order("source_store_id, priority DESC").Find(&rules).Error
	return rules, err
}

// ListActiveBySource 指定来源店铺的启用规则，按优先级降序
func (r *routingRepo) ListActiveBySource(ctx context.Context, sourceStoreID int64) ([]model.OrderRouting, error) {
	var rules []model.OrderRouting
	err := r.db.WithContext(ctx).
		Where("is_active = 1 AND source_store_id = ?", sourceStoreID).
		Order("priority DESC").
		Find(&rules).Error
	return rules, err
}

func (r *routingRepo) SetActive(ctx context.Context, id int64, active bool) error {
	val := 0
	if active {
		val = 1
	}
	return r.db.WithContext(ctx).Model(&model.OrderRouting{}).
		Where("id = ?", id).
		Update("is_active", val).Error
}

func (r *routingRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.OrderRouting{}, id).Error
}

// CountByStore 统计引用指定店铺（来源或目标）的规则数
func (r *routingRepo) CountByStore(ctx context.Context, storeID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.OrderRouting{}).
		Where("source_store_id = ? OR destination_store_id = ?", storeID, storeID).
		Count(&count).Error
	return count, err
}
