package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"storesync_dev_v1_202608/internal/model"
)

// ==================== 过滤条件 ====================

// OrderFilter 订单列表过滤条件
type OrderFilter struct {
	SourceStoreID int64
	Status        string
	Keyword       string
	Page          int
	PageSize      int
}

// ==================== OrderRepository 订单仓库 ====================

// OrderRepository 订单仓库接口
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetBySourceOrder(ctx context.Context, sourceStoreID int64, sourceOrderID string) (*model.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)
	Update(ctx context.Context, order *model.Order) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error

	// 同步阶段查询
	ListRoutable(ctx context.Context, retryCooldown time.Duration) ([]model.Order, error)
	ListCancellationCandidates(ctx context.Context) ([]model.Order, error)
	ListTrackingCandidates(ctx context.Context, grace time.Duration) ([]model.Order, error)

	// 分发记录
	AddDestination(ctx context.Context, dest *model.OrderDestination) error
	ListDestinations(ctx context.Context, orderID int64) ([]model.OrderDestination, error)

	// 店铺引用统计（删除保护用）
	CountByStore(ctx context.Context, storeID int64) (int64, error)
}

type orderRepo struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepo{db: db}
}

// Create 创建订单及其行项目（同一事务）
func (r *orderRepo) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Destinations").
		First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetBySourceOrder 按去重键 (source_store_id, source_order_id) 查询
// 不存在时返回 (nil, nil)
func (r *orderRepo) GetBySourceOrder(ctx context.Context, sourceStoreID int64, sourceOrderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("source_store_id = ? AND source_order_id = ?", sourceStoreID, sourceOrderID).
		First(&order).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Order{})

	if filter.SourceStoreID > 0 {
		query = query.Where("source_store_id = ?", filter.SourceStoreID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Keyword != "" {
		kw := "%" + filter.Keyword + "%"
		query = query.Where("order_number LIKE ? OR customer_email LIKE ? OR customer_name LIKE ?", kw, kw, kw)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	var orders []model.Order
	err := query.
		Preload("Lines").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error
	return orders, total, err
}

func (r *orderRepo) Update(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

func (r *orderRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", id).Updates(fields).Error
}

// ==================== 同步阶段查询 ====================

// ListRoutable 待路由订单: pending，以及 failed 且创建时间早于冷却窗口的
func (r *orderRepo) ListRoutable(ctx context.Context, retryCooldown time.Duration) ([]model.Order, error) {
	cutoff := time.Now().UTC().Add(-retryCooldown)

	var orders []model.Order
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Destinations").
		Where("status = ? OR (status = ? AND created_at < ?)",
			model.OrderStatusPending, model.OrderStatusFailed, cutoff).
		Order("id").
		Find(&orders).Error
	return orders, err
}

// ListCancellationCandidates 待检查取消的订单:
// 已同步、物流未回写、目标店铺信息完整
func (r *orderRepo) ListCancellationCandidates(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND tracking_synced_at IS NULL", model.OrderStatusSynced).
		Where("destination_store_id IS NOT NULL AND destination_order_id <> ''").
		Order("id").
		Find(&orders).Error
	return orders, err
}

// ListTrackingCandidates 待回写物流的订单:
// 已同步、物流未回写、同步时间早于宽限窗口（给目标店铺留出履约时间）
func (r *orderRepo) ListTrackingCandidates(ctx context.Context, grace time.Duration) ([]model.Order, error) {
	cutoff := time.Now().UTC().Add(-grace)

	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND tracking_synced_at IS NULL AND synced_at < ?",
			model.OrderStatusSynced, cutoff).
		Order("id").
		Find(&orders).Error
	return orders, err
}

// ==================== 分发记录 ====================

func (r *orderRepo) AddDestination(ctx context.Context, dest *model.OrderDestination) error {
	return r.db.WithContext(ctx).Create(dest).Error
}

func (r *orderRepo) ListDestinations(ctx context.Context, orderID int64) ([]model.OrderDestination, error) {
	var dests []model.OrderDestination
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&dests).Error
	return dests, err
}

// ==================== 引用统计 ====================

// CountByStore 统计以指定店铺为来源或目标的订单数
func (r *orderRepo) CountByStore(ctx context.Context, storeID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("source_store_id = ? OR destination_store_id = ?", storeID, storeID).
		Count(&count).Error
	return count, err
}
