package repository

import (
	"context"

	"gorm.io/gorm"

	"storesync_dev_v1_202608/internal/model"
)

// ==================== StoreRepository 店铺仓库 ====================

// StoreRepository 店铺配置仓库接口
type StoreRepository interface {
	Create(ctx context.Context, store *model.Store) error
	GetByID(ctx context.Context, id int64) (*model.Store, error)
	GetByShopURL(ctx context.Context, shopURL string) (*model.Store, error)
	ListByRole(ctx context.Context, role string) ([]model.Store, error)
	List(ctx context.Context) ([]model.Store, error)
	Delete(ctx context.Context, id int64) error
}

type storeRepo struct {
	db *gorm.DB
}

// NewStoreRepository 创建店铺仓库
func NewStoreRepository(db *gorm.DB) StoreRepository {
	return &storeRepo{db: db}
}

func (r *storeRepo) Create(ctx context.Context, store *model.Store) error {
	return r.db.WithContext(ctx).Create(store).Error
}

func (r *storeRepo) GetByID(ctx context.Context, id int64) (*model.Store, error) {
	var store model.Store
	if err := r.db.WithContext(ctx).First(&store, id).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *storeRepo) GetByShopURL(ctx context.Context, shopURL string) (*model.Store, error) {
	var store model.Store
	if err := r.db.WithContext(ctx).Where("shop_url = ?", shopURL).First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *storeRepo) ListByRole(ctx context.Context, role string) ([]model.Store, error) {
	var stores []model.Store
	err := r.db.WithContext(ctx).Where("role = ?", role).Order("id").Find(&stores).Error
	return stores, err
}

func (r *storeRepo) List(ctx context.Context) ([]model.Store, error) {
	var stores []model.Store
	err := r.db.WithContext(ctx).Order("id").Find(&stores).Error
	return stores, err
}

func (r *storeRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Store{}, id).Error
}
