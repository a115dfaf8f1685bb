package service

import (
	"context"
	"fmt"
	"strings"

	"storesync_dev_v1_202608/internal/api/dto"
	"storesync_dev_v1_202608/internal/connector"
	"storesync_dev_v1_202608/internal/model"
	"storesync_dev_v1_202608/internal/repository"
)

// ==================== StoreService 店铺与路由管理服务 ====================

// StoreService 店铺与路由规则的唯一写入口（同步编排只读配置）
type StoreService struct {
	storeRepo   repository.StoreRepository
	routingRepo repository.RoutingRepository
	orderRepo   repository.OrderRepository
}

// NewStoreService 创建店铺管理服务
func NewStoreService(
	storeRepo repository.StoreRepository,
	routingRepo repository.RoutingRepository,
	orderRepo repository.OrderRepository,
) *StoreService {
	return &StoreService{
		storeRepo:   storeRepo,
		routingRepo: routingRepo,
		orderRepo:   orderRepo,
	}
}

// ==================== 店铺管理 ====================

// CreateStore 新增店铺
func (s *StoreService) CreateStore(ctx context.Context, req *dto.CreateStoreReq) (*model.Store, error) {
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role != model.StoreRoleSource && role != model.StoreRoleDestination {
		return nil, fmt.Errorf("非法角色 %q，只支持 source / destination", req.Role)
	}

	platform := strings.ToLower(strings.TrimSpace(req.PlatformType))
	if !connector.Supported(platform) {
		return nil, fmt.Errorf("不支持的平台类型 %q (已支持: %s)",
			req.PlatformType, strings.Join(connector.Platforms(), ", "))
	}

	// shop_url 全局唯一
	if existing, _ := s.storeRepo.GetByShopURL(ctx, req.ShopURL); existing != nil {
		return nil, fmt.Errorf("店铺标识 %s 已存在 (ID: %d)", req.ShopURL, existing.ID)
	}

	store := &model.Store{
		Name:         req.Name,
		PlatformType: platform,
		Role:         role,
		ShopURL:      req.ShopURL,
		AccessToken:  req.AccessToken,
		APIKey:       req.APIKey,
		APISecret:    req.APISecret,
		APIVersion:   req.APIVersion,
	}
	if store.APIVersion == "" {
		store.APIVersion = "2024-01"
	}

	if err := s.storeRepo.Create(ctx, store); err != nil {
		return nil, fmt.Errorf("店铺创建失败: %w", err)
	}
	return store, nil
}

// ListStores 店铺列表
func (s *StoreService) ListStores(ctx context.Context) ([]dto.StoreItem, error) {
	stores, err := s.storeRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询店铺列表失败: %w", err)
	}

	items := make([]dto.StoreItem, len(stores))
	for i, store := range stores {
		items[i] = dto.StoreItem{
			ID:           store.ID,
			Name:         store.Name,
			PlatformType: store.PlatformType,
			Role:         store.Role,
			ShopURL:      store.ShopURL,
			APIVersion:   store.APIVersion,
			CreatedAt:    store.CreatedAt,
		}
	}
	return items, nil
}

// DeleteStore 删除店铺
// 被订单或路由规则引用的店铺禁止删除，避免悬空外键
func (s *StoreService) DeleteStore(ctx context.Context, id int64) error {
	if _, err := s.storeRepo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("店铺不存在: %w", err)
	}

	orderCount, err := s.orderRepo.CountByStore(ctx, id)
	if err != nil {
		return fmt.Errorf("订单引用检查失败: %w", err)
	}
	if orderCount > 0 {
		return fmt.Errorf("店铺被 %d 个订单引用，禁止删除", orderCount)
	}

	routeCount, err := s.routingRepo.CountByStore(ctx, id)
	if err != nil {
		return fmt.Errorf("路由引用检查失败: %w", err)
	}
	if routeCount > 0 {
		return fmt.Errorf("店铺被 %d 条路由规则引用，请先删除规则", routeCount)
	}

	return s.storeRepo.Delete(ctx, id)
}

// ==================== 路由规则管理 ====================

// CreateRoute 新增路由规则
// 校验来源/目标店铺存在且角色正确；order_tags 规则必须带匹配值
func (s *StoreService) CreateRoute(ctx context.Context, req *dto.CreateRouteReq) (*model.OrderRouting, error) {
	source, err := s.storeRepo.GetByID(ctx, req.SourceStoreID)
	if err != nil {
		return nil, fmt.Errorf("来源店铺不存在: %w", err)
	}
	if !source.IsSource() {
		return nil, fmt.Errorf("店铺 %s 不是来源店铺", source.Name)
	}

	dest, err := s.storeRepo.GetByID(ctx, req.DestinationStoreID)
	if err != nil {
		return nil, fmt.Errorf("目标店铺不存在: %w", err)
	}
	if dest.Role != model.StoreRoleDestination {
		return nil, fmt.Errorf("店铺 %s 不是目标店铺", dest.Name)
	}

	method := strings.ToLower(strings.TrimSpace(req.RoutingMethod))
	if method == "" {
		method = model.RoutingMethodAll
	}
	switch method {
	case model.RoutingMethodAll:
	case model.RoutingMethodOrderTags:
		if strings.TrimSpace(req.RoutingMethodValue) == "" {
			return nil, fmt.Errorf("order_tags 规则必须提供匹配标签")
		}
	default:
		return nil, fmt.Errorf("非法路由方式 %q，只支持 all / order_tags", req.RoutingMethod)
	}

	lookup := strings.ToLower(strings.TrimSpace(req.LookupMethod))
	if lookup == "" {
		lookup = model.LookupMethodSKU
	}
	if lookup != model.LookupMethodSKU && lookup != model.LookupMethodEAN {
		return nil, fmt.Errorf("非法商品匹配方式 %q，只支持 sku / ean", req.LookupMethod)
	}

	rule := &model.OrderRouting{
		SourceStoreID:      req.SourceStoreID,
		DestinationStoreID: req.DestinationStoreID,
		RoutingMethod:      method,
		RoutingMethodValue: strings.TrimSpace(req.RoutingMethodValue),
		LookupMethod:       lookup,
		Priority:           req.Priority,
		IsActive:           1,
		Notes:              req.Notes,
	}
	if err := s.routingRepo.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("路由规则创建失败: %w", err)
	}
	return rule, nil
}

// ListRoutes 路由规则列表
func (s *StoreService) ListRoutes(ctx context.Context) ([]dto.RouteItem, error) {
	rules, err := s.routingRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询路由规则失败: %w", err)
	}

	items := make([]dto.RouteItem, len(rules))
	for i, rule := range rules {
		items[i] = dto.RouteItem{
			ID:                 rule.ID,
			SourceStoreID:      rule.SourceStoreID,
			DestinationStoreID: rule.DestinationStoreID,
			RoutingMethod:      rule.RoutingMethod,
			RoutingMethodValue: rule.RoutingMethodValue,
			LookupMethod:       rule.LookupMethod,
			Priority:           rule.Priority,
			IsActive:           rule.IsActive == 1,
			Notes:              rule.Notes,
			CreatedAt:          rule.CreatedAt,
		}
	}
	return items, nil
}

// SetRouteActive 启用/停用路由规则
func (s *StoreService) SetRouteActive(ctx context.Context, id int64, active bool) error {
	if _, err := s.routingRepo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("路由规则不存在: %w", err)
	}
	return s.routingRepo.SetActive(ctx, id, active)
}

// DeleteRoute 删除路由规则
func (s *StoreService) DeleteRoute(ctx context.Context, id int64) error {
	if _, err := s.routingRepo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("路由规则不存在: %w", err)
	}
	return s.routingRepo.Delete(ctx, id)
}
