package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"storesync_dev_v1_202608/internal/api/dto"
	"storesync_dev_v1_202608/internal/model"
)

func newStoreSvcEnv(t *testing.T) (*StoreService, *syncEnv) {
	t.Helper()
	env := newSyncEnv(t)
	return NewStoreService(env.storeRepo, env.routeRepo, env.orderRepo), env
}

func TestStoreService_CreateStore(t *testing.T) {
	svc, _ := newStoreSvcEnv(t)
	ctx := context.Background()

	store, err := svc.CreateStore(ctx, &dto.CreateStoreReq{
		Name:         "EU 主店",
		PlatformType: "Mock", // 平台类型大小写不敏感
		Role:         "Source",
		ShopURL:      "eu.example.test",
		AccessToken:  "token",
	})
	assert.NoError(t, err)
	assert.Equal(t, model.StoreRoleSource, store.Role)
	assert.Equal(t, "mock", store.PlatformType)
	assert.Equal(t, "2024-01", store.APIVersion, "API 版本应有默认值")

	// 非法角色
	_, err = svc.CreateStore(ctx, &dto.CreateStoreReq{
		Name: "x", PlatformType: "mock", Role: "relay", ShopURL: "r.example.test",
	})
	assert.Error(t, err)

	// 未注册平台
	_, err = svc.CreateStore(ctx, &dto.CreateStoreReq{
		Name: "x", PlatformType: "woocommerce", Role: "source", ShopURL: "w.example.test",
	})
	assert.Error(t, err)

	// shop_url 全局唯一
	_, err = svc.CreateStore(ctx, &dto.CreateStoreReq{
		Name: "重复店", PlatformType: "mock", Role: "destination", ShopURL: "eu.example.test",
	})
	assert.Error(t, err)
}

func TestStoreService_DeleteStoreProtection(t *testing.T) {
	svc, env := newStoreSvcEnv(t)
	ctx := context.Background()

	source := env.addStore(t, "EU 主店", model.StoreRoleSource, "src.example.test")
	dest := env.addStore(t, "DE 仓店", model.StoreRoleDestination, "dst.example.test")
	spare := env.addStore(t, "闲置店", model.StoreRoleDestination, "spare.example.test")

	env.addRule(t, source.ID, dest.ID, model.RoutingMethodAll, "", model.LookupMethodSKU, 0)
	env.addPendingOrder(t, source.ID, "1001", "")

	// 被订单引用
	err := svc.DeleteStore(ctx, source.ID)
	assert.ErrorContains(t, err, "订单引用")

	// 被路由规则引用
	err = svc.DeleteStore(ctx, dest.ID)
	assert.ErrorContains(t, err, "路由规则引用")

	// 无引用可删
	assert.NoError(t, svc.DeleteStore(ctx, spare.ID))

	// 不存在的店铺
	assert.Error(t, svc.DeleteStore(ctx, 9999))
}

func TestStoreService_CreateRoute(t *testing.T) {
	svc, env := newStoreSvcEnv(t)
	ctx := context.Background()

	source := env.addStore(t, "EU 主店", model.StoreRoleSource, "src2.example.test")
	dest := env.addStore(t, "DE 仓店", model.StoreRoleDestination, "dst2.example.test")

	// 默认值: all + sku + 启用
	rule, err := svc.CreateRoute(ctx, &dto.CreateRouteReq{
		SourceStoreID:      source.ID,
		DestinationStoreID: dest.ID,
	})
	assert.NoError(t, err)
	assert.Equal(t, model.RoutingMethodAll, rule.RoutingMethod)
	assert.Equal(t, model.LookupMethodSKU, rule.LookupMethod)
	assert.Equal(t, 1, rule.IsActive)

	// 角色校验：目标不能当来源
	_, err = svc.CreateRoute(ctx, &dto.CreateRouteReq{
		SourceStoreID:      dest.ID,
		DestinationStoreID: source.ID,
	})
	assert.Error(t, err)

	// order_tags 规则必须带匹配值
	_, err = svc.CreateRoute(ctx, &dto.CreateRouteReq{
		SourceStoreID:      source.ID,
		DestinationStoreID: dest.ID,
		RoutingMethod:      model.RoutingMethodOrderTags,
	})
	assert.ErrorContains(t, err, "匹配标签")

	// 非法匹配方式
	_, err = svc.CreateRoute(ctx, &dto.CreateRouteReq{
		SourceStoreID:      source.ID,
		DestinationStoreID: dest.ID,
		RoutingMethod:      "product_type",
	})
	assert.Error(t, err)

	// 非法商品匹配方式
	_, err = svc.CreateRoute(ctx, &dto.CreateRouteReq{
		SourceStoreID:      source.ID,
		DestinationStoreID: dest.ID,
		LookupMethod:       "upc",
	})
	assert.Error(t, err)
}

func TestStoreService_SetRouteActive(t *testing.T) {
	svc, env := newStoreSvcEnv(t)
	ctx := context.Background()

	source := env.addStore(t, "EU 主店", model.StoreRoleSource, "src3.example.test")
	dest := env.addStore(t, "DE 仓店", model.StoreRoleDestination, "dst3.example.test")

	rule, err := svc.CreateRoute(ctx, &dto.CreateRouteReq{
		SourceStoreID:      source.ID,
		DestinationStoreID: dest.ID,
	})
	assert.NoError(t, err)

	// 停用后不再参与路由评估
	assert.NoError(t, svc.SetRouteActive(ctx, rule.ID, false))
	active, err := env.routeRepo.ListActiveBySource(ctx, source.ID)
	assert.NoError(t, err)
	assert.Empty(t, active)

	assert.NoError(t, svc.SetRouteActive(ctx, rule.ID, true))
	active, _ = env.routeRepo.ListActiveBySource(ctx, source.ID)
	assert.Len(t, active, 1)

	assert.Error(t, svc.SetRouteActive(ctx, 9999, true))
}
