// storectl 店铺与路由规则运维工具
//
// 用法:
//
//	storectl list-stores
//	storectl add-store -name "EU 主店" -platform shopify -role source -url eu.myshopify.com -token shpat_xxx
//	storectl delete-store -id 3
//	storectl list-routes
//	storectl add-route -source 1 -dest 2 -method order_tags -value VIP -lookup ean -priority 10
//	storectl route-active -id 5 -active=false
//	storectl delete-route -id 5
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"storesync_dev_v1_202608/internal/api/dto"
	"storesync_dev_v1_202608/internal/model"
	"storesync_dev_v1_202608/internal/repository"
	"storesync_dev_v1_202608/internal/service"
	"storesync_dev_v1_202608/pkg/database"
)

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=storesync port=5432 sslmode=disable"
	}

	db := database.InitDB(dsn, false,
		&model.Store{},
		&model.Order{}, &model.OrderLine{}, &model.OrderDestination{},
		&model.OrderRouting{},
		&model.SyncCycleLog{},
	)

	storeSvc := service.NewStoreService(
		repository.NewStoreRepository(db),
		repository.NewRoutingRepository(db),
		repository.NewOrderRepository(db),
	)

	ctx := context.Background()
	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "list-stores":
		err = listStores(ctx, storeSvc)
	case "add-store":
		err = addStore(ctx, storeSvc, args)
	case "delete-store":
		err = deleteStore(ctx, storeSvc, args)
	case "list-routes":
		err = listRoutes(ctx, storeSvc)
	case "add-route":
		err = addRoute(ctx, storeSvc, args)
	case "route-active":
		err = routeActive(ctx, storeSvc, args)
	case "delete-route":
		err = deleteRoute(ctx, storeSvc, args)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("错误: %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, strings.TrimSpace(`
用法: storectl <命令> [参数]

命令:
  list-stores    列出所有店铺
  add-store      新增店铺      (-name -platform -role -url -token [-api-version])
  delete-store   删除店铺      (-id)
  list-routes    列出路由规则
  add-route      新增路由规则  (-source -dest [-method] [-value] [-lookup] [-priority] [-notes])
  route-active   启用/停用规则 (-id -active)
  delete-route   删除路由规则  (-id)
`))
}

// ==================== 店铺 ====================

func listStores(ctx context.Context, svc *service.StoreService) error {
	items, err := svc.ListStores(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("暂无店铺配置")
		return nil
	}

	fmt.Printf("%-4s %-20s %-10s %-12s %-30s %s\n", "ID", "名称", "平台", "角色", "URL", "API 版本")
	for _, s := range items {
		fmt.Printf("%-4d %-20s %-10s %-12s %-30s %s\n",
			s.ID, s.Name, s.PlatformType, s.Role, s.ShopURL, s.APIVersion)
	}
	return nil
}

func addStore(ctx context.Context, svc *service.StoreService, args []string) error {
	fs := flag.NewFlagSet("add-store", flag.ExitOnError)
	name := fs.String("name", "", "店铺名称")
	platform := fs.String("platform", "shopify", "平台类型")
	role := fs.String("role", "", "角色: source / destination")
	url := fs.String("url", "", "店铺 URL，如 mystore.myshopify.com")
	token := fs.String("token", "", "Access Token (shpat_xxx)")
	apiVersion := fs.String("api-version", "", "API 版本，默认 2024-01")
	_ = fs.Parse(args)

	store, err := svc.CreateStore(ctx, &dto.CreateStoreReq{
		Name:         *name,
		PlatformType: *platform,
		Role:         *role,
		ShopURL:      *url,
		AccessToken:  *token,
		APIVersion:   *apiVersion,
	})
	if err != nil {
		return err
	}
	fmt.Printf("店铺 %q 已创建 (ID: %d)\n", store.Name, store.ID)
	return nil
}

func deleteStore(ctx context.Context, svc *service.StoreService, args []string) error {
	fs := flag.NewFlagSet("delete-store", flag.ExitOnError)
	id := fs.Int64("id", 0, "店铺 ID")
	_ = fs.Parse(args)

	if err := svc.DeleteStore(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("店铺 %d 已删除\n", *id)
	return nil
}

// ==================== 路由规则 ====================

func listRoutes(ctx context.Context, svc *service.StoreService) error {
	items, err := svc.ListRoutes(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("暂无路由规则")
		return nil
	}

	fmt.Printf("%-4s %-8s %-8s %-12s %-15s %-8s %-9s %s\n",
		"ID", "源店铺", "目标店铺", "匹配方式", "匹配值", "查找", "优先级", "状态")
	for _, r := range items {
		state := "停用"
		if r.IsActive {
			state = "启用"
		}
		fmt.Printf("%-4d %-8d %-8d %-12s %-15s %-8s %-9d %s\n",
			r.ID, r.SourceStoreID, r.DestinationStoreID,
			r.RoutingMethod, r.RoutingMethodValue, r.LookupMethod, r.Priority, state)
	}
	return nil
}

func addRoute(ctx context.Context, svc *service.StoreService, args []string) error {
	fs := flag.NewFlagSet("add-route", flag.ExitOnError)
	source := fs.Int64("source", 0, "源店铺 ID")
	dest := fs.Int64("dest", 0, "目标店铺 ID")
	method := fs.String("method", "all", "匹配方式: all / order_tags")
	value := fs.String("value", "", "匹配值（order_tags 时必填）")
	lookup := fs.String("lookup", "sku", "商品查找方式: sku / ean")
	priority := fs.Int("priority", 0, "优先级，大的先执行")
	notes := fs.String("notes", "", "备注")
	_ = fs.Parse(args)

	rule, err := svc.CreateRoute(ctx, &dto.CreateRouteReq{
		SourceStoreID:      *source,
		DestinationStoreID: *dest,
		RoutingMethod:      *method,
		RoutingMethodValue: *value,
		LookupMethod:       *lookup,
		Priority:           *priority,
		Notes:              *notes,
	})
	if err != nil {
		return err
	}
	fmt.Printf("路由规则已创建 (ID: %d)\n", rule.ID)
	return nil
}

func routeActive(ctx context.Context, svc *service.StoreService, args []string) error {
	fs := flag.NewFlagSet("route-active", flag.ExitOnError)
	id := fs.Int64("id", 0, "规则 ID")
	active := fs.Bool("active", true, "是否启用")
	_ = fs.Parse(args)

	if err := svc.SetRouteActive(ctx, *id, *active); err != nil {
		return err
	}
	fmt.Printf("路由规则 %d 已更新\n", *id)
	return nil
}

func deleteRoute(ctx context.Context, svc *service.StoreService, args []string) error {
	fs := flag.NewFlagSet("delete-route", flag.ExitOnError)
	id := fs.Int64("id", 0, "规则 ID")
	_ = fs.Parse(args)

	if err := svc.DeleteRoute(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("路由规则 %d 已删除\n", *id)
	return nil
}
