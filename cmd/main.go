package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"storesync_dev_v1_202608/internal/controller"
	"storesync_dev_v1_202608/internal/middleware"
	"storesync_dev_v1_202608/internal/model"
	"storesync_dev_v1_202608/internal/repository"
	"storesync_dev_v1_202608/internal/router"
	"storesync_dev_v1_202608/internal/service"
	"storesync_dev_v1_202608/internal/task"
	"storesync_dev_v1_202608/pkg/database"
)

func main() {
	once := flag.Bool("once", false, "只跑一个同步周期后退出（配合外部调度器使用）")
	flag.Parse()

	// .env 不存在时静默跳过，线上直接用环境变量
	_ = godotenv.Load()

	// 1. 初始化数据库
	db := initDatabase()

	// 2. 初始化依赖
	deps := initDependencies(db)

	// -once 模式：跑完一个周期就退出，结果以 JSON 打到 stdout
	if *once {
		runOnce(deps)
		return
	}

	// 3. 初始化 JWT 配置
	initJWT()

	// 4. 启动定时任务
	initTasks(deps)

	// 5. 初始化路由
	gin.SetMode(getEnv("GIN_MODE", gin.ReleaseMode))
	r := gin.Default()
	router.InitRoutes(r, deps.AuthCtl, deps.StoreCtl, deps.OrderCtl, deps.SyncCtl)

	// 6. 启动服务
	startServer(r, deps)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB    *gorm.DB
	Repos *Repositories

	SyncService  *service.SyncService
	StoreService *service.StoreService
	OrderService *service.OrderService

	SyncTask *task.SyncTask

	AuthCtl  *controller.AuthController
	StoreCtl *controller.StoreController
	OrderCtl *controller.OrderController
	SyncCtl  *controller.SyncController
}

// Repositories 仓库集合
type Repositories struct {
	Store    repository.StoreRepository
	Order    repository.OrderRepository
	Routing  repository.RoutingRepository
	CycleLog repository.CycleLogRepository
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	dsn := getEnv("DATABASE_DSN",
		"host=localhost user=postgres password=postgres dbname=storesync port=5432 sslmode=disable")
	logSQL := getEnv("DB_LOG_SQL", "false") == "true"

	return database.InitDB(dsn, logSQL,
		// Store
		&model.Store{},
		// Order
		&model.Order{}, &model.OrderLine{}, &model.OrderDestination{},
		// Routing
		&model.OrderRouting{},
		// Log
		&model.SyncCycleLog{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Store:    repository.NewStoreRepository(db),
		Order:    repository.NewOrderRepository(db),
		Routing:  repository.NewRoutingRepository(db),
		CycleLog: repository.NewCycleLogRepository(db),
	}

	// -------- 业务服务 --------
	syncSvc := service.NewSyncService(repos.Store, repos.Order, repos.Routing, repos.CycleLog)
	storeSvc := service.NewStoreService(repos.Store, repos.Routing, repos.Order)
	orderSvc := service.NewOrderService(repos.Order)

	// -------- 定时任务 --------
	interval := parseDuration(getEnv("POLL_INTERVAL", "5m"), 5*time.Minute)
	syncTask := task.NewSyncTask(syncSvc, interval)

	// -------- Controller 层 --------
	authCtl, err := controller.NewAuthController(
		getEnv("ADMIN_USER", "admin"),
		getEnv("ADMIN_PASSWORD", "admin123"),
	)
	if err != nil {
		log.Fatalf("[Main] 初始化管理员账号失败: %v", err)
	}

	return &Dependencies{
		DB:           db,
		Repos:        repos,
		SyncService:  syncSvc,
		StoreService: storeSvc,
		OrderService: orderSvc,
		SyncTask:     syncTask,
		AuthCtl:      authCtl,
		StoreCtl:     controller.NewStoreController(storeSvc),
		OrderCtl:     controller.NewOrderController(orderSvc),
		SyncCtl:      controller.NewSyncController(syncTask, repos.CycleLog),
	}
}

// initJWT 初始化 JWT 配置
func initJWT() {
	cfg := middleware.DefaultJWTConfig()
	if secret := getEnv("JWT_SECRET", ""); secret != "" {
		cfg.SecretKey = secret
	} else {
		log.Println("[Main] 警告: 未配置 JWT_SECRET，使用内置默认密钥")
	}
	if ttl := getEnv("JWT_TTL", ""); ttl != "" {
		cfg.AccessTokenTTL = parseDuration(ttl, cfg.AccessTokenTTL)
	}
	middleware.SetJWTConfig(cfg)
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(deps *Dependencies) {
	runImmediately := getEnv("SYNC_ON_START", "true") == "true"
	if err := deps.SyncTask.Start(runImmediately); err != nil {
		log.Fatalf("[Main] 同步任务启动失败: %v", err)
	}
	log.Println("[Main] 定时任务已启动")
}

// ==================== 单次执行模式 ====================

// runOnce 跑一个完整同步周期，结果 JSON 输出，失败时非零退出
func runOnce(deps *Dependencies) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result := deps.SyncService.RunCycle(ctx)

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))

	if sqlDB, err := deps.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}

	if result.Status == model.CycleStatusError {
		os.Exit(1)
	}
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine, deps *Dependencies) {
	port := getEnv("SERVER_PORT", "8080")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("[Main] 服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[Main] 服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[Main] 正在关闭服务...")

	// 先停定时任务，等正在跑的周期收尾
	deps.SyncTask.Stop()

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("[Main] 服务强制关闭: %v", err)
	}

	log.Println("[Main] 服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration 解析时长配置，兼容纯数字（按秒）
func parseDuration(raw string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if sec, err := strconv.Atoi(raw); err == nil && sec > 0 {
		return time.Duration(sec) * time.Second
	}
	log.Printf("[Main] 时长配置 %q 无法解析，使用默认值 %s", raw, fallback)
	return fallback
}
