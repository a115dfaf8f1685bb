package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storesync_dev_v1_202608/internal/controller"
	"storesync_dev_v1_202608/internal/middleware"
)

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	authCtl *controller.AuthController,
	storeCtl *controller.StoreController,
	orderCtl *controller.OrderController,
	syncCtl *controller.SyncController) {
	// 健康检查，不鉴权
	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		// auth 鉴权组，登录接口放行
		auth := api.Group("/auth")
		{
			// POST /api/auth/login
			auth.POST("/login", authCtl.Login)
		}

		// 其余接口需要 JWT
		authed := api.Group("")
		authed.Use(middleware.JWTAuth())
		{
			// 店铺管理
			stores := authed.Group("/stores")
			{
				stores.GET("", storeCtl.ListStores)
				stores.POST("", storeCtl.CreateStore)
				stores.DELETE("/:id", storeCtl.DeleteStore)
			}

			// 路由规则管理
			routes := authed.Group("/routes")
			{
				routes.GET("", storeCtl.ListRoutes)
				routes.POST("", storeCtl.CreateRoute)
				routes.PATCH("/:id/active", storeCtl.SetRouteActive)
				routes.DELETE("/:id", storeCtl.DeleteRoute)
			}

			// 订单查询
			orders := authed.Group("/orders")
			{
				orders.GET("", orderCtl.ListOrders)
				orders.GET("/:id", orderCtl.GetOrder)
			}

			// 同步任务
			sync := authed.Group("/sync")
			{
				// POST /api/sync/run 手动触发一次同步周期
				sync.POST("/run", syncCtl.Run)
				sync.GET("/cycles", syncCtl.ListCycles)
			}
		}
	}
}
