package router

import (
	"time"

	"github.com/Akbar-telliant/ScrumTaskManager/internal/auth"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/config"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/handlers"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/middleware"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/observability/health"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/observability/metrics"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Setup wires middleware, routes and handlers onto a fresh engine.
func Setup(db *gorm.DB, cfg *config.Config, provider *auth.StateProvider, hub *websocket.Hub, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// 中间件
	r.Use(middleware.CORS())
	r.Use(middleware.Logger())
	r.Use(middleware.ErrorHandler())
	r.Use(metrics.HTTPMetricsMiddleware(registry))

	// 健康检查
	health.RegisterRoutes(r, db)

	// Prometheus 指标端点
	if registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	// API路由组
	api := r.Group("/api/v1")

	// 认证路由（无需会话）
	authHandler := handlers.NewAuthHandler(db, provider, cfg.Auth)
	loginLimiter := middleware.NewRateLimiter(10, time.Minute)
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/login", middleware.RateLimit(loginLimiter), authHandler.Login)
		authRoutes.GET("/state", authHandler.State)
	}

	// 需要会话的路由
	secured := api.Group("")
	secured.Use(middleware.SessionAuth(provider, cfg.Auth.JWTSecret))
	{
		secured.POST("/auth/logout", authHandler.Logout)
		secured.GET("/auth/me", authHandler.Me)

		// WebSocket：认证状态变更推送
		wsHandler := handlers.NewWebSocketHandler(hub)
		secured.GET("/ws/auth", wsHandler.HandleAuthEvents)
		secured.GET("/ws/sessions", wsHandler.GetConnectedSessions)

		clientHandler := handlers.NewClientHandler(db)
		clients := secured.Group("/clients")
		{
			clients.GET("", clientHandler.ListClients)
			clients.GET("/:id", clientHandler.GetClient)
			clients.POST("", clientHandler.CreateClient)
			clients.PUT("/:id", clientHandler.UpdateClient)
			clients.DELETE("/:id", clientHandler.DeleteClient)
		}

		projectHandler := handlers.NewProjectHandler(db)
		projects := secured.Group("/projects")
		{
			projects.GET("", projectHandler.ListProjects)
			projects.GET("/:id", projectHandler.GetProject)
			projects.POST("", projectHandler.CreateProject)
			projects.PUT("/:id", projectHandler.UpdateProject)
			projects.DELETE("/:id", projectHandler.DeleteProject)
		}

		itemHandler := handlers.NewScrumItemHandler(db)
		items := secured.Group("/scrum-items")
		{
			items.GET("", itemHandler.ListScrumItems)
			items.GET("/:id", itemHandler.GetScrumItem)
			items.POST("", itemHandler.CreateScrumItem)
			items.PUT("/:id", itemHandler.UpdateScrumItem)
			items.DELETE("/:id", itemHandler.DeleteScrumItem)
		}

		// 用户管理（仅管理员）
		userHandler := handlers.NewUserHandler(db)
		users := secured.Group("/users")
		users.Use(middleware.RequireAdmin())
		{
			users.GET("", userHandler.ListUsers)
			users.GET("/:id", userHandler.GetUser)
			users.POST("", userHandler.CreateUser)
			users.PUT("/:id", userHandler.UpdateUser)
			users.DELETE("/:id", userHandler.DeleteUser)
		}
	}

	return r
}
