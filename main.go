package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Akbar-telliant/ScrumTaskManager/internal/auth"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/config"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/database"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/models"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/observability/health"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/observability/metrics"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/observability/tracing"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/pgpubsub"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/router"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/session"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/websocket"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化指标
	registry := metrics.NewRegistry()
	metrics.RegisterDBMetrics(registry)
	metrics.RegisterBusinessMetrics(registry)

	// 初始化链路追踪（未配置 OTEL_EXPORTER_OTLP_ENDPOINT 时为 no-op）
	shutdownTracer, err := tracing.InitTracer(context.Background())
	if err != nil {
		log.Fatal("Failed to initialize tracing:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			log.Printf("Tracer shutdown: %v", err)
		}
	}()

	// 初始化数据库
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	// 初始化会话存储和认证状态提供器
	sessionTTL := time.Duration(cfg.Auth.SessionTTLHours) * time.Hour
	sessions := session.NewStore(sessionTTL)
	defer sessions.Close()

	provider := auth.NewStateProvider(sessions)
	log.Printf("Session store initialized (TTL %s)", sessionTTL)

	// 定期上报活跃会话数
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			metrics.SetActiveSessions(sessions.Len())
		}
	}()

	// 初始化WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()
	log.Println("WebSocket hub initialized and running")

	// 多副本部署时通过 PG LISTEN/NOTIFY 跨副本投递认证事件
	if cfg.Database.Driver == "postgres" {
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.Database.Host, cfg.Database.User, cfg.Database.Password,
			cfg.Database.Name, cfg.Database.Port, cfg.Database.SSLMode)
		ps := pgpubsub.NewBroker(dsn)
		hub.SetupCrossReplicaListener(ps, db)
		if err := ps.Start(); err != nil {
			log.Printf("Warning: cross-replica pubsub unavailable: %v", err)
		} else {
			defer ps.Stop()
			log.Println("Cross-replica auth event pubsub started")
		}
	}

	// 将认证状态变更转发给已连接的UI客户端
	events, cancelEvents := provider.Subscribe()
	defer cancelEvents()
	go func() {
		for ev := range events {
			hub.SendToSessionOrBroadcast(ev.SessionID, websocket.Message{
				Type:      "auth_state_changed",
				SessionID: ev.SessionID,
				Data:      ev.State,
			})
		}
	}()

	// 首次启动时创建默认管理员
	if err := seedAdminUser(db); err != nil {
		log.Fatal("Failed to seed admin user:", err)
	}

	// 设置Gin模式
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := router.Setup(db, cfg, provider, hub, registry)

	// 初始化完成, /health/startup 开始返回 200
	health.MarkStartupReady()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server starting on http://0.0.0.0:%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}

// seedAdminUser inserts the default admin account when the users table is
// empty so a fresh install is reachable.
func seedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
		log.Println("Warning: ADMIN_PASSWORD not set, using default credentials admin/admin123")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Username:     "admin",
		Email:        "admin@localhost",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		CreatedAt:    time.Now(),
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Println("Default admin user created")
	return nil
}
