package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"duochat/config"
	"duochat/internal/handler"
	"duochat/internal/model"
	"duochat/internal/repository"
	"duochat/internal/service"
	dbPkg "duochat/pkg/db"
	"duochat/pkg/jwt"
	"duochat/pkg/logger"
	"duochat/pkg/presence"
	redisPkg "duochat/pkg/redis"
	"duochat/pkg/response"
	"duochat/pkg/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg := config.LoadConfig()

	// 2. 初始化日志系统
	log := logger.InitLogger(cfg.Log)
	defer log.Sync()

	log.Info("=== duochat 启动 ===")
	log.Info("服务器配置信息",
		zap.String("port", cfg.Server.Port),
		zap.String("database_host", cfg.Database.Host),
		zap.Int("database_port", cfg.Database.Port),
		zap.String("database_name", cfg.Database.Database),
		zap.Duration("jwt_expire_time", cfg.JWT.ExpireTime),
		zap.Duration("relay_store_timeout", cfg.Relay.StoreTimeout),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 初始化数据库连接
	db, err := dbPkg.InitDB(cfg.Database)
	if err != nil {
		log.Fatal("数据库连接失败", zap.Error(err))
	}
	defer func() {
		if err := dbPkg.CloseDB(); err != nil {
			log.Error("关闭数据库连接失败", zap.Error(err))
		}
	}()
	log.Info("数据库连接成功")

	// 3.1 自动迁移表结构
	if err := dbPkg.AutoMigrate(&model.User{}, &model.Message{}); err != nil {
		log.Fatal("自动迁移失败", zap.Error(err))
	}

	// 3.2 初始化Redis（旁路数据，失败只降级不退出）
	if err := redisPkg.InitRedis(cfg.Redis); err != nil {
		log.Warn("Redis连接失败，在线镜像与未读计数降级", zap.Error(err))
	} else {
		defer redisPkg.Close()
		log.Info("Redis连接成功")
	}

	// 3.3 初始化业务服务
	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	// JWT认证时校验subject是否仍指向存在的用户
	jwtSvc := jwt.NewJWTService(cfg.JWT, func(userID uint) error {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Relay.StoreTimeout)
		defer cancel()
		_, err := userRepo.GetByID(ctx, userID)
		return err
	})

	registry := presence.NewMemoryRegistry()
	userSvc := service.NewUserService(userRepo, jwtSvc)
	messageSvc := service.NewMessageService(messageRepo, userRepo)
	relaySvc := service.NewRelayService(messageRepo, userRepo, registry, cfg.Relay.StoreTimeout)

	userHandler := handler.NewUserHandler(userSvc)
	messageHandler := handler.NewMessageHandler(messageSvc)
	wsHandler := websocket.NewHandler(jwtSvc, registry, relaySvc, cfg.Relay)

	// 4. 设置Gin模式
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 5. 创建Gin路由
	router := gin.New()
	router.Use(logger.LoggerMiddleware())      // 自定义日志中间件
	router.Use(logger.ErrorLoggerMiddleware()) // 错误日志中间件

	// 6. 基础路由
	setupBasicRoutes(router, registry)

	// 6.1 业务路由
	v1 := router.Group("/api/v1")
	{
		users := v1.Group("/users")
		{
			// 公开接口（无需认证）
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)

			// 需要认证的接口
			authUsers := users.Group("")
			authUsers.Use(jwtSvc.AuthMiddleware())
			{
				authUsers.GET("", userHandler.List)
				authUsers.GET("/online", userHandler.Online)
				authUsers.GET("/:id", userHandler.Get)
				authUsers.PUT("/:id", userHandler.Update)
			}
		}

		// 消息路由（需要认证）
		messages := v1.Group("/messages")
		messages.Use(jwtSvc.AuthMiddleware())
		{
			messages.GET("/unread/count", messageHandler.GetUnreadCount)
		}

		// 私信历史（需要认证）
		conversations := v1.Group("/conversations")
		conversations.Use(jwtSvc.AuthMiddleware())
		{
			conversations.GET("/:user_id/messages", messageHandler.GetConversation)
		}
	}

	// WebSocket路由（握手时认证）
	router.GET("/ws", wsHandler.Handle)

	// 7. 创建HTTP服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 8. 启动HTTP服务器
	go func() {
		log.Info("HTTP服务器启动", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP服务器启动失败", zap.Error(err))
		}
	}()

	// 9. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP服务器关闭失败", zap.Error(err))
	}

	log.Info("服务器已安全关闭")
}

// setupBasicRoutes 设置基础路由
func setupBasicRoutes(router *gin.Engine, registry presence.Registry) {
	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		if err := dbPkg.HealthCheck(); err != nil {
			status = "db-down"
		}
		redisStatus := "ok"
		if err := redisPkg.HealthCheck(); err != nil {
			redisStatus = "down"
		}
		response.Success(c, gin.H{
			"status": status,
			"redis":  redisStatus,
			"online": registry.Count(),
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// 根路径
	router.GET("/", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "duochat 私信服务",
			"version": "1.0.0",
		})
	})
}
