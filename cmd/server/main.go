// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"seqbank-go/internal/config"
	"seqbank-go/internal/handler"
	"seqbank-go/internal/middleware"
	"seqbank-go/internal/model"
	"seqbank-go/internal/repository"
	"seqbank-go/internal/service"
	"seqbank-go/pkg/database"
	"seqbank-go/pkg/kafka"
	"seqbank-go/pkg/log"
	"seqbank-go/pkg/storage"
	"seqbank-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、对象存储与 Kafka
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	if err := database.DB.AutoMigrate(
		&model.User{},
		&model.ResearchGroup{},
		&model.Institution{},
		&model.SampleCollection{},
		&model.Sample{},
		&model.SequencingRun{},
		&model.UploadSession{},
		&model.UploadItem{},
	); err != nil {
		log.Fatal("数据库迁移失败", err)
	}

	store, err := storage.NewMinioStore(cfg.MinIO)
	if err != nil {
		log.Fatal("MinIO 初始化失败", err)
	}
	producer := kafka.NewProducer(cfg.Kafka)
	defer producer.Close()

	// 4. 初始化 Repository
	userRepository := repository.NewUserRepository(database.DB)
	groupRepository := repository.NewGroupRepository(database.DB)
	catalogRepository := repository.NewCatalogRepository(database.DB)
	uploadRepository := repository.NewUploadRepository(database.DB, database.RDB)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	userService := service.NewUserService(userRepository, jwtManager)
	adminService := service.NewAdminService(groupRepository, userRepository)
	catalogService := service.NewCatalogService(catalogRepository)
	uploadService := service.NewUploadService(uploadRepository, userRepository, store, producer, cfg.Upload.TempDir, cfg.Upload.MaxChunkSize)

	// 6. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 7. 注册路由
	userHandler := handler.NewUserHandler(userService)
	adminHandler := handler.NewAdminHandler(adminService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	uploadHandler := handler.NewUploadHandler(uploadService, userService, jwtManager)

	apiV1 := r.Group("/api/v1")
	{
		// Auth 路由组
		auth := apiV1.Group("/auth")
		{
			auth.POST("/refreshToken", userHandler.RefreshToken)
		}

		users := apiV1.Group("/users")
		{
			// 无需认证的路由 (公开访问)
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)

			// 需要认证的路由 (仅限登录用户访问)
			authed := users.Group("/")
			authed.Use(middleware.AuthMiddleware(jwtManager, userService))
			{
				authed.GET("/me", userHandler.GetProfile)
				authed.POST("/logout", userHandler.Logout)
			}
		}

		// Catalog 路由组，需要认证
		catalog := apiV1.Group("/catalog")
		catalog.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			catalog.GET("/institutions", catalogHandler.ListInstitutions)
			catalog.GET("/collections", catalogHandler.ListCollections)
			catalog.POST("/collections", catalogHandler.CreateCollection)
			catalog.GET("/samples", catalogHandler.ListSamples)
			catalog.POST("/samples/query", catalogHandler.QuerySamples)
			catalog.GET("/runs", catalogHandler.ListRuns)
			catalog.POST("/runs", catalogHandler.CreateRun)
		}

		// Upload 路由组，需要认证
		upload := apiV1.Group("/upload")
		upload.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			upload.POST("/:sessionKey/start", uploadHandler.Start)
			upload.POST("/:sessionKey/chunk", uploadHandler.Chunk)
			upload.GET("/:sessionKey/status", uploadHandler.Status)
			upload.GET("/:sessionKey/progress", uploadHandler.Progress)
			upload.POST("/:sessionKey/commit", uploadHandler.Commit)
			upload.DELETE("/:sessionKey/item", uploadHandler.DeleteItem)
			upload.DELETE("/:sessionKey", uploadHandler.Delete)
		}

		admin := apiV1.Group("/admin")
		// 管理员路由组，需要同时通过认证和管理员授权两个中间件
		admin.Use(middleware.AuthMiddleware(jwtManager, userService), middleware.AdminAuthMiddleware())
		{
			admin.GET("/users/list", adminHandler.ListUsers)
			admin.PUT("/users/:id/groups", adminHandler.AssignGroups)
			admin.PUT("/users/:id/role", adminHandler.SetUserRole)

			groups := admin.Group("/groups")
			{
				groups.POST("", adminHandler.CreateGroup)
				groups.GET("", adminHandler.ListGroups)
				groups.GET("/:id", adminHandler.GetGroup)
				groups.PUT("/:id", adminHandler.UpdateGroup)
				groups.DELETE("/:id", adminHandler.DeleteGroup)
			}

			// 机构是全局目录数据，录入权限仅限管理员
			admin.POST("/institutions", catalogHandler.CreateInstitution)
		}
	}

	// WebSocket 进度推送：浏览器的 WebSocket API 无法携带请求头，token 放在路径上
	r.GET("/ws/upload/:sessionKey/progress/:token", uploadHandler.ProgressWS)

	// 8. 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
