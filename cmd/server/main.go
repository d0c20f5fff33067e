package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redisClient "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "muslink-platform/docs"
	"muslink-platform/internal/analytics"
	"muslink-platform/internal/catalog"
	"muslink-platform/internal/config"
	"muslink-platform/internal/geo"
	"muslink-platform/internal/handler"
	"muslink-platform/internal/middleware"
	"muslink-platform/internal/recorder"
	"muslink-platform/internal/repository"
	"muslink-platform/pkg/database"
	auth "muslink-platform/pkg/jwt"
	"muslink-platform/pkg/logger"
	"muslink-platform/pkg/redis"
)

// @title MusLink 事件管道 API
// @version 1.0
// @description 艺人落地页的外链跳转、访问事件记录与统计接口
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "配置加载失败:", err)
		os.Exit(1)
	}

	if err := logger.InitLogger(cfg.Log); err != nil {
		fmt.Fprintln(os.Stderr, "日志初始化失败:", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	sugaredLogger := zap.S()

	db, err := database.Open(cfg.Database)
	if err != nil {
		sugaredLogger.Fatalf("数据库初始化失败: %v", err)
	}
	sugaredLogger.Infof("✅ 数据库连接成功 (%s)", cfg.Database.Driver)

	if err := database.Migrate(db); err != nil {
		sugaredLogger.Fatalf("数据库迁移失败: %v", err)
	}
	sugaredLogger.Info("✅ 数据库迁移成功")

	var rdb *redisClient.Client
	if cfg.Cache.Host != "" {
		rdb, err = redis.NewClient(&redis.Options{
			Host: cfg.Cache.Host, Port: cfg.Cache.Port, Password: cfg.Cache.Password, DB: cfg.Cache.DB,
		})
		if err != nil {
			// 缓存只是加速层，连不上时直接走数据库
			sugaredLogger.Warnf("缓存连接失败，将不使用缓存: %v", err)
			rdb = nil
		} else {
			defer func() {
				if err := rdb.Close(); err != nil {
					sugaredLogger.Errorf("关闭 Redis 连接失败: %v", err)
				}
			}()
			sugaredLogger.Info("✅ 缓存连接成功")
		}
	}

	resolver, closeLocator := newResolver(cfg, rdb, sugaredLogger)
	defer closeLocator()
	defer resolver.Close()

	store := catalog.NewStore(db, rdb, cfg.Cache.TargetTTL(), sugaredLogger)
	events := repository.NewEventRepository(db)
	rec := recorder.New(events, resolver, store, sugaredLogger, recorder.Options{
		ResolveTimeout: cfg.Geo.LookupTimeout() + 100*time.Millisecond,
	})

	worker := recorder.NewWorker(rec, sugaredLogger, recorder.WorkerOptions{
		QueueSize:     cfg.Recorder.QueueSize,
		BatchSize:     cfg.Recorder.BatchSize,
		FlushInterval: cfg.Recorder.FlushInterval(),
		RecordTimeout: cfg.Recorder.RecordTimeout(),
	})
	worker.Start()
	sugaredLogger.Info("✅ 事件工作器已启动")

	tokenManager := auth.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.ExpirationHours)
	sugaredLogger.Info("✅ 认证管理器初始化成功")

	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// 限流按 ClientIP 计数，只采信可信代理转发的 X-Forwarded-For
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		sugaredLogger.Fatalf("可信代理配置无效: %v", err)
	}
	router.Use(middleware.GinZapRecovery(logger.Logger, true))
	router.Use(middleware.GinZapLogger(logger.Logger))
	router.Use(middleware.RateLimit(rdb, &cfg.RateLimit))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.RegisterRoutes(router, handler.Handlers{
		Health:    handler.NewHealthHandler(db, rdb),
		Redirect:  handler.NewRedirectHandler(store, worker, cfg.App.PublicBaseURL, sugaredLogger),
		Track:     handler.NewTrackHandler(store, rec, cfg.Recorder.RecordTimeout(), sugaredLogger),
		Analytics: handler.NewAnalyticsHandler(store, analytics.NewAggregator(events, repository.DefaultScanBatch), sugaredLogger),
		Admin:     handler.NewAdminHandler(store, sugaredLogger),
	}, middleware.AuthMiddleware(tokenManager), middleware.AdminMiddleware())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		sugaredLogger.Infof("🚀 服务启动成功, 访问 http://localhost:%d", cfg.Server.Port)
		sugaredLogger.Infof("📚 Swagger 文档地址: http://localhost:%d/swagger/index.html", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugaredLogger.Fatalf("服务启动失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	sugaredLogger.Info("收到退出信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	// 先停止接收请求，再把队列里的跳转事件写完
	if err := server.Shutdown(ctx); err != nil {
		sugaredLogger.Errorf("HTTP 服务关闭失败: %v", err)
	}
	if err := worker.Shutdown(ctx); err != nil {
		sugaredLogger.Errorf("事件工作器关闭失败: %v", err)
	}
	sugaredLogger.Info("服务已退出")
}

// newResolver 组装地理位置解析器：本地 MaxMind 库 + 进程内缓存，可选 Redis 共享缓存。
// 地理库缺失时仍可启动，所有公网地址按 Unknown 记录
func newResolver(cfg *config.Config, rdb *redisClient.Client, log *zap.SugaredLogger) (*geo.Resolver, func()) {
	var locator geo.Locator = geo.NopLocator{}
	closeLocator := func() {}

	if cfg.Geo.DatabasePath != "" {
		mm, err := geo.OpenMaxMind(cfg.Geo.DatabasePath, cfg.Geo.Language)
		if err != nil {
			log.Warnf("地理库加载失败，地理位置将全部记为 Unknown: %v", err)
		} else {
			locator = mm
			closeLocator = func() {
				if err := mm.Close(); err != nil {
					log.Errorf("关闭地理库失败: %v", err)
				}
			}
			log.Infof("✅ 地理库加载成功: %s", cfg.Geo.DatabasePath)
		}
	}

	opts := geo.Options{
		CacheTTL:        cfg.Geo.CacheTTL(),
		CacheMaxEntries: cfg.Geo.CacheMaxEntries,
		LookupTimeout:   cfg.Geo.LookupTimeout(),
	}
	if cfg.Geo.SharedCache && rdb != nil {
		opts.Shared = geo.NewRedisCache(rdb, cfg.Geo.CacheTTL(), log)
	}

	resolver, err := geo.NewResolver(locator, log, opts)
	if err != nil {
		log.Fatalf("地理位置解析器初始化失败: %v", err)
	}
	return resolver, closeLocator
}
