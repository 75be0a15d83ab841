package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aitypeset/typeset-go/internal/client"
	"github.com/aitypeset/typeset-go/internal/config"
	"github.com/aitypeset/typeset-go/internal/handler"
	"github.com/aitypeset/typeset-go/internal/service"
	"github.com/aitypeset/typeset-go/internal/settings"
	"github.com/aitypeset/typeset-go/pkg/logger"
	"github.com/aitypeset/typeset-go/pkg/redis"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "configs/typeset-server.yaml", "配置文件路径")
	flag.Parse()

	// .env 可选
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("typeset-server 服务启动中...")
	ctx := context.Background()

	// 设置存储
	var store settings.Store
	var ping func(context.Context) error
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			zapLogger.Fatal("连接 Redis 失败", zap.Error(err))
		}
		defer redisClient.Close()

		store = settings.NewRedisStore(redisClient, cfg.Redis.SettingsKey)
		ping = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		zapLogger.Warn("Redis 未启用，设置仅保存在内存中")
		store = settings.NewMemoryStore(nil)
	}

	resolver := settings.NewResolver(store, zapLogger)
	if seeded, err := resolver.Seed(ctx, cfg.Typeset.Defaults); err != nil {
		zapLogger.Fatal("写入初始设置失败", zap.Error(err))
	} else if seeded {
		zapLogger.Info("已写入初始设置", zap.Int("keys", len(cfg.Typeset.Defaults)))
	}

	// 排版服务
	httpClient := client.NewHTTPClient(cfg.Typeset.HTTPTimeout)
	typesetService := service.NewTypesetService(
		resolver,
		client.NewHiAgentClient(httpClient, zapLogger),
		client.NewOpenAIClient(httpClient, zapLogger),
		cfg.Typeset.Timeout,
		zapLogger,
	)
	sessionService := service.NewSessionService(90*time.Second, zapLogger)
	defer sessionService.Close()

	gin.SetMode(gin.ReleaseMode)
	r := handler.NewRouter(handler.Handlers{
		API:            handler.NewAPIHandler(cfg.Server.Name, sessionService.Count, ping, zapLogger),
		Typeset:        handler.NewTypesetHandler(typesetService, sessionService, zapLogger),
		Settings:       handler.NewSettingsHandler(resolver, zapLogger),
		WebSocket:      handler.NewWebSocketHandler(sessionService, typesetService, cfg.CORS.AllowedOrigins, zapLogger),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}, zapLogger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLogger.Info("typeset-server 服务启动成功",
			zap.Int("port", cfg.Server.Port),
			zap.Bool("redis", cfg.Redis.Enabled))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("服务启动失败", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("正在关闭服务...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("服务关闭异常", zap.Error(err))
	}
	zapLogger.Info("服务已退出")
}
