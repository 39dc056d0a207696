package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"SafeHaven/internal/auth"
	"SafeHaven/internal/directory"
	"SafeHaven/internal/dispatch"
	"SafeHaven/internal/escalation"
	handlers "SafeHaven/internal/handler"
	"SafeHaven/internal/models"
	"SafeHaven/internal/store"
	"SafeHaven/pkg/cache"
	"SafeHaven/pkg/config"
	"SafeHaven/pkg/logger"
	"SafeHaven/pkg/metrics"
	"SafeHaven/pkg/middleware"
	"SafeHaven/pkg/notification"
	"SafeHaven/pkg/scheduler"
	stores "SafeHaven/pkg/storage"
	"SafeHaven/pkg/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}
	cfg := config.GlobalConfig

	logger.Init(cfg.Log)
	defer logger.Sync()

	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := util.OpenDatabase(cfg.DBDriver, cfg.DSN)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.User{}, &models.Responder{}, &models.Alert{}, &models.RoutingHistory{}); err != nil {
		logger.Fatal("failed to migrate schema", zap.Error(err))
	}

	appCache, err := cache.NewCache(cache.Config{
		Type: cfg.CacheType,
		Redis: cache.RedisConfig{
			Addr:     util.GetEnv("REDIS_ADDR"),
			Password: util.GetEnv("REDIS_PASSWORD"),
			DB:       int(util.GetIntEnv("REDIS_DB")),
		},
	})
	if err != nil {
		logger.Fatal("failed to initialize cache", zap.Error(err))
	}
	defer appCache.Close()

	var notifier notification.Notifier = notification.Nop{}
	if cfg.PushEnabled {
		notifier = notification.NewExpo(notification.ExpoConfig{URL: cfg.PushURL})
	}

	var media stores.Store
	switch cfg.MediaStore {
	case "minio":
		media = stores.NewMinioStore()
	case "local":
		media = stores.NewLocalStore(cfg.MediaDir, util.GetEnv("MEDIA_PUBLIC_BASE"))
	}

	m := metrics.NewMetrics()
	alertStore := store.NewAlertStore(db)
	profileStore := store.NewProfileStore(db)
	dir := directory.New(db)
	dir.EnforceCoverageRadius = cfg.EnforceCoverageRadius

	sched := escalation.NewScheduler(escalation.Config{
		Timeout:     cfg.AlertTimeout,
		MaxAttempts: cfg.MaxFallbackAttempts,
	}, alertStore, dir, notifier, m, nil)
	defer sched.Stop()

	engine := dispatch.NewEngine(alertStore, profileStore, dir, sched, media, notifier, m)

	verifier := auth.NewJWTVerifier(cfg.AuthSecret)
	h := handlers.NewHandlers(db, engine, alertStore, profileStore, verifier, middleware.IdempotencyConfig{
		TTL:   30 * time.Second,
		Store: appCache,
	})

	router := gin.New()
	router.Use(gin.Recovery(), m.GinMiddleware())
	router.GET("/metrics", metrics.Handler())

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:       cfg.RateLimit,
		Identifier: "ip",
		SkipPaths:  []string{cfg.APIPrefix + "/system/health"},
		AddHeaders: true,
	}, nil)
	api := router.Group(cfg.APIPrefix)
	api.Use(limiter.Middleware())
	h.Register(api)

	// timers do not survive restarts; the sweep re-arms stale chains
	cr := scheduler.NewCron(nil)
	if _, err := cr.Add(cfg.SweepCron, scheduler.FuncJob(func(ctx context.Context) {
		if err := sched.RearmPending(ctx); err != nil {
			logger.Error("pending alert sweep failed", zap.Error(err))
		}
	})); err != nil {
		logger.Fatal("failed to schedule sweep", zap.Error(err))
	}
	cr.Start()
	defer cr.Stop()

	server := &http.Server{Addr: cfg.Addr, Handler: router}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server ListenAndServe error", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("addr", cfg.Addr))

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	} else {
		logger.Info("server stopped gracefully")
	}
}
