// Package main runs the feedr HTTP server with live wall updates and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feedr-app/backend/config"
	"github.com/feedr-app/backend/internal/app"
	"github.com/feedr-app/backend/internal/auth"
	"github.com/feedr-app/backend/internal/embed"
	"github.com/feedr-app/backend/internal/health"
	"github.com/feedr-app/backend/internal/marketing"
	"github.com/feedr-app/backend/internal/middleware"
	"github.com/feedr-app/backend/internal/public"
	"github.com/feedr-app/backend/internal/realtime"
	"github.com/feedr-app/backend/internal/walls"
	"github.com/feedr-app/backend/internal/web"
	"github.com/feedr-app/backend/internal/worker"
	"github.com/feedr-app/backend/pkg/queue"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	docs, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store", zap.Error(err))
	}
	defer closeStore()

	rdb, err := app.ConnectRedis(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var (
		revoker   auth.Revoker
		embedOpts []embed.Option
		hub       *realtime.Hub
	)
	if rdb != nil {
		revoker = auth.NewRedisRevoker(rdb.Client)
		embedOpts = append(embedOpts, embed.WithCache(embed.NewRedisCache(rdb.Client, cfg.Embed.CacheTTL())))
		pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
		hub = realtime.NewHub(logger, pubsub, pubsub)
	} else {
		hub = realtime.NewHub(logger, nil, nil)
	}

	jwtService := auth.NewJWTService(cfg.Session.Secret, cfg.Session.TTL(), revoker, logger)
	resolver := embed.NewResolver(cfg.Embed.Timeout(), logger, embedOpts...)
	wallService := walls.NewService(docs, jwtService, resolver, hub, logger)

	// Snapshots: every persist enqueues a job, the in-process worker uploads it.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	uploader, err := app.NewSnapshotUploader(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("snapshot storage", zap.Error(err))
	}
	switch {
	case uploader == nil:
	case rdb == nil:
		logger.Warn("snapshots need redis; disabled", zap.String("backend", cfg.Snapshot.Backend))
	default:
		jobQueue := queue.NewQueue(rdb.Client, logger)
		docs.OnPersist(func(ctx context.Context) error {
			return jobQueue.EnqueueSnapshot(ctx, queue.SnapshotPayload{Reason: "persist"})
		})
		processor := worker.NewSnapshotProcessor(docs, uploader, jobQueue, cfg.Snapshot.Prefix, logger)
		go processor.Run(workerCtx)
		logger.Info("snapshot worker started", zap.String("backend", cfg.Snapshot.Backend))
	}

	renderer, err := web.NewRenderer(cfg.Server.Theme)
	if err != nil {
		logger.Fatal("templates", zap.Error(err))
	}
	authLimit, err := middleware.NewIPRateLimiter(cfg.Server.RateLimitAuth)
	if err != nil {
		logger.Fatal("rate limit", zap.Error(err))
	}

	checks := map[string]health.Check{
		"store": func(ctx context.Context) error {
			_, err := docs.Load(ctx)
			return err
		},
	}
	if rdb != nil {
		checks["redis"] = rdb.Healthy
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.HTMLRender = renderer
	if err := middleware.TrustProxies(router, cfg.Server.TrustedProxies); err != nil {
		logger.Fatal("trusted proxies", zap.Error(err))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.Secure(middleware.SecureOptions(!cfg.Session.CookieSecure)))
	router.Use(middleware.OptionalSession(jwtService))
	router.NoRoute(func(c *gin.Context) { c.String(http.StatusNotFound, walls.MsgNotFound) })

	// Operational
	router.GET("/health", health.NewHandler(checks).Health)
	router.GET("/metrics", middleware.MetricsHandler())

	// Marketing pages and stylesheet
	marketing.NewHandler().Register(router)

	// Signup, login, logout
	auth.NewHandler(wallService, jwtService, cfg.Session.CookieSecure, logger).Register(router, authLimit)

	// Dashboard (session required)
	dashboard := router.Group("", middleware.RequireSession(jwtService))
	walls.NewHandler(wallService, cfg.Server.BaseURL, logger).Register(dashboard)

	// Public wall, widget, live feed and the cross-origin items API
	publicHandler := public.NewHandler(wallService, hub, cfg.Server.BaseURL, logger)
	publicHandler.Register(router)
	publicHandler.RegisterAPI(router.Group("", middleware.CORS(cfg.Server.CORSAllowedOrigins)))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("feedr listening", zap.String("port", cfg.Server.Port), zap.String("base_url", cfg.Server.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
