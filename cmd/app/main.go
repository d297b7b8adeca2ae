package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"weblogger/internal/infra/handler"
	"weblogger/internal/infra/memory"
	infraPostgres "weblogger/internal/infra/postgres"
	infraRedis "weblogger/internal/infra/redis"
	"weblogger/internal/pkg/timeutil"
	"weblogger/internal/platform/cache"
	"weblogger/internal/platform/config"
	"weblogger/internal/platform/database"
	"weblogger/internal/platform/logger"
	"weblogger/internal/platform/metrics"
	"weblogger/internal/platform/server"
	usecaseComment "weblogger/internal/usecase/comment"
	usecaseEntry "weblogger/internal/usecase/entry"
	usecaseHitcount "weblogger/internal/usecase/hitcount"
	usecasePing "weblogger/internal/usecase/ping"
	usecaseTag "weblogger/internal/usecase/tag"
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  logger.Level(cfg.App.LogLevel),
		Format: logger.Format(cfg.App.LogFormat),
	})
	logger.SetDefault(log)

	if err := timeutil.SetLocation(cfg.App.TimeZone); err != nil {
		return fmt.Errorf("load timezone %s: %w", cfg.App.TimeZone, err)
	}

	db, err := database.New(ctx, database.Config{
		ConnectionString: cfg.Database.ConnectionString(),
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		ConnectTimeout:   cfg.Database.ConnectTimeout,
		TimeZone:         cfg.App.TimeZone,
	}, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	redisClient, err := cache.New(cache.Config{
		Address:      cfg.Redis.Address(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, log)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("failed to close redis", "error", err)
		}
	}()

	weblogRepo := infraPostgres.NewWeblogRepository(db.Pool)
	entryRepo := infraPostgres.NewEntryRepository(db.Pool)
	commentRepo := infraPostgres.NewCommentRepository(db.Pool)
	tagAggRepo := infraPostgres.NewTagAggregateRepository(db.Pool)
	hitCountRepo := infraPostgres.NewHitCountRepository(db.Pool)
	pingQueueRepo := infraPostgres.NewPingQueueRepository(db.Pool)
	txManager := infraPostgres.NewTxManager(db.Pool)

	var tagStatsCache usecaseTag.StatsCache
	var hotCache usecaseHitcount.HotCache
	if cfg.App.CacheEnabled {
		tagStatsCache = infraRedis.NewPopularTagsCache(redisClient, cfg.App.CacheTTL)
		hotCache = infraRedis.NewHotWeblogsCache(redisClient, cfg.App.CacheTTL)
	}

	tagService := usecaseTag.NewService(tagAggRepo, entryRepo, txManager, tagStatsCache, log)
	pingService := usecasePing.NewService(
		pingQueueRepo,
		cfg.Ping.TargetURLs,
		&http.Client{Timeout: cfg.Ping.Timeout},
		log,
	)
	entryService := usecaseEntry.NewService(
		entryRepo,
		weblogRepo,
		commentRepo,
		tagService,
		pingService,
		txManager,
		memory.NewAnchorCache(),
		log,
	)
	commentService := usecaseComment.NewService(commentRepo, weblogRepo, txManager, log)
	hitCountService := usecaseHitcount.NewService(hitCountRepo, txManager, hotCache, log)

	middlewares := []func(http.Handler) http.Handler{
		server.Recoverer(log),
		server.RequestLogger(log),
		server.SecurityHeaders(),
		server.CORS(cfg.App.CORSAllowedOrigins),
	}
	var prometheusHandler http.Handler
	if cfg.App.EnableMetrics {
		httpMetrics := metrics.NewHTTPMetrics()
		middlewares = append(middlewares, httpMetrics.Middleware)
		prometheusHandler = httpMetrics.Handler()
	}
	if cfg.App.RateLimitEnabled {
		middlewares = append(middlewares, server.RateLimit(server.RateLimitConfig{
			Cache:  redisClient,
			Limit:  cfg.App.RateLimitMaxRequests,
			Window: cfg.App.RateLimitWindow,
			Logger: log,
		}))
	}

	router := handler.NewRouter(handler.RouterConfig{
		EntryHandler:      handler.NewEntryHandler(entryService, weblogRepo),
		CommentHandler:    handler.NewCommentHandler(commentService, weblogRepo),
		TagHandler:        handler.NewTagHandler(tagService, weblogRepo),
		HitCountHandler:   handler.NewHitCountHandler(hitCountService, weblogRepo, cfg.App.HotWeblogsWindowDays),
		HealthHandler:     &handler.HealthHandler{DB: db, Cache: redisClient},
		APIBasePath:       cfg.App.APIBasePath,
		Middlewares:       middlewares,
		PrometheusHandler: prometheusHandler,
	})

	srv := server.New(server.Config{
		Address:         cfg.Server.Address(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, router, log)

	return srv.ListenAndServeWithGracefulShutdown()
}
