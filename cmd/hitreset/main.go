package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	infraPostgres "weblogger/internal/infra/postgres"
	"weblogger/internal/pkg/batchutil"
	"weblogger/internal/platform/config"
	"weblogger/internal/platform/database"
	platformLogger "weblogger/internal/platform/logger"
	usecaseHitcount "weblogger/internal/usecase/hitcount"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		lockName          = flag.String("lock", "", "advisory lock name (default: hitreset)")
		executionDeadline = flag.Duration("deadline", 2*time.Minute, "overall execution deadline")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *executionDeadline)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return 1
	}

	log := platformLogger.New(platformLogger.Config{
		Level:  platformLogger.Level(cfg.App.LogLevel),
		Format: platformLogger.Format(cfg.App.LogFormat),
	})
	platformLogger.SetDefault(log)
	startedAt := time.Now()
	log.Info("hitreset started", "deadline", *executionDeadline)

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
		log.Error("db connect failed", "err", err)
		return 1
	}
	defer db.Close()

	jobLock := strings.TrimSpace(*lockName)
	if jobLock == "" {
		jobLock = "hitreset"
	}

	locked, unlock, err := batchutil.TryAdvisoryLock(ctx, db.Pool, jobLock)
	if err != nil {
		log.Error("lock failed", "err", err)
		return 1
	}
	if !locked {
		log.Info("lock not acquired; skip")
		return 0
	}
	defer func() {
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := unlock(unlockCtx); err != nil {
			log.Warn("unlock failed", "err", err)
		}
	}()

	hitCountRepo := infraPostgres.NewHitCountRepository(db.Pool)
	txManager := infraPostgres.NewTxManager(db.Pool)
	service := usecaseHitcount.NewService(hitCountRepo, txManager, nil, log)

	reset, err := service.ResetAllHitCounts(ctx)
	if err != nil {
		log.Error("hit count reset failed", "err", err)
		return 1
	}
	log.Info("hitreset finished", "reset", reset, "elapsed", time.Since(startedAt))
	return 0
}
