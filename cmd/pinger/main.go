package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	infraPostgres "weblogger/internal/infra/postgres"
	"weblogger/internal/pkg/batchutil"
	"weblogger/internal/platform/config"
	"weblogger/internal/platform/database"
	platformLogger "weblogger/internal/platform/logger"
	usecasePing "weblogger/internal/usecase/ping"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		lockName          = flag.String("lock", "", "advisory lock name (default: pinger)")
		limit             = flag.Int("limit", 0, "max queued pings per run (default: PING_BATCH_SIZE)")
		executionDeadline = flag.Duration("deadline", 3*time.Minute, "overall execution deadline")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *executionDeadline)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return 1
	}
	batch := *limit
	if batch <= 0 {
		batch = cfg.Ping.BatchSize
	}

	log := platformLogger.New(platformLogger.Config{
		Level:  platformLogger.Level(cfg.App.LogLevel),
		Format: platformLogger.Format(cfg.App.LogFormat),
	})
	platformLogger.SetDefault(log)
	startedAt := time.Now()
	log.Info("pinger started", "limit", batch, "deadline", *executionDeadline)

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
		jobLock = "pinger"
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

	pingQueueRepo := infraPostgres.NewPingQueueRepository(db.Pool)
	service := usecasePing.NewService(
		pingQueueRepo,
		cfg.Ping.TargetURLs,
		&http.Client{Timeout: cfg.Ping.Timeout},
		log,
	)

	sent, err := service.ProcessPending(ctx, batch)
	if err != nil {
		log.Error("ping delivery failed", "sent", sent, "err", err)
		return 1
	}
	log.Info("pinger finished", "sent", sent, "elapsed", time.Since(startedAt))
	return 0
}
