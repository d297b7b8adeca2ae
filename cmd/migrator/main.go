package main

import (
	"flag"
	"fmt"
	"os"

	"weblogger/internal/platform/config"
	"weblogger/internal/platform/logger"
	"weblogger/internal/platform/migration"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		source  = flag.String("source", "file://migrations", "migrations source URL")
		command = flag.String("command", "up", "migration command: up, down, version, force")
		version = flag.Int("version", -1, "target version for the force command")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return 1
	}

	log := logger.New(logger.Config{
		Level:  logger.Level(cfg.App.LogLevel),
		Format: logger.Format(cfg.App.LogFormat),
	})
	logger.SetDefault(log)

	runner, err := migration.New(migration.Config{
		DatabaseURL:    cfg.Database.ConnectionString(),
		MigrationsPath: *source,
		Logger:         log,
	})
	if err != nil {
		log.Error("migration setup failed", "err", err)
		return 1
	}
	defer func() {
		if err := runner.Close(); err != nil {
			log.Warn("migration close failed", "err", err)
		}
	}()

	switch *command {
	case "up":
		err = runner.Up()
	case "down":
		err = runner.Down()
	case "version":
		var (
			current uint
			dirty   bool
		)
		current, dirty, err = runner.Version()
		if err == nil {
			log.Info("schema version", "version", current, "dirty", dirty)
		}
	case "force":
		if *version < 0 {
			log.Error("force requires -version")
			return 1
		}
		err = runner.Force(*version)
	default:
		log.Error("unknown command", "command", *command)
		return 1
	}
	if err != nil {
		log.Error("migration failed", "command", *command, "err", err)
		return 1
	}
	return 0
}
