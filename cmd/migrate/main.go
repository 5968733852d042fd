package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/noah-isme/nu-admissions-api/pkg/config"
	"github.com/noah-isme/nu-admissions-api/pkg/database"
	"github.com/noah-isme/nu-admissions-api/pkg/logger"
)

func main() {
	flag.Usage = func() {
		log.Printf("usage: migrate [up|status]")
	}
	flag.Parse()
	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	switch command {
	case "up":
		if err := database.Migrate(ctx, db.DB); err != nil {
			logr.Fatal("migration failed", zap.Error(err))
		}
		logr.Info("migrations applied")
	case "status":
		if err := database.MigrationStatus(ctx, db.DB); err != nil {
			logr.Fatal("migration status failed", zap.Error(err))
		}
	default:
		flag.Usage()
		log.Fatalf("unknown command %q", command)
	}
}
