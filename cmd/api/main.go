package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pageza/mealplanner/backend/config"
	"github.com/pageza/mealplanner/backend/internal/catalog"
	"github.com/pageza/mealplanner/backend/internal/database"
	"github.com/pageza/mealplanner/backend/internal/logger"
	"github.com/pageza/mealplanner/backend/internal/router"
	"github.com/pageza/mealplanner/backend/internal/server"
	"github.com/pageza/mealplanner/backend/internal/service"
	"github.com/pageza/mealplanner/backend/internal/solver"
)

var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.New(logger.DefaultConfig()).Fatal("failed to load configuration", "error", err)
	}

	log := logger.New(logger.Config{
		Level:       logger.Level(cfg.LogLevel),
		Format:      cfg.LogFormat,
		Output:      "stdout",
		Environment: string(cfg.Environment),
	})

	ctx := context.Background()

	var db *gorm.DB
	if cfg.CatalogSource == config.CatalogFromDB {
		db, err = database.Open(cfg, log)
		if err != nil {
			log.Fatal("failed to open database", "error", err)
		}
		defer database.Close(db)
	}

	cat, err := loadCatalog(ctx, cfg, db)
	if err != nil {
		log.Fatal("failed to load food catalog", "source", cfg.CatalogSource, "error", err)
	}
	log.Info("food catalog loaded", "source", cfg.CatalogSource, "items", cat.Len())

	// Redis is optional; without it the parser is uncached and requests
	// are not rate limited.
	var rdb *redis.Client
	if cfg.RedisEnabled() {
		rdb, err = database.NewRedisClient(cfg, log)
		if err != nil {
			log.Warn("continuing without redis", "error", err)
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	var parser service.ConstraintParser
	if cfg.ParserAPIKey != "" {
		p, err := service.NewLLMConstraintParser(service.ParserConfig{
			APIKey:    cfg.ParserAPIKey,
			URL:       cfg.ParserURL,
			Model:     cfg.ParserModel,
			CacheTTL:  cfg.ParserCacheTTL,
			FoodNames: cat.Names(),
		}, rdb, log)
		if err != nil {
			log.Fatal("failed to create constraint parser", "error", err)
		}
		parser = p
	} else {
		log.Warn("no parser API key configured, free-text constraints are disabled")
	}

	svc := service.NewRecommendationService(cat, solver.NewBranchAndBound(cfg.SolverMaxNodes), parser, service.Options{
		SolverTimeout:       cfg.SolverTimeout,
		MaxConcurrentSolves: cfg.MaxConcurrentSolves,
	}, log)

	srv := server.New(cfg, router.Dependencies{
		Service: svc,
		DB:      db,
		Redis:   rdb,
		Version: version,
		Logger:  log,
	})

	// Channel to listen for errors coming from the server
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.Fatal("server error", "error", err)
		}
	case sig := <-quit:
		log.Info("received signal", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", "error", err)
		return
	}
	log.Info("server stopped")
}

func loadCatalog(ctx context.Context, cfg *config.Config, db *gorm.DB) (*catalog.Catalog, error) {
	switch cfg.CatalogSource {
	case config.CatalogFromFile:
		return catalog.LoadCSVFile(cfg.CatalogPath)
	case config.CatalogFromDB:
		return catalog.NewStore(db).Load(ctx)
	case config.CatalogFromS3:
		client, err := config.NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return catalog.LoadS3(ctx, client, cfg.CatalogBucket, cfg.CatalogKey)
	}
	return nil, fmt.Errorf("unknown catalog source %q", cfg.CatalogSource)
}
