package main

import (
	"flag"

	"github.com/pageza/mealplanner/backend/config"
	"github.com/pageza/mealplanner/backend/internal/database"
	"github.com/pageza/mealplanner/backend/internal/logger"
)

func main() {
	driver := flag.String("driver", "", "override DB_DRIVER (postgres or sqlite)")
	flag.Parse()

	log := logger.New(logger.DefaultConfig()).WithComponent("migrate")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load configuration", "error", err)
	}
	if *driver != "" {
		cfg.DBDriver = *driver
	}

	db, err := database.Open(cfg, log)
	if err != nil {
		log.Fatal("failed to open database", "error", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.Fatal("migration failed", "error", err)
	}
	log.Info("migrations applied", "driver", cfg.DBDriver)
}
