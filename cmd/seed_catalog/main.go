package main

import (
	"context"
	"flag"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pageza/mealplanner/backend/config"
	"github.com/pageza/mealplanner/backend/internal/catalog"
	"github.com/pageza/mealplanner/backend/internal/database"
	"github.com/pageza/mealplanner/backend/internal/logger"
)

// seed_catalog loads a food CSV, from disk or from the configured S3
// object, and upserts it into the food_items table.
func main() {
	path := flag.String("file", "", "CSV file to import; defaults to CATALOG_PATH")
	fromS3 := flag.Bool("s3", false, "read CATALOG_BUCKET/CATALOG_KEY instead of a file")
	flag.Parse()

	log := logger.New(logger.DefaultConfig()).WithComponent("seed_catalog")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load configuration", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var src io.ReadCloser
	if *fromS3 {
		client, err := config.NewS3Client(ctx, cfg)
		if err != nil {
			log.Fatal("failed to create S3 client", "error", err)
		}
		out, err := client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(cfg.CatalogBucket),
			Key:    aws.String(cfg.CatalogKey),
		})
		if err != nil {
			log.Fatal("failed to fetch catalog object", "bucket", cfg.CatalogBucket, "key", cfg.CatalogKey, "error", err)
		}
		src = out.Body
	} else {
		if *path == "" {
			*path = cfg.CatalogPath
		}
		f, err := os.Open(*path)
		if err != nil {
			log.Fatal("failed to open catalog file", "path", *path, "error", err)
		}
		src = f
	}
	defer src.Close()

	items, err := catalog.ReadCSV(src)
	if err != nil {
		log.Fatal("failed to read catalog", "error", err)
	}

	db, err := database.Open(cfg, log)
	if err != nil {
		log.Fatal("failed to open database", "error", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.Fatal("migration failed", "error", err)
	}

	store := catalog.NewStore(db)
	if err := store.Upsert(ctx, items); err != nil {
		log.Fatal("failed to import catalog", "error", err)
	}
	n, err := store.Count(ctx)
	if err != nil {
		log.Fatal("failed to count catalog", "error", err)
	}
	log.Info("catalog imported", "read", len(items), "total", n)
}
