package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"localcart/internal/config"
	"localcart/internal/db"
	"localcart/internal/importer"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to product CSV export")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[importer] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	ctx := context.Background()

	stores, err := db.OpenStores(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatalf("open stores: %v", err)
	}
	defer stores.Close()

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatalf("open file: %v", err)
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, stores.Products, logger)

	start := time.Now()
	res, err := imp.Run(ctx)
	if err != nil {
		logger.Fatalf("import failed after %d products: %v", res.Imported, err)
	}

	logger.Printf("imported %d products in %s", res.Imported, time.Since(start).Truncate(time.Millisecond))
	if len(res.Warnings) > 0 {
		logger.Printf("%d products have no fulfillment option: %s", len(res.Warnings), strings.Join(res.Warnings, ", "))
	}
}
