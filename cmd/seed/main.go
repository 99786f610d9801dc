package main

import (
	"context"
	"log"
	"os"

	"localcart/internal/config"
	"localcart/internal/db"
	"localcart/internal/seed"
	customersvc "localcart/internal/service/customer"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	stores, err := db.OpenStores(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatalf("open stores: %v", err)
	}
	defer stores.Close()

	// No publisher: seeded customers have no carts to reconcile.
	customers := customersvc.New(stores.Customers, stores.Tokens, nil, logger)
	if err := seed.Apply(ctx, stores.Products, customers, logger); err != nil {
		logger.Fatalf("seed apply: %v", err)
	}

	logger.Printf("seed applied; demo customers use password %s", seed.DemoPassword)
}
