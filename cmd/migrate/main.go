package main

import (
	"context"
	"flag"
	"log"
	"os"

	"localcart/internal/config"
	"localcart/internal/migrate"
)

func main() {
	var (
		down    int
		version bool
	)
	flag.IntVar(&down, "down", 0, "Roll back this many migrations instead of migrating up")
	flag.BoolVar(&version, "version", false, "Print the current schema version and exit")
	flag.Parse()

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[migrate] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	if cfg.UsesSQLite() {
		logger.Printf("sqlite store %s creates its schema on open; nothing to migrate", cfg.SQLitePath())
		return
	}

	ctx := context.Background()
	switch {
	case version:
		v, dirty, err := migrate.Version(ctx, cfg.DBConnString)
		if err != nil {
			logger.Fatalf("read version: %v", err)
		}
		logger.Printf("schema version=%d dirty=%t", v, dirty)
	case down > 0:
		if err := migrate.Down(ctx, cfg.DBConnString, down, logger); err != nil {
			logger.Fatalf("roll back migrations: %v", err)
		}
		logger.Printf("rolled back %d migrations", down)
	default:
		if err := migrate.Up(ctx, cfg.DBConnString, logger); err != nil {
			logger.Fatalf("apply migrations: %v", err)
		}
		logger.Println("migrations applied")
	}
}
