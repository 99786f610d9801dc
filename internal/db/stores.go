package db

import (
	"context"
	"fmt"
	"log"
	"strings"

	cartrepo "localcart/internal/repository/cart"
	customerrepo "localcart/internal/repository/customer"
	productrepo "localcart/internal/repository/product"
	tokenrepo "localcart/internal/repository/token"
	"localcart/internal/store/sqlite"
)

const sqlitePrefix = "sqlite:"

// Stores bundles the repositories of one backend.
type Stores struct {
	Backend   string
	Products  productrepo.Repository
	Carts     cartrepo.Repository
	Customers customerrepo.Repository
	Tokens    tokenrepo.Repository

	ping  func(ctx context.Context) error
	close func()
}

// Ping reports whether the backend is reachable.
func (s *Stores) Ping(ctx context.Context) error { return s.ping(ctx) }

func (s *Stores) Close() { s.close() }

// OpenStores connects to Postgres, or to the embedded sqlite store when dsn
// starts with "sqlite:".
func OpenStores(ctx context.Context, dsn string, logger *log.Logger) (*Stores, error) {
	if strings.HasPrefix(dsn, sqlitePrefix) {
		sdb, err := sqlite.Open(strings.TrimPrefix(dsn, sqlitePrefix))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &Stores{
			Backend:   "sqlite",
			Products:  sqlite.NewProductRepo(sdb),
			Carts:     sqlite.NewCartRepo(sdb),
			Customers: sqlite.NewCustomerRepo(sdb),
			Tokens:    sqlite.NewTokenRepo(sdb),
			ping:      sdb.PingContext,
			close:     func() { _ = sdb.Close() },
		}, nil
	}

	pool, err := Connect(ctx, dsn, logger)
	if err != nil {
		return nil, err
	}
	return &Stores{
		Backend:   "postgres",
		Products:  productrepo.NewPostgres(pool, logger),
		Carts:     cartrepo.NewPostgres(pool, logger),
		Customers: customerrepo.NewPostgres(pool, logger),
		Tokens:    tokenrepo.NewPostgres(pool),
		ping:      pool.Ping,
		close:     pool.Close,
	}, nil
}
