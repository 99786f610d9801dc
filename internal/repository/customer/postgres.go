package customer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"

	"localcart/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const customerColumns = `id::text, email, password_hash, first_name, last_name, addresses, default_shipping_address_id, created_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	addrJSON, err := encodeAddresses(c.Addresses)
	if err != nil {
		return nil, err
	}
	q := `
INSERT INTO customers (email, password_hash, first_name, last_name, addresses, default_shipping_address_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + customerColumns
	return r.scanCustomer(r.pool.QueryRow(
		ctx,
		q,
		strings.ToLower(c.Email),
		c.PasswordHash,
		c.FirstName,
		c.LastName,
		addrJSON,
		c.DefaultShippingAddressID,
	))
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	q := `SELECT ` + customerColumns + ` FROM customers WHERE lower(email) = lower($1) LIMIT 1`
	return r.scanCustomer(r.pool.QueryRow(ctx, q, email))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	q := `SELECT ` + customerColumns + ` FROM customers WHERE id::text = $1 LIMIT 1`
	return r.scanCustomer(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) UpdateAddresses(ctx context.Context, id string, addresses []domain.CustomerAddress, defaultShippingID string) (*domain.Customer, error) {
	addrJSON, err := encodeAddresses(addresses)
	if err != nil {
		return nil, err
	}
	q := `
UPDATE customers
SET addresses = $2, default_shipping_address_id = $3
WHERE id::text = $1
RETURNING ` + customerColumns
	c, err := r.scanCustomer(r.pool.QueryRow(ctx, q, id, addrJSON, defaultShippingID))
	if err != nil {
		return nil, err
	}
	r.logger.Printf("customer repo: addresses updated id=%s count=%d default=%s", id, len(addresses), defaultShippingID)
	return c, nil
}

func (r *postgresRepo) scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	var addrJSON []byte
	err := row.Scan(
		&c.ID,
		&c.Email,
		&c.PasswordHash,
		&c.FirstName,
		&c.LastName,
		&addrJSON,
		&c.DefaultShippingAddressID,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("customer repo: scan error=%v", err)
		return nil, err
	}
	if len(addrJSON) > 0 {
		if err := json.Unmarshal(addrJSON, &c.Addresses); err != nil {
			r.logger.Printf("customer repo: decode addresses id=%s err=%v", c.ID, err)
			return nil, err
		}
	}
	return &c, nil
}

func encodeAddresses(addresses []domain.CustomerAddress) ([]byte, error) {
	if addresses == nil {
		addresses = []domain.CustomerAddress{}
	}
	return json.Marshal(addresses)
}
