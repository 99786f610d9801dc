package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"localcart/internal/domain"
	"localcart/internal/repository/customer"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type customerRow struct {
	ID                string `db:"id"`
	Email             string `db:"email"`
	PasswordHash      string `db:"password_hash"`
	FirstName         string `db:"first_name"`
	LastName          string `db:"last_name"`
	Addresses         string `db:"addresses"`
	DefaultShippingID string `db:"default_shipping_address_id"`
	CreatedAt         string `db:"created_at"`
}

func (r customerRow) toDomain() (*domain.Customer, error) {
	c := &domain.Customer{
		ID:                       r.ID,
		Email:                    r.Email,
		PasswordHash:             r.PasswordHash,
		FirstName:                r.FirstName,
		LastName:                 r.LastName,
		DefaultShippingAddressID: r.DefaultShippingID,
		CreatedAt:                parseTime(r.CreatedAt),
	}
	if r.Addresses != "" {
		if err := json.Unmarshal([]byte(r.Addresses), &c.Addresses); err != nil {
			return nil, fmt.Errorf("decode addresses customer_id=%s: %w", r.ID, err)
		}
	}
	return c, nil
}

const customerSelect = `SELECT id, email, password_hash, first_name, last_name, addresses, default_shipping_address_id, created_at FROM customers`

type customerRepo struct{ db *sqlx.DB }

// NewCustomerRepo returns a customer.Repository backed by db.
func NewCustomerRepo(db *sqlx.DB) customer.Repository { return &customerRepo{db: db} }

func (r *customerRepo) Create(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	addrJSON, err := encodeAddresses(c.Addresses)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	if _, err := r.db.ExecContext(ctx, `
INSERT INTO customers (id, email, password_hash, first_name, last_name, addresses, default_shipping_address_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, id, strings.ToLower(c.Email), c.PasswordHash, c.FirstName, c.LastName, addrJSON, c.DefaultShippingAddressID, now()); err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *customerRepo) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	return r.get(ctx, customerSelect+` WHERE LOWER(email) = LOWER(?) LIMIT 1`, email)
}

func (r *customerRepo) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	return r.get(ctx, customerSelect+` WHERE id = ? LIMIT 1`, id)
}

func (r *customerRepo) UpdateAddresses(ctx context.Context, id string, addresses []domain.CustomerAddress, defaultShippingID string) (*domain.Customer, error) {
	addrJSON, err := encodeAddresses(addresses)
	if err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE customers SET addresses = ?, default_shipping_address_id = ? WHERE id = ?
`, addrJSON, defaultShippingID, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *customerRepo) get(ctx context.Context, q string, args ...interface{}) (*domain.Customer, error) {
	var row customerRow
	if err := r.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain()
}

func encodeAddresses(addresses []domain.CustomerAddress) (string, error) {
	if addresses == nil {
		addresses = []domain.CustomerAddress{}
	}
	return encodeJSON(addresses)
}
