package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"localcart/internal/domain"
	"localcart/internal/fulfillment"
	"localcart/internal/repository/product"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type productRow struct {
	ID            string `db:"id"`
	Key           string `db:"key"`
	SKU           string `db:"sku"`
	Name          string `db:"name"`
	Description   string `db:"description"`
	PriceCents    int64  `db:"price_cents"`
	Currency      string `db:"currency"`
	LocalDelivery bool   `db:"local_delivery_available"`
	Shipping      bool   `db:"shipping_available"`
	Attributes    string `db:"attributes"`
	CreatedAt     string `db:"created_at"`
}

func (r productRow) toDomain() (domain.Product, error) {
	attrs, err := decodeMap(r.Attributes)
	if err != nil {
		return domain.Product{}, fmt.Errorf("decode attributes product_id=%s: %w", r.ID, err)
	}
	return domain.Product{
		ID:                     r.ID,
		Key:                    r.Key,
		SKU:                    r.SKU,
		Name:                   r.Name,
		Description:            r.Description,
		PriceCents:             r.PriceCents,
		Currency:               r.Currency,
		LocalDeliveryAvailable: r.LocalDelivery,
		ShippingAvailable:      r.Shipping,
		Attributes:             attrs,
		CreatedAt:              parseTime(r.CreatedAt),
	}, nil
}

const productSelect = `SELECT id, key, sku, name, description, price_cents, currency,
       local_delivery_available, shipping_available, attributes, created_at FROM products`

type productRepo struct{ db *sqlx.DB }

// NewProductRepo returns a product.Repository backed by db.
func NewProductRepo(db *sqlx.DB) product.Repository { return &productRepo{db: db} }

func (r *productRepo) List(ctx context.Context) ([]domain.Product, error) {
	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, productSelect+` ORDER BY created_at DESC`); err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *productRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var row productRow
	if err := r.db.GetContext(ctx, &row, productSelect+` WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	attrs := fulfillment.ApplyAttributeFlags(&p)
	attrJSON, err := encodeJSON(attrs)
	if err != nil {
		return nil, err
	}
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	var storedID string
	err = r.db.QueryRowxContext(ctx, `
INSERT INTO products (id, key, sku, name, description, price_cents, currency, local_delivery_available, shipping_available, attributes, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (key) DO UPDATE SET
    sku = excluded.sku,
    name = excluded.name,
    description = excluded.description,
    price_cents = excluded.price_cents,
    currency = excluded.currency,
    local_delivery_available = excluded.local_delivery_available,
    shipping_available = excluded.shipping_available,
    attributes = excluded.attributes
RETURNING id
`, id, p.Key, p.SKU, p.Name, p.Description, p.PriceCents, p.Currency,
		p.LocalDeliveryAvailable, p.ShippingAvailable, attrJSON, now(),
	).Scan(&storedID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	if p.ID != "" && storedID != p.ID {
		return nil, fmt.Errorf("sqlite product: id mismatch for key=%s existing_id=%s import_id=%s", p.Key, storedID, p.ID)
	}
	return r.GetByID(ctx, storedID)
}
