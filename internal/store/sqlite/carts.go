package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"localcart/internal/domain"
	"localcart/internal/repository/cart"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type cartRow struct {
	ID          string  `db:"id"`
	CustomerID  *string `db:"customer_id"`
	AnonymousID *string `db:"anonymous_id"`
	Currency    string  `db:"currency"`
	TotalCents  int64   `db:"total_cents"`
	State       string  `db:"state"`
	CreatedAt   string  `db:"created_at"`
}

type lineRow struct {
	ID             string `db:"id"`
	CartID         string `db:"cart_id"`
	ProductID      string `db:"product_id"`
	Quantity       int    `db:"quantity"`
	UnitPriceCents int64  `db:"unit_price_cents"`
	TotalCents     int64  `db:"total_cents"`
	Snapshot       string `db:"snapshot"`
	CreatedAt      string `db:"created_at"`
}

func (r lineRow) toDomain() (domain.CartLine, error) {
	snap, err := decodeMap(r.Snapshot)
	if err != nil {
		return domain.CartLine{}, fmt.Errorf("decode snapshot line_id=%s: %w", r.ID, err)
	}
	return domain.CartLine{
		ID:             r.ID,
		CartID:         r.CartID,
		ProductID:      r.ProductID,
		Quantity:       r.Quantity,
		UnitPriceCents: r.UnitPriceCents,
		TotalCents:     r.TotalCents,
		Snapshot:       snap,
		CreatedAt:      parseTime(r.CreatedAt),
	}, nil
}

const cartSelect = `SELECT id, customer_id, anonymous_id, currency, total_cents, state, created_at FROM carts`

type cartRepo struct{ db *sqlx.DB }

// NewCartRepo returns a cart.Repository backed by db.
func NewCartRepo(db *sqlx.DB) cart.Repository { return &cartRepo{db: db} }

func (r *cartRepo) Create(ctx context.Context, in cart.CreateCartInput) (*domain.Cart, error) {
	id := uuid.NewString()
	if _, err := r.db.ExecContext(ctx, `
INSERT INTO carts (id, customer_id, anonymous_id, currency, total_cents, state, created_at)
VALUES (?, ?, ?, ?, 0, 'active', ?)
`, id, in.CustomerID, in.AnonymousID, in.Currency, now()); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *cartRepo) GetByID(ctx context.Context, id string) (*domain.Cart, error) {
	return r.fetchCart(ctx, cartSelect+` WHERE id = ?`, id)
}

func (r *cartRepo) GetActiveByCustomer(ctx context.Context, customerID string) (*domain.Cart, error) {
	return r.fetchCart(ctx, cartSelect+` WHERE customer_id = ? AND state = 'active' ORDER BY created_at DESC LIMIT 1`, customerID)
}

func (r *cartRepo) GetActiveByAnonymous(ctx context.Context, anonymousID string) (*domain.Cart, error) {
	return r.fetchCart(ctx, cartSelect+` WHERE anonymous_id = ? AND state = 'active' ORDER BY created_at DESC LIMIT 1`, anonymousID)
}

func (r *cartRepo) AssignCustomerToAnonymous(ctx context.Context, anonymousID, customerID string) (*domain.Cart, error) {
	var cartID string
	err := r.db.QueryRowxContext(ctx, `
UPDATE carts SET customer_id = ?, anonymous_id = NULL
WHERE anonymous_id = ? AND state = 'active'
RETURNING id
`, customerID, anonymousID).Scan(&cartID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return r.GetByID(ctx, cartID)
}

func (r *cartRepo) AddLineItem(ctx context.Context, cartID string, product domain.Product, quantity int, snapshot map[string]interface{}) error {
	snapJSON, err := encodeJSON(snapshot)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO cart_lines (id, cart_id, product_id, quantity, unit_price_cents, total_cents, snapshot, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (cart_id, product_id) DO UPDATE SET
    quantity = cart_lines.quantity + excluded.quantity,
    total_cents = cart_lines.unit_price_cents * (cart_lines.quantity + excluded.quantity)
`, uuid.NewString(), cartID, product.ID, quantity, product.PriceCents, product.PriceCents*int64(quantity), snapJSON, now()); err != nil {
		return err
	}
	if err := updateCartTotal(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *cartRepo) ChangeLineItemQuantity(ctx context.Context, cartID, lineItemID string, quantity int) error {
	if quantity <= 0 {
		return r.DeleteLineItem(ctx, cartID, lineItemID)
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
UPDATE cart_lines SET quantity = ?, total_cents = unit_price_cents * ?
WHERE id = ? AND cart_id = ?
`, quantity, quantity, lineItemID, cartID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	if err := updateCartTotal(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *cartRepo) DeleteLineItem(ctx context.Context, cartID, lineItemID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE id = ? AND cart_id = ?`, lineItemID, cartID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	if err := updateCartTotal(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *cartRepo) ListLinesWithProducts(ctx context.Context, cartID string) ([]domain.CartLineProduct, error) {
	type joinedRow struct {
		lineRow
		P productRow `db:"p"`
	}
	var rows []joinedRow
	err := r.db.SelectContext(ctx, &rows, `
SELECT l.id, l.cart_id, l.product_id, l.quantity, l.unit_price_cents, l.total_cents, l.snapshot, l.created_at,
       p.id AS "p.id", p.key AS "p.key", p.sku AS "p.sku", p.name AS "p.name", p.description AS "p.description",
       p.price_cents AS "p.price_cents", p.currency AS "p.currency",
       p.local_delivery_available AS "p.local_delivery_available", p.shipping_available AS "p.shipping_available",
       p.attributes AS "p.attributes", p.created_at AS "p.created_at"
FROM cart_lines l
JOIN products p ON p.id = l.product_id
WHERE l.cart_id = ?
ORDER BY l.created_at ASC, l.rowid ASC
`, cartID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CartLineProduct, 0, len(rows))
	for _, row := range rows {
		line, err := row.lineRow.toDomain()
		if err != nil {
			return nil, err
		}
		p, err := row.P.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, domain.CartLineProduct{Line: line, Product: p})
	}
	return out, nil
}

func (r *cartRepo) fetchCart(ctx context.Context, q string, args ...interface{}) (*domain.Cart, error) {
	var row cartRow
	if err := r.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	c := domain.Cart{
		ID:          row.ID,
		CustomerID:  row.CustomerID,
		AnonymousID: row.AnonymousID,
		Currency:    row.Currency,
		TotalCents:  row.TotalCents,
		State:       row.State,
		CreatedAt:   parseTime(row.CreatedAt),
	}
	var lines []lineRow
	if err := r.db.SelectContext(ctx, &lines, `
SELECT id, cart_id, product_id, quantity, unit_price_cents, total_cents, snapshot, created_at
FROM cart_lines WHERE cart_id = ? ORDER BY created_at ASC, rowid ASC
`, c.ID); err != nil {
		return nil, err
	}
	for _, lr := range lines {
		line, err := lr.toDomain()
		if err != nil {
			return nil, err
		}
		c.Lines = append(c.Lines, line)
	}
	return &c, nil
}

func updateCartTotal(ctx context.Context, tx *sqlx.Tx, cartID string) error {
	_, err := tx.ExecContext(ctx, `
UPDATE carts
SET total_cents = COALESCE((SELECT SUM(total_cents) FROM cart_lines WHERE cart_id = ?), 0)
WHERE id = ?
`, cartID, cartID)
	return err
}
