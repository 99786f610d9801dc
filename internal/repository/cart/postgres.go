package cart

import (
	"context"
	"errors"
	"io"
	"log"

	"localcart/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const cartColumns = `id::text, customer_id::text, anonymous_id, currency, total_cents, state, created_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, in CreateCartInput) (*domain.Cart, error) {
	q := `
INSERT INTO carts (customer_id, anonymous_id, currency, total_cents, state)
VALUES ($1, $2, $3, 0, 'active')
RETURNING ` + cartColumns
	cart, err := scanCart(r.pool.QueryRow(ctx, q, in.CustomerID, in.AnonymousID, in.Currency))
	if err != nil {
		r.logger.Printf("cart repo: create error=%v", err)
		return nil, err
	}
	return cart, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Cart, error) {
	return r.fetchCart(ctx, `SELECT `+cartColumns+` FROM carts WHERE id::text = $1`, id)
}

func (r *postgresRepo) GetActiveByCustomer(ctx context.Context, customerID string) (*domain.Cart, error) {
	return r.fetchCart(ctx, `
SELECT `+cartColumns+`
FROM carts
WHERE customer_id::text = $1 AND state = 'active'
ORDER BY created_at DESC
LIMIT 1
`, customerID)
}

func (r *postgresRepo) GetActiveByAnonymous(ctx context.Context, anonymousID string) (*domain.Cart, error) {
	return r.fetchCart(ctx, `
SELECT `+cartColumns+`
FROM carts
WHERE anonymous_id = $1 AND state = 'active'
ORDER BY created_at DESC
LIMIT 1
`, anonymousID)
}

func (r *postgresRepo) AssignCustomerToAnonymous(ctx context.Context, anonymousID, customerID string) (*domain.Cart, error) {
	const q = `
UPDATE carts
SET customer_id = $1,
    anonymous_id = NULL
WHERE anonymous_id = $2 AND state = 'active'
RETURNING id::text
`
	var cartID string
	if err := r.pool.QueryRow(ctx, q, customerID, anonymousID).Scan(&cartID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return r.GetByID(ctx, cartID)
}

func (r *postgresRepo) AddLineItem(ctx context.Context, cartID string, product domain.Product, quantity int, snapshot map[string]interface{}) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var lineID string
	var existingQty int
	var unitPrice int64
	err = tx.QueryRow(ctx, `
SELECT id::text, quantity, unit_price_cents
FROM cart_lines
WHERE cart_id::text = $1 AND product_id::text = $2
`, cartID, product.ID).Scan(&lineID, &existingQty, &unitPrice)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	if err == nil {
		newQty := existingQty + quantity
		if _, err := tx.Exec(ctx, `
UPDATE cart_lines
SET quantity = $1, total_cents = $2
WHERE id::text = $3
`, newQty, unitPrice*int64(newQty), lineID); err != nil {
			return err
		}
	} else {
		unitPrice = product.PriceCents
		if _, err := tx.Exec(ctx, `
INSERT INTO cart_lines (cart_id, product_id, quantity, unit_price_cents, total_cents, snapshot)
VALUES ($1, $2, $3, $4, $5, $6)
`, cartID, product.ID, quantity, unitPrice, unitPrice*int64(quantity), snapshot); err != nil {
			return err
		}
	}

	if err := updateCartTotal(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) ChangeLineItemQuantity(ctx context.Context, cartID, lineItemID string, quantity int) error {
	if quantity <= 0 {
		return r.DeleteLineItem(ctx, cartID, lineItemID)
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var unitPrice int64
	err = tx.QueryRow(ctx, `
SELECT unit_price_cents
FROM cart_lines
WHERE id::text = $1 AND cart_id::text = $2
`, lineItemID, cartID).Scan(&unitPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	if _, err := tx.Exec(ctx, `
UPDATE cart_lines
SET quantity = $1, total_cents = $2
WHERE id::text = $3 AND cart_id::text = $4
`, quantity, unitPrice*int64(quantity), lineItemID, cartID); err != nil {
		return err
	}

	if err := updateCartTotal(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) DeleteLineItem(ctx context.Context, cartID, lineItemID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
DELETE FROM cart_lines
WHERE id::text = $1 AND cart_id::text = $2
`, lineItemID, cartID)
	if err != nil {
		r.logger.Printf("cart repo: delete line cart_id=%s line_id=%s error=%v", cartID, lineItemID, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	if err := updateCartTotal(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) ListLinesWithProducts(ctx context.Context, cartID string) ([]domain.CartLineProduct, error) {
	const q = `
SELECT l.id::text, l.cart_id::text, l.product_id::text, l.quantity, l.unit_price_cents, l.total_cents, l.snapshot, l.created_at,
       p.id::text, p.key, p.sku, p.name, COALESCE(p.description, ''), p.price_cents, p.currency,
       p.local_delivery_available, p.shipping_available, p.attributes, p.created_at
FROM cart_lines l
JOIN products p ON p.id = l.product_id
WHERE l.cart_id::text = $1
ORDER BY l.created_at ASC
`
	rows, err := r.pool.Query(ctx, q, cartID)
	if err != nil {
		r.logger.Printf("cart repo: list lines cart_id=%s error=%v", cartID, err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.CartLineProduct
	for rows.Next() {
		var lp domain.CartLineProduct
		if err := rows.Scan(
			&lp.Line.ID,
			&lp.Line.CartID,
			&lp.Line.ProductID,
			&lp.Line.Quantity,
			&lp.Line.UnitPriceCents,
			&lp.Line.TotalCents,
			&lp.Line.Snapshot,
			&lp.Line.CreatedAt,
			&lp.Product.ID,
			&lp.Product.Key,
			&lp.Product.SKU,
			&lp.Product.Name,
			&lp.Product.Description,
			&lp.Product.PriceCents,
			&lp.Product.Currency,
			&lp.Product.LocalDeliveryAvailable,
			&lp.Product.ShippingAvailable,
			&lp.Product.Attributes,
			&lp.Product.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, lp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) fetchCart(ctx context.Context, cartQuery string, args ...interface{}) (*domain.Cart, error) {
	cart, err := scanCart(r.pool.QueryRow(ctx, cartQuery, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	const linesQuery = `
SELECT id::text, cart_id::text, product_id::text, quantity, unit_price_cents, total_cents, snapshot, created_at
FROM cart_lines
WHERE cart_id::text = $1
ORDER BY created_at ASC
`
	rows, err := r.pool.Query(ctx, linesQuery, cart.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(
			&line.ID,
			&line.CartID,
			&line.ProductID,
			&line.Quantity,
			&line.UnitPriceCents,
			&line.TotalCents,
			&line.Snapshot,
			&line.CreatedAt,
		); err != nil {
			return nil, err
		}
		cart.Lines = append(cart.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cart, nil
}

func scanCart(row pgx.Row) (*domain.Cart, error) {
	var cart domain.Cart
	if err := row.Scan(
		&cart.ID,
		&cart.CustomerID,
		&cart.AnonymousID,
		&cart.Currency,
		&cart.TotalCents,
		&cart.State,
		&cart.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &cart, nil
}

func updateCartTotal(ctx context.Context, tx pgx.Tx, cartID string) error {
	_, err := tx.Exec(ctx, `
UPDATE carts
SET total_cents = COALESCE((
	SELECT SUM(total_cents)
	FROM cart_lines
	WHERE cart_id::text = $1
), 0)
WHERE id::text = $1
`, cartID)
	return err
}
