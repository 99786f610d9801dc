package cart

import (
	"context"

	"localcart/internal/domain"
)

type CreateCartInput struct {
	CustomerID  *string
	AnonymousID *string
	Currency    string
}

type Repository interface {
	Create(ctx context.Context, in CreateCartInput) (*domain.Cart, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	GetActiveByCustomer(ctx context.Context, customerID string) (*domain.Cart, error)
	GetActiveByAnonymous(ctx context.Context, anonymousID string) (*domain.Cart, error)
	AssignCustomerToAnonymous(ctx context.Context, anonymousID, customerID string) (*domain.Cart, error)
	AddLineItem(ctx context.Context, cartID string, product domain.Product, quantity int, snapshot map[string]interface{}) error
	ChangeLineItemQuantity(ctx context.Context, cartID, lineItemID string, quantity int) error
	DeleteLineItem(ctx context.Context, cartID, lineItemID string) error
	// ListLinesWithProducts returns every line of the cart joined with the
	// current product row, so callers see today's fulfillment flags rather
	// than the snapshot taken when the line was added.
	ListLinesWithProducts(ctx context.Context, cartID string) ([]domain.CartLineProduct, error)
}
