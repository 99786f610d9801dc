package customer

import (
	"context"

	"localcart/internal/domain"
)

// Repository persists and fetches customers.
type Repository interface {
	Create(ctx context.Context, c domain.Customer) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	// UpdateAddresses replaces the saved address book and the default shipping
	// address pointer in one write.
	UpdateAddresses(ctx context.Context, id string, addresses []domain.CustomerAddress, defaultShippingID string) (*domain.Customer, error)
}
