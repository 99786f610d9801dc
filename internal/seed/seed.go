// Package seed inserts demo data for manual testing: one product per
// fulfillment mode and customers inside and outside the local area.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"localcart/internal/domain"
	"localcart/internal/fulfillment"
	customersvc "localcart/internal/service/customer"
)

type productWriter interface {
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}

type customerSignup interface {
	Signup(ctx context.Context, in customersvc.SignupInput) (*domain.Customer, error)
}

// DemoPassword is the password of every seeded customer.
const DemoPassword = "Localcart1"

var products = []domain.Product{
	{
		Key:                    "demo-sourdough",
		SKU:                    "SKU-DEMO-SOURDOUGH",
		Name:                   "Sourdough Loaf",
		Description:            "Baked this morning; local pickup or delivery only",
		PriceCents:             799,
		Currency:               "USD",
		LocalDeliveryAvailable: true,
	},
	{
		Key:                    "demo-coffee",
		SKU:                    "SKU-DEMO-COFFEE",
		Name:                   "House Coffee Beans",
		Description:            "Whole beans, picked up locally or shipped",
		PriceCents:             1499,
		Currency:               "USD",
		LocalDeliveryAvailable: true,
		ShippingAvailable:      true,
	},
	{
		Key:               "demo-mug",
		SKU:               "SKU-DEMO-MUG",
		Name:              "Demo Mug",
		Description:       "Ceramic mug with demo logo",
		PriceCents:        1299,
		Currency:          "USD",
		ShippingAvailable: true,
	},
}

var customers = []customersvc.SignupInput{
	{
		Email:     "local@example.com",
		Password:  DemoPassword,
		FirstName: "Lou",
		LastName:  "Cal",
		Addresses: []customersvc.AddressInput{{
			Country: "US", StreetName: "100 State St", PostalCode: "14850", City: "Ithaca", State: "NY",
		}},
	},
	{
		Email:     "distant@example.com",
		Password:  DemoPassword,
		FirstName: "Dee",
		LastName:  "Stant",
		Addresses: []customersvc.AddressInput{{
			Country: "US", StreetName: "350 5th Ave", PostalCode: "10118", City: "New York", State: "NY",
		}},
	},
}

// Apply is idempotent: products are upserted by key and existing customers
// are left alone.
func Apply(ctx context.Context, productRepo productWriter, signup customerSignup, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	for _, p := range products {
		saved, err := productRepo.Upsert(ctx, p)
		if err != nil {
			return fmt.Errorf("upsert product %s: %w", p.Key, err)
		}
		logger.Printf("seed: product key=%s id=%s mode=%s", saved.Key, saved.ID, fulfillment.Resolve(*saved))
	}
	for _, in := range customers {
		c, err := signup.Signup(ctx, in)
		if errors.Is(err, domain.ErrAlreadyExists) {
			logger.Printf("seed: customer email=%s exists", in.Email)
			continue
		}
		if err != nil {
			return fmt.Errorf("create customer %s: %w", in.Email, err)
		}
		logger.Printf("seed: customer email=%s id=%s", c.Email, c.ID)
	}
	return nil
}
