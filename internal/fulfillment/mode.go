package fulfillment

import (
	"errors"

	"localcart/internal/domain"
)

// Mode is what a product can be fulfilled by.
type Mode string

const (
	ModeLocalOnly    Mode = "LOCAL_ONLY"
	ModeShippingOnly Mode = "SHIPPING_ONLY"
	ModeBoth         Mode = "BOTH"
)

// ErrNoFulfillment marks a product that offers neither local delivery nor shipping.
var ErrNoFulfillment = errors.New("product offers neither local delivery nor shipping")

// ModeFor maps the two capability flags onto a mode. Every pair is defined;
// (false, false) degrades to SHIPPING_ONLY.
func ModeFor(local, ship bool) Mode {
	switch {
	case local && ship:
		return ModeBoth
	case local:
		return ModeLocalOnly
	default:
		return ModeShippingOnly
	}
}

// Resolve returns the fulfillment mode of p.
func Resolve(p domain.Product) Mode {
	return ModeFor(p.LocalDeliveryAvailable, p.ShippingAvailable)
}

// Validate flags products that no customer could ever receive. Read paths do
// not call it; Resolve still answers SHIPPING_ONLY for such products.
func Validate(p domain.Product) error {
	if !p.LocalDeliveryAvailable && !p.ShippingAvailable {
		return ErrNoFulfillment
	}
	return nil
}
