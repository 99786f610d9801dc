// Package availability intersects a product's fulfillment mode with a
// customer's locality mode. Everything here is pure: no I/O, no clock, no state.
package availability

import (
	"localcart/internal/domain"
	"localcart/internal/fulfillment"
	"localcart/internal/locality"
)

// Availability is the only value cart and display code should act on.
type Availability string

const (
	AddAllowed   Availability = "ADD_ALLOWED"
	PickupOnly   Availability = "PICKUP_ONLY"
	ShippingOnly Availability = "SHIPPING_ONLY"
	Blocked      Availability = "BLOCKED"
)

// matrix rows are product modes, columns customer modes.
//
// A customer with no locality signal can still buy a BOTH product as a
// shipment; only LOCAL_ONLY products need a resolved local address.
var matrix = map[fulfillment.Mode]map[locality.Mode]Availability{
	fulfillment.ModeLocalOnly: {
		locality.ModeLocalOnly:        AddAllowed,
		locality.ModeShippingOnly:     Blocked,
		locality.ModeLocalAndShipping: AddAllowed,
		locality.ModeNone:             Blocked,
	},
	fulfillment.ModeBoth: {
		locality.ModeLocalOnly:        PickupOnly,
		locality.ModeShippingOnly:     ShippingOnly,
		locality.ModeLocalAndShipping: AddAllowed,
		locality.ModeNone:             ShippingOnly,
	},
	fulfillment.ModeShippingOnly: {
		locality.ModeLocalOnly:        ShippingOnly,
		locality.ModeShippingOnly:     ShippingOnly,
		locality.ModeLocalAndShipping: ShippingOnly,
		locality.ModeNone:             ShippingOnly,
	},
}

// Compute looks up the effective availability. Modes outside the table are blocked.
func Compute(product fulfillment.Mode, customer locality.Mode) Availability {
	row, ok := matrix[product]
	if !ok {
		return Blocked
	}
	a, ok := row[customer]
	if !ok {
		return Blocked
	}
	return a
}

// Decision bundles the inputs and outputs of one availability check.
type Decision struct {
	ProductID    string           `json:"productId"`
	ProductMode  fulfillment.Mode `json:"productMode"`
	LocalityMode locality.Mode    `json:"localityMode"`
	Availability Availability     `json:"availability"`
	Reason       string           `json:"reason"`
	Status       locality.Status  `json:"localityStatus"`
}

// Decide runs resolver and matrix for one product against an evaluated status.
func Decide(p domain.Product, status locality.Status) Decision {
	productMode := fulfillment.Resolve(p)
	customerMode := status.Mode()
	a := Compute(productMode, customerMode)
	return Decision{
		ProductID:    p.ID,
		ProductMode:  productMode,
		LocalityMode: customerMode,
		Availability: a,
		Reason:       ReasonFor(productMode, customerMode, a),
		Status:       status,
	}
}

// Allowed reports whether a cart may hold the product.
func (d Decision) Allowed() bool {
	return d.Availability != Blocked
}
