package availability

import (
	"localcart/internal/fulfillment"
	"localcart/internal/locality"
)

// ReasonFor explains an availability outcome to a shopper.
func ReasonFor(product fulfillment.Mode, customer locality.Mode, a Availability) string {
	switch a {
	case AddAllowed:
		if product == fulfillment.ModeLocalOnly {
			return "Available for local pickup or delivery in your area."
		}
		return "Available for local pickup, local delivery, or shipping."
	case PickupOnly:
		return "Available for local pickup or delivery."
	case ShippingOnly:
		switch {
		case product == fulfillment.ModeShippingOnly:
			return "Ships to your address."
		case customer == locality.ModeNone:
			return "Available for shipping. Enter your ZIP code to check local pickup."
		default:
			return "Ships to your address. Local pickup is not offered in your area."
		}
	case Blocked:
		if customer == locality.ModeNone {
			return "This item is only available for local pickup or delivery, and we could not determine your location."
		}
		return "This item is only available for local pickup or delivery, which is not offered in your area."
	default:
		return "Availability could not be determined."
	}
}

// ResolutionFor tells a blocked shopper what would change the outcome.
func ResolutionFor(customer locality.Mode) string {
	if customer == locality.ModeNone {
		return "Add a default shipping address inside the local service area, or enter your ZIP code to check eligibility."
	}
	return "Remove this item or choose a product that ships. Local pickup and delivery are limited to the local service area."
}
