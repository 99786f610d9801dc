package fulfillment

import (
	"strconv"
	"strings"

	"localcart/internal/domain"
)

// Attribute keys accepted for the capability flags. Older exports used
// snake_case, newer ones camelCase.
var (
	localDeliveryKeys = []string{"isLocalDeliveryAvailable", "is_local_delivery_available"}
	shippingKeys      = []string{"isShippingAvailable", "is_shipping_available"}
)

// Flags is the canonical pair read from a loosely typed source.
type Flags struct {
	LocalDelivery    bool
	Shipping         bool
	HasLocalDelivery bool
	HasShipping      bool
}

// FlagsFromAttributes reads the capability flags from an attribute bag or a
// CSV row keyed by header. It is the only place both spellings are accepted.
func FlagsFromAttributes(attrs map[string]interface{}) Flags {
	var f Flags
	f.LocalDelivery, f.HasLocalDelivery = lookupBool(attrs, localDeliveryKeys)
	f.Shipping, f.HasShipping = lookupBool(attrs, shippingKeys)
	return f
}

// StripFlagAttributes removes flag keys so they are not stored twice once
// folded into the canonical columns.
func StripFlagAttributes(attrs map[string]interface{}) {
	for _, k := range localDeliveryKeys {
		delete(attrs, k)
	}
	for _, k := range shippingKeys {
		delete(attrs, k)
	}
}

// ApplyAttributeFlags folds legacy flag attributes of p into its canonical
// fields and returns a copy of the attribute bag without them. Stores call it
// on write so nothing downstream ever reads flags from attributes.
func ApplyAttributeFlags(p *domain.Product) map[string]interface{} {
	attrs := make(map[string]interface{}, len(p.Attributes))
	for k, v := range p.Attributes {
		attrs[k] = v
	}
	flags := FlagsFromAttributes(attrs)
	if flags.HasLocalDelivery {
		p.LocalDeliveryAvailable = flags.LocalDelivery
	}
	if flags.HasShipping {
		p.ShippingAvailable = flags.Shipping
	}
	StripFlagAttributes(attrs)
	return attrs
}

func lookupBool(attrs map[string]interface{}, keys []string) (bool, bool) {
	for _, k := range keys {
		raw, ok := attrs[k]
		if !ok || raw == nil {
			continue
		}
		if v, ok := parseBool(raw); ok {
			return v, true
		}
	}
	return false, false
}

func parseBool(raw interface{}) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return false, false
		}
		switch strings.ToLower(s) {
		case "yes", "y":
			return true, true
		case "no", "n":
			return false, true
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return false, false
		}
		return b, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		return v != 0, true
	default:
		return false, false
	}
}
