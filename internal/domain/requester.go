package domain

// Requester identifies who is acting on a cart: a signed-in customer, a guest
// holding an anonymous token, or nobody at all.
type Requester struct {
	CustomerID  string
	AnonymousID string
}

// IsCustomer reports whether the requester is a signed-in customer.
func (r Requester) IsCustomer() bool {
	return r.CustomerID != ""
}

// HasIdentity reports whether anything can be keyed on this requester.
func (r Requester) HasIdentity() bool {
	return r.CustomerID != "" || r.AnonymousID != ""
}

// Key returns a stable storage key for per-requester state.
func (r Requester) Key() string {
	switch {
	case r.CustomerID != "":
		return "customer:" + r.CustomerID
	case r.AnonymousID != "":
		return "anonymous:" + r.AnonymousID
	default:
		return ""
	}
}

// Label is what support sees in logs.
func (r Requester) Label() string {
	if r.CustomerID != "" {
		return r.CustomerID
	}
	return "guest"
}
