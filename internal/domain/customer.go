package domain

import "time"

// CustomerAddress stores address fields returned to clients.
type CustomerAddress struct {
	ID         string `json:"id"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Country    string `json:"country,omitempty"`
	StreetName string `json:"streetName,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Email      string `json:"email,omitempty"`
}

// Customer represents a registered user.
type Customer struct {
	ID                       string            `json:"id"`
	Email                    string            `json:"email"`
	PasswordHash             string            `json:"-"`
	FirstName                string            `json:"firstName,omitempty"`
	LastName                 string            `json:"lastName,omitempty"`
	Addresses                []CustomerAddress `json:"addresses"`
	DefaultShippingAddressID string            `json:"defaultShippingAddressId,omitempty"`
	CreatedAt                time.Time         `json:"createdAt"`
}

// DefaultShippingAddress returns the saved default address, or nil when none is set
// or the id points at an address that no longer exists.
func (c Customer) DefaultShippingAddress() *CustomerAddress {
	if c.DefaultShippingAddressID == "" {
		return nil
	}
	for i := range c.Addresses {
		if c.Addresses[i].ID == c.DefaultShippingAddressID {
			addr := c.Addresses[i]
			return &addr
		}
	}
	return nil
}
