package customer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"localcart/internal/domain"
	"localcart/internal/events"
	custrepo "localcart/internal/repository/customer"
	tokenrepo "localcart/internal/repository/token"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates the provided token could not be validated.
	ErrInvalidToken = errors.New("invalid token")
)

// Service handles customer accounts and their saved addresses. Changing the
// default shipping address changes the customer's locality, so it publishes
// a locality-changed event.
type Service struct {
	repo        custrepo.Repository
	tokens      *tokenManager
	publisher   events.Publisher
	logger      *log.Logger
	accessTTL   time.Duration
	refreshTTL  time.Duration
	passwordMin int
}

// New creates a Service with sane defaults.
func New(repo custrepo.Repository, tokens tokenrepo.Repository, publisher events.Publisher, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		repo:        repo,
		tokens:      newTokenManager(tokens),
		publisher:   publisher,
		logger:      logger,
		accessTTL:   48 * time.Hour,
		refreshTTL:  30 * 24 * time.Hour,
		passwordMin: 8,
	}
}

// AddressInput mirrors incoming address payloads.
type AddressInput struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Country    string `json:"country"`
	StreetName string `json:"streetName"`
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
	State      string `json:"state"`
	Email      string `json:"email"`
}

func (a AddressInput) toDomain() domain.CustomerAddress {
	return domain.CustomerAddress{
		ID:         uuid.NewString(),
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Country:    a.Country,
		StreetName: a.StreetName,
		PostalCode: strings.TrimSpace(a.PostalCode),
		City:       a.City,
		State:      a.State,
		Email:      a.Email,
	}
}

// SignupInput captures fields expected by the signup endpoint.
type SignupInput struct {
	Email                  string         `json:"email"`
	Password               string         `json:"password"`
	FirstName              string         `json:"firstName"`
	LastName               string         `json:"lastName"`
	Addresses              []AddressInput `json:"addresses"`
	DefaultShippingAddress *int           `json:"defaultShippingAddress"`
}

// Signup registers a new customer. The first address becomes the default
// shipping address unless another index is given.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*domain.Customer, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email required", domain.ErrInvalidInput)
	}
	password := strings.TrimSpace(in.Password)
	if err := validatePassword(password, s.passwordMin); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	addresses := make([]domain.CustomerAddress, 0, len(in.Addresses))
	for _, a := range in.Addresses {
		addresses = append(addresses, a.toDomain())
	}

	shippingID := addressIDFromIndex(addresses, in.DefaultShippingAddress)
	if shippingID == "" && len(addresses) > 0 {
		shippingID = addresses[0].ID
	}

	c, err := s.repo.Create(ctx, domain.Customer{
		Email:                    email,
		PasswordHash:             string(hashed),
		FirstName:                in.FirstName,
		LastName:                 in.LastName,
		Addresses:                addresses,
		DefaultShippingAddressID: shippingID,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("customer service: signup id=%s addresses=%d", c.ID, len(c.Addresses))
	return c, nil
}

// Login validates credentials and returns issued tokens plus the customer.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.Customer, string, string, error) {
	password = strings.TrimSpace(password)
	c, err := s.repo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", "", ErrInvalidCredentials
		}
		return nil, "", "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return nil, "", "", ErrInvalidCredentials
	}

	access, err := s.tokens.Issue(ctx, c.ID, tokenrepo.KindAccess, s.accessTTL)
	if err != nil {
		return nil, "", "", err
	}
	refresh, err := s.tokens.Issue(ctx, c.ID, tokenrepo.KindRefresh, s.refreshTTL)
	if err != nil {
		return nil, "", "", err
	}
	return c, access, refresh, nil
}

// LookupByToken returns the customer bound to a valid access token.
func (s *Service) LookupByToken(ctx context.Context, token string) (*domain.Customer, error) {
	meta, ok := s.tokens.Validate(ctx, token)
	if !ok {
		return nil, ErrInvalidToken
	}
	c, err := s.repo.GetByID(ctx, meta.CustomerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Customer, error) {
	return s.repo.GetByID(ctx, id)
}

// AddAddress appends an address. It becomes the default shipping address when
// makeDefault is set or when it is the customer's first address.
func (s *Service) AddAddress(ctx context.Context, customerID string, in AddressInput, makeDefault bool) (*domain.Customer, error) {
	c, err := s.repo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	addr := in.toDomain()
	addresses := append(append([]domain.CustomerAddress(nil), c.Addresses...), addr)
	defaultID := c.DefaultShippingAddressID
	if makeDefault || c.DefaultShippingAddress() == nil {
		defaultID = addr.ID
	}
	return s.saveAddresses(ctx, c, addresses, defaultID)
}

// SetDefaultShippingAddress points the default at one of the saved addresses.
func (s *Service) SetDefaultShippingAddress(ctx context.Context, customerID, addressID string) (*domain.Customer, error) {
	c, err := s.repo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	addressID = strings.TrimSpace(addressID)
	found := false
	for _, a := range c.Addresses {
		if a.ID == addressID {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("address %s: %w", addressID, domain.ErrNotFound)
	}
	if c.DefaultShippingAddressID == addressID {
		return c, nil
	}
	return s.saveAddresses(ctx, c, c.Addresses, addressID)
}

func (s *Service) saveAddresses(ctx context.Context, before *domain.Customer, addresses []domain.CustomerAddress, defaultID string) (*domain.Customer, error) {
	prevZIP := defaultPostalCode(before)
	after, err := s.repo.UpdateAddresses(ctx, before.ID, addresses, defaultID)
	if err != nil {
		return nil, err
	}
	if before.DefaultShippingAddressID != after.DefaultShippingAddressID || prevZIP != defaultPostalCode(after) {
		evt := events.NewLocalityChanged(events.KindDefaultAddressChanged, domain.Requester{CustomerID: after.ID}, defaultPostalCode(after))
		if err := s.publisher.PublishLocalityChanged(ctx, evt); err != nil {
			s.logger.Printf("customer service: publish locality change id=%s error=%v", after.ID, err)
		}
	}
	return after, nil
}

// AccessTTLSeconds exposes the access token lifetime in seconds.
func (s *Service) AccessTTLSeconds() int {
	return int(s.accessTTL.Seconds())
}

func defaultPostalCode(c *domain.Customer) string {
	if addr := c.DefaultShippingAddress(); addr != nil {
		return addr.PostalCode
	}
	return ""
}

func addressIDFromIndex(addresses []domain.CustomerAddress, idx *int) string {
	if idx == nil {
		return ""
	}
	if *idx < 0 || *idx >= len(addresses) {
		return ""
	}
	return addresses[*idx].ID
}

func validatePassword(p string, min int) error {
	trimmed := strings.TrimSpace(p)
	if len(trimmed) < min {
		return fmt.Errorf("password must be at least %d characters", min)
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range trimmed {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("password must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number")
	}
	return nil
}
