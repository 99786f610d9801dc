package cart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"localcart/internal/domain"
	"localcart/internal/fulfillment"
	cartrepo "localcart/internal/repository/cart"
)

// Service owns cart mutations. It assumes the caller already ran the
// eligibility gate for new lines.
type Service struct {
	repo        cartRepo
	productRepo productRepo
	logger      *log.Logger
}

type cartRepo interface {
	Create(ctx context.Context, in cartrepo.CreateCartInput) (*domain.Cart, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	GetActiveByCustomer(ctx context.Context, customerID string) (*domain.Cart, error)
	GetActiveByAnonymous(ctx context.Context, anonymousID string) (*domain.Cart, error)
	AssignCustomerToAnonymous(ctx context.Context, anonymousID, customerID string) (*domain.Cart, error)
	AddLineItem(ctx context.Context, cartID string, product domain.Product, quantity int, snapshot map[string]interface{}) error
	ChangeLineItemQuantity(ctx context.Context, cartID, lineItemID string, quantity int) error
	DeleteLineItem(ctx context.Context, cartID, lineItemID string) error
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

func New(repo cartrepo.Repository, productRepo productRepo, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, productRepo: productRepo, logger: logger}
}

type AddLineItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Active returns the requester's active cart or domain.ErrNotFound.
func (s *Service) Active(ctx context.Context, req domain.Requester) (*domain.Cart, error) {
	switch {
	case req.IsCustomer():
		return s.repo.GetActiveByCustomer(ctx, req.CustomerID)
	case req.AnonymousID != "":
		return s.repo.GetActiveByAnonymous(ctx, req.AnonymousID)
	default:
		return nil, domain.ErrNotFound
	}
}

// AddLineItem adds quantity of a product to the requester's active cart,
// creating the cart on first use.
func (s *Service) AddLineItem(ctx context.Context, req domain.Requester, in AddLineItemInput) (*domain.Cart, error) {
	productID := strings.TrimSpace(in.ProductID)
	if productID == "" {
		return nil, fmt.Errorf("%w: productId required", domain.ErrInvalidInput)
	}
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidInput)
	}
	if !req.HasIdentity() {
		return nil, fmt.Errorf("%w: a customer or guest token is required to hold a cart", domain.ErrInvalidInput)
	}
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	cart, err := s.ensureCart(ctx, req, product.Currency)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddLineItem(ctx, cart.ID, *product, in.Quantity, snapshotFromProduct(*product)); err != nil {
		s.logger.Printf("cart service: add line cart_id=%s product_id=%s error=%v", cart.ID, product.ID, err)
		return nil, err
	}
	return s.repo.GetByID(ctx, cart.ID)
}

// ChangeLineItemQuantity sets a line's quantity; zero removes the line.
func (s *Service) ChangeLineItemQuantity(ctx context.Context, req domain.Requester, lineItemID string, quantity int) (*domain.Cart, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", domain.ErrInvalidInput)
	}
	cart, err := s.Active(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ChangeLineItemQuantity(ctx, cart.ID, strings.TrimSpace(lineItemID), quantity); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cart.ID)
}

func (s *Service) RemoveLineItem(ctx context.Context, req domain.Requester, lineItemID string) (*domain.Cart, error) {
	cart, err := s.Active(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteLineItem(ctx, cart.ID, strings.TrimSpace(lineItemID)); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cart.ID)
}

// AssignCustomerFromAnonymous hands a guest cart to the customer who just
// signed in. A guest without a cart is not an error.
func (s *Service) AssignCustomerFromAnonymous(ctx context.Context, anonymousID, customerID string) (*domain.Cart, error) {
	if _, err := s.repo.GetActiveByCustomer(ctx, customerID); err == nil {
		// The customer's own cart wins; the guest cart stays with the guest.
		return nil, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	cart, err := s.repo.AssignCustomerToAnonymous(ctx, anonymousID, customerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return cart, err
}

func (s *Service) ensureCart(ctx context.Context, req domain.Requester, currency string) (*domain.Cart, error) {
	cart, err := s.Active(ctx, req)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	in := cartrepo.CreateCartInput{Currency: currency}
	if req.IsCustomer() {
		id := req.CustomerID
		in.CustomerID = &id
	} else {
		id := req.AnonymousID
		in.AnonymousID = &id
	}
	return s.repo.Create(ctx, in)
}

func snapshotFromProduct(p domain.Product) map[string]interface{} {
	slug := strings.TrimSpace(p.Key)
	if slug == "" {
		slug = strings.ReplaceAll(strings.ToLower(p.Name), " ", "-")
	}
	snap := map[string]interface{}{
		"productKey":      p.Key,
		"productName":     p.Name,
		"sku":             p.SKU,
		"productSlug":     slug,
		"priceCents":      p.PriceCents,
		"currency":        p.Currency,
		"fulfillmentMode": string(fulfillment.Resolve(p)),
	}
	if len(p.Attributes) > 0 {
		if images, ok := p.Attributes["images"]; ok {
			snap["images"] = images
		}
	}
	return snap
}
