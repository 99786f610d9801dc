package cart

import (
	"context"
	"errors"
	"testing"

	"localcart/internal/domain"
	cartrepo "localcart/internal/repository/cart"
)

type stubRepo struct {
	createCalls       int
	lastCreate        cartrepo.CreateCartInput
	createErr         error
	getByIDResult     *domain.Cart
	getByIDErr        error
	activeCart        *domain.Cart
	activeErr         error
	assignCart        *domain.Cart
	assignErr         error
	addLineItemErr    error
	changeLineItemErr error
	deleteLineItemErr error
	lastAddCartID     string
	lastAddProduct    domain.Product
	lastAddQty        int
	lastAddSnapshot   map[string]interface{}
	lastChangeCartID  string
	lastChangeLineID  string
	lastChangeQty     int
	lastDeleteLineID  string
}

func (s *stubRepo) Create(_ context.Context, in cartrepo.CreateCartInput) (*domain.Cart, error) {
	s.createCalls++
	s.lastCreate = in
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &domain.Cart{ID: "new-cart", CustomerID: in.CustomerID, AnonymousID: in.AnonymousID, Currency: in.Currency}, nil
}

func (s *stubRepo) GetByID(_ context.Context, id string) (*domain.Cart, error) {
	if s.getByIDErr != nil {
		return nil, s.getByIDErr
	}
	if s.getByIDResult != nil {
		return s.getByIDResult, nil
	}
	return &domain.Cart{ID: id}, nil
}

func (s *stubRepo) GetActiveByCustomer(_ context.Context, _ string) (*domain.Cart, error) {
	return s.activeCart, s.activeErr
}

func (s *stubRepo) GetActiveByAnonymous(_ context.Context, _ string) (*domain.Cart, error) {
	return s.activeCart, s.activeErr
}

func (s *stubRepo) AssignCustomerToAnonymous(_ context.Context, _, _ string) (*domain.Cart, error) {
	return s.assignCart, s.assignErr
}

func (s *stubRepo) AddLineItem(_ context.Context, cartID string, product domain.Product, quantity int, snapshot map[string]interface{}) error {
	s.lastAddCartID = cartID
	s.lastAddProduct = product
	s.lastAddQty = quantity
	s.lastAddSnapshot = snapshot
	return s.addLineItemErr
}

func (s *stubRepo) ChangeLineItemQuantity(_ context.Context, cartID, lineItemID string, quantity int) error {
	s.lastChangeCartID = cartID
	s.lastChangeLineID = lineItemID
	s.lastChangeQty = quantity
	return s.changeLineItemErr
}

func (s *stubRepo) DeleteLineItem(_ context.Context, _, lineItemID string) error {
	s.lastDeleteLineID = lineItemID
	return s.deleteLineItemErr
}

func (s *stubRepo) ListLinesWithProducts(_ context.Context, _ string) ([]domain.CartLineProduct, error) {
	return nil, nil
}

type stubProductRepo struct {
	product *domain.Product
	err     error
	lastID  string
}

func (s *stubProductRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	s.lastID = id
	return s.product, s.err
}

var guest = domain.Requester{AnonymousID: "anon-1"}

func TestServiceAddLineItemValidation(t *testing.T) {
	svc := New(&stubRepo{}, &stubProductRepo{}, nil)

	cases := []struct {
		name string
		req  domain.Requester
		in   AddLineItemInput
	}{
		{"missing product", guest, AddLineItemInput{ProductID: " ", Quantity: 1}},
		{"zero quantity", guest, AddLineItemInput{ProductID: "p1", Quantity: 0}},
		{"no identity", domain.Requester{}, AddLineItemInput{ProductID: "p1", Quantity: 1}},
	}
	for _, tc := range cases {
		if _, err := svc.AddLineItem(context.Background(), tc.req, tc.in); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("%s: expected invalid input, got %v", tc.name, err)
		}
	}
}

func TestServiceAddLineItemProductNotFound(t *testing.T) {
	svc := New(&stubRepo{}, &stubProductRepo{err: domain.ErrNotFound}, nil)
	_, err := svc.AddLineItem(context.Background(), guest, AddLineItemInput{ProductID: "p1", Quantity: 1})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceAddLineItemCreatesCart(t *testing.T) {
	repo := &stubRepo{activeErr: domain.ErrNotFound}
	product := &domain.Product{ID: "p1", Key: "bread", Name: "Bread", PriceCents: 300, Currency: "USD", LocalDeliveryAvailable: true}
	svc := New(repo, &stubProductRepo{product: product}, nil)

	got, err := svc.AddLineItem(context.Background(), guest, AddLineItemInput{ProductID: "p1", Quantity: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "new-cart" {
		t.Fatalf("unexpected cart: %+v", got)
	}
	if repo.createCalls != 1 || repo.lastCreate.AnonymousID == nil || *repo.lastCreate.AnonymousID != "anon-1" || repo.lastCreate.Currency != "USD" {
		t.Fatalf("unexpected create input: %+v", repo.lastCreate)
	}
	if repo.lastAddCartID != "new-cart" || repo.lastAddQty != 2 || repo.lastAddProduct.ID != "p1" {
		t.Fatalf("add line item not called as expected")
	}
	if repo.lastAddSnapshot["fulfillmentMode"] != "LOCAL_ONLY" {
		t.Fatalf("unexpected snapshot: %+v", repo.lastAddSnapshot)
	}
}

func TestServiceAddLineItemReusesActiveCart(t *testing.T) {
	repo := &stubRepo{activeCart: &domain.Cart{ID: "cart-1"}}
	product := &domain.Product{ID: "p1", Currency: "USD"}
	svc := New(repo, &stubProductRepo{product: product}, nil)

	if _, err := svc.AddLineItem(context.Background(), domain.Requester{CustomerID: "c1"}, AddLineItemInput{ProductID: "p1", Quantity: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.createCalls != 0 || repo.lastAddCartID != "cart-1" {
		t.Fatalf("expected existing cart to be used, creates=%d cart=%s", repo.createCalls, repo.lastAddCartID)
	}
}

func TestServiceAddLineItemRepoError(t *testing.T) {
	repo := &stubRepo{activeCart: &domain.Cart{ID: "cart-1"}, addLineItemErr: errors.New("add failed")}
	svc := New(repo, &stubProductRepo{product: &domain.Product{ID: "p1"}}, nil)
	_, err := svc.AddLineItem(context.Background(), guest, AddLineItemInput{ProductID: "p1", Quantity: 1})
	if err == nil || err.Error() != "add failed" {
		t.Fatalf("expected repo error, got %v", err)
	}
}

func TestServiceChangeLineItemQuantity(t *testing.T) {
	repo := &stubRepo{activeCart: &domain.Cart{ID: "cart-1"}}
	svc := New(repo, &stubProductRepo{}, nil)

	if _, err := svc.ChangeLineItemQuantity(context.Background(), guest, "line", -1); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := svc.ChangeLineItemQuantity(context.Background(), guest, " line ", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastChangeCartID != "cart-1" || repo.lastChangeLineID != "line" || repo.lastChangeQty != 3 {
		t.Fatalf("change line item not called as expected")
	}
}

func TestServiceRemoveLineItemWithoutCart(t *testing.T) {
	svc := New(&stubRepo{activeErr: domain.ErrNotFound}, &stubProductRepo{}, nil)
	if _, err := svc.RemoveLineItem(context.Background(), guest, "line"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceAssignCustomerFromAnonymous(t *testing.T) {
	repo := &stubRepo{activeErr: domain.ErrNotFound, assignCart: &domain.Cart{ID: "cart-1"}}
	svc := New(repo, &stubProductRepo{}, nil)
	got, err := svc.AssignCustomerFromAnonymous(context.Background(), "anon-1", "c1")
	if err != nil || got == nil || got.ID != "cart-1" {
		t.Fatalf("unexpected result %+v err=%v", got, err)
	}

	repo = &stubRepo{activeCart: &domain.Cart{ID: "own"}}
	svc = New(repo, &stubProductRepo{}, nil)
	got, err = svc.AssignCustomerFromAnonymous(context.Background(), "anon-1", "c1")
	if err != nil || got != nil {
		t.Fatalf("expected customer cart to win, got %+v err=%v", got, err)
	}
}
