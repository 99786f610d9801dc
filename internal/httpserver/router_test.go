package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"localcart/internal/domain"
	"localcart/internal/eligibility"
	"localcart/internal/locality"
	"localcart/internal/reconcile"
	"localcart/internal/repository/override"
	anonymoussvc "localcart/internal/service/anonymous"
	cartsvc "localcart/internal/service/cart"
	customersvc "localcart/internal/service/customer"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func logDiscard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type stubProductReader struct {
	products map[string]domain.Product
	err      error
}

func (s *stubProductReader) GetByID(_ context.Context, id string) (*domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *stubProductReader) List(_ context.Context) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, s.err
}

func (s *stubProductReader) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.GetByID(ctx, id)
}

type stubCustomerSvc struct {
	byToken  map[string]*domain.Customer
	customer *domain.Customer
	loginErr error
	signErr  error
	getErr   error
}

func (s *stubCustomerSvc) Signup(_ context.Context, _ customersvc.SignupInput) (*domain.Customer, error) {
	return s.customer, s.signErr
}

func (s *stubCustomerSvc) Login(_ context.Context, _ string, _ string) (*domain.Customer, string, string, error) {
	return s.customer, "access", "refresh", s.loginErr
}

func (s *stubCustomerSvc) LookupByToken(_ context.Context, token string) (*domain.Customer, error) {
	if c, ok := s.byToken[token]; ok {
		return c, nil
	}
	return nil, customersvc.ErrInvalidToken
}

func (s *stubCustomerSvc) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	for _, c := range s.byToken {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubCustomerSvc) AddAddress(_ context.Context, _ string, _ customersvc.AddressInput, _ bool) (*domain.Customer, error) {
	return s.customer, nil
}

func (s *stubCustomerSvc) SetDefaultShippingAddress(_ context.Context, _ string, addressID string) (*domain.Customer, error) {
	if addressID == "missing" {
		return nil, domain.ErrNotFound
	}
	return s.customer, nil
}

func (s *stubCustomerSvc) AccessTTLSeconds() int { return 3600 }

type stubAnonymousSvc struct {
	byToken map[string]string
}

func (s *stubAnonymousSvc) Issue(_ context.Context) (string, string, error) {
	return "guest-token", "anon-1", nil
}

func (s *stubAnonymousSvc) LookupByToken(_ context.Context, token string) (string, error) {
	if id, ok := s.byToken[token]; ok {
		return id, nil
	}
	return "", anonymoussvc.ErrInvalidToken
}

func (s *stubAnonymousSvc) AccessTTLSeconds() int { return 3600 }

type stubCartSvc struct {
	added    []cartsvc.AddLineItemInput
	assigned []string
	cart     *domain.Cart
}

func (s *stubCartSvc) Active(_ context.Context, _ domain.Requester) (*domain.Cart, error) {
	if s.cart == nil {
		return nil, domain.ErrNotFound
	}
	return s.cart, nil
}

func (s *stubCartSvc) AddLineItem(_ context.Context, _ domain.Requester, in cartsvc.AddLineItemInput) (*domain.Cart, error) {
	s.added = append(s.added, in)
	return &domain.Cart{ID: "cart-1", Currency: "USD", Lines: []domain.CartLine{{
		ID:        "line-1",
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		Snapshot:  map[string]interface{}{"productName": "Item", "fulfillmentMode": "LOCAL_ONLY"},
	}}}, nil
}

func (s *stubCartSvc) ChangeLineItemQuantity(_ context.Context, _ domain.Requester, _ string, _ int) (*domain.Cart, error) {
	return &domain.Cart{ID: "cart-1"}, nil
}

func (s *stubCartSvc) RemoveLineItem(_ context.Context, _ domain.Requester, _ string) (*domain.Cart, error) {
	return &domain.Cart{ID: "cart-1"}, nil
}

func (s *stubCartSvc) AssignCustomerFromAnonymous(_ context.Context, anonymousID, customerID string) (*domain.Cart, error) {
	s.assigned = append(s.assigned, anonymousID+"->"+customerID)
	return &domain.Cart{ID: "cart-guest", CustomerID: &customerID, Lines: []domain.CartLine{{
		ID:        "line-held",
		ProductID: "local-1",
		Quantity:  1,
		Snapshot:  map[string]interface{}{"productName": "Fresh Bread", "fulfillmentMode": "LOCAL_ONLY"},
	}}}, nil
}

type stubReconciler struct {
	calls    []domain.Requester
	signals  []eligibility.Signals
	triggers []string
	res      reconcile.Result
	err      error
}

func (s *stubReconciler) Purge(_ context.Context, req domain.Requester, in eligibility.Signals, trigger string) (reconcile.Result, error) {
	s.calls = append(s.calls, req)
	s.signals = append(s.signals, in)
	s.triggers = append(s.triggers, trigger)
	return s.res, s.err
}

// testEnv wires the real eligibility pipeline over stub stores.
type testEnv struct {
	products   *stubProductReader
	customers  *stubCustomerSvc
	guests     *stubAnonymousSvc
	carts      *stubCartSvc
	reconciler *stubReconciler
	overrides  override.Repository
	router     *gin.Engine
}

const (
	localZIP   = "14850"
	distantZIP = "10001"
)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		products: &stubProductReader{products: map[string]domain.Product{
			"local-1": {ID: "local-1", Name: "Fresh Bread", Currency: "USD", LocalDeliveryAvailable: true},
			"both-1":  {ID: "both-1", Name: "Coffee", Currency: "USD", LocalDeliveryAvailable: true, ShippingAvailable: true},
			"ship-1":  {ID: "ship-1", Name: "Mug", Currency: "USD", ShippingAvailable: true},
		}},
		customers: &stubCustomerSvc{byToken: map[string]*domain.Customer{
			"tok-local":   customerWithZIP("cust-local", localZIP),
			"tok-distant": customerWithZIP("cust-distant", distantZIP),
			"tok-noaddr":  {ID: "cust-noaddr", Email: "noaddr@example.com"},
		}},
		guests:     &stubAnonymousSvc{byToken: map[string]string{"tok-guest": "anon-1"}},
		carts:      &stubCartSvc{},
		reconciler: &stubReconciler{},
		overrides:  override.NewMemory(time.Hour),
	}
	env.router = env.build(t)
	return env
}

func (e *testEnv) build(t *testing.T) *gin.Engine {
	t.Helper()
	evaluator := locality.NewEvaluator(locality.MustArea(locality.DefaultPostalCodes))
	elig := eligibility.New(evaluator, e.products, e.customers, e.overrides, nil, nil, logDiscard())
	router, err := buildRouter(logDiscard(), nil, Deps{
		ProductSvc:     e.products,
		CartSvc:        e.carts,
		CustomerSvc:    e.customers,
		AnonymousSvc:   e.guests,
		EligibilitySvc: elig,
		Reconciler:     e.reconciler,
		Gatherer:       prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return router
}

func (e *testEnv) do(method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func customerWithZIP(id, zip string) *domain.Customer {
	return &domain.Customer{
		ID:                       id,
		Email:                    id + "@example.com",
		Addresses:                []domain.CustomerAddress{{ID: "addr-1", PostalCode: zip}},
		DefaultShippingAddressID: "addr-1",
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestBuildRouter_RequiresServices(t *testing.T) {
	if _, err := buildRouter(logDiscard(), nil, Deps{}); err == nil {
		t.Fatalf("expected error for missing services")
	}
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rec.Code)
	}
	if rec := env.do(http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz without db: expected 503, got %d", rec.Code)
	}
	if rec := env.do(http.MethodGet, "/metrics", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
}

func TestReadyHandler_UsesPinger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/readyz", readyHandler(PingFunc(func(context.Context) error { return nil })))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequesterMiddleware_InvalidToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/locality/status", "nope", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["code"]; got != "INVALID_TOKEN" {
		t.Fatalf("expected INVALID_TOKEN, got %v", got)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":             "",
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"Bearer":       "",
		"BEARER tok-1": "tok-1",
	}
	for header, want := range cases {
		if got := bearerToken(header); got != want {
			t.Fatalf("bearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
