package eligibility

import (
	"context"
	"errors"
	"sync"
	"testing"

	"localcart/internal/availability"
	"localcart/internal/domain"
	"localcart/internal/events"
	"localcart/internal/locality"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProducts struct {
	products map[string]domain.Product
	err      error
}

func (s *stubProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

type stubCustomers struct {
	customers map[string]domain.Customer
	err       error
}

func (s *stubCustomers) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	if s.err != nil {
		return nil, s.err
	}
	c, ok := s.customers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

type stubOverrides struct {
	mu   sync.Mutex
	zips map[string]string
	err  error
}

func (s *stubOverrides) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	zip, ok := s.zips[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return zip, nil
}

func (s *stubOverrides) Set(_ context.Context, key, zip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zips[key] = zip
	return nil
}

func (s *stubOverrides) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.zips, key)
	return nil
}

type recordingPublisher struct {
	events []events.LocalityChanged
}

func (p *recordingPublisher) PublishLocalityChanged(_ context.Context, evt events.LocalityChanged) error {
	p.events = append(p.events, evt)
	return nil
}

func customerWithZIP(id, zip string) domain.Customer {
	return domain.Customer{
		ID:                       id,
		Addresses:                []domain.CustomerAddress{{ID: "a1", PostalCode: zip, City: "Ithaca", State: "NY"}},
		DefaultShippingAddressID: "a1",
	}
}

type fixture struct {
	svc       *Service
	products  *stubProducts
	customers *stubCustomers
	overrides *stubOverrides
	published *recordingPublisher
}

func newFixture() *fixture {
	f := &fixture{
		products: &stubProducts{products: map[string]domain.Product{
			"local": {ID: "local", LocalDeliveryAvailable: true},
			"both":  {ID: "both", LocalDeliveryAvailable: true, ShippingAvailable: true},
			"ship":  {ID: "ship", ShippingAvailable: true},
		}},
		customers: &stubCustomers{customers: map[string]domain.Customer{
			"c-local":  customerWithZIP("c-local", "14850"),
			"c-remote": customerWithZIP("c-remote", "10001"),
			"c-none":   {ID: "c-none"},
		}},
		overrides: &stubOverrides{zips: map[string]string{}},
		published: &recordingPublisher{},
	}
	evaluator := locality.NewEvaluator(locality.MustArea([]string{"14850", "14853"}))
	f.svc = New(evaluator, f.products, f.customers, f.overrides, f.published, nil, nil)
	return f
}

func TestCheckProduct_LocalOnlyWithoutLocalityIsBlocked(t *testing.T) {
	f := newFixture()
	d, err := f.svc.CheckProduct(context.Background(), domain.Requester{}, "local", Signals{})
	require.NoError(t, err)

	assert.Equal(t, availability.Blocked, d.Availability)
	assert.Equal(t, locality.ModeNone, d.LocalityMode)
	assert.Equal(t, locality.SourceNone, d.Status.Source)
	assert.Nil(t, d.Status.ZIPUsed)

	var blocked *BlockedError
	require.ErrorAs(t, d.Err(), &blocked)
	assert.Equal(t, "local", blocked.Decision.ProductID)
}

func TestCheckProduct_BothProductShipsToGuest(t *testing.T) {
	f := newFixture()
	d, err := f.svc.CheckProduct(context.Background(), domain.Requester{AnonymousID: "g1"}, "both", Signals{})
	require.NoError(t, err)
	assert.Equal(t, availability.ShippingOnly, d.Availability)
	assert.NoError(t, d.Err())
}

func TestCheckProduct_LocalDefaultAddressAllowsLocalOnly(t *testing.T) {
	f := newFixture()
	d, err := f.svc.CheckProduct(context.Background(), domain.Requester{CustomerID: "c-local"}, "local", Signals{})
	require.NoError(t, err)
	assert.Equal(t, availability.AddAllowed, d.Availability)
	assert.Equal(t, locality.SourceDefaultAddress, d.Status.Source)
	assert.Equal(t, "Ithaca", d.Status.City)
}

func TestCheckProduct_DefaultAddressBeatsOverrideAndIP(t *testing.T) {
	f := newFixture()
	f.overrides.zips["customer:c-remote"] = "14850"
	d, err := f.svc.CheckProduct(context.Background(), domain.Requester{CustomerID: "c-remote"}, "local", Signals{IPPostal: "14853"})
	require.NoError(t, err)
	assert.Equal(t, availability.Blocked, d.Availability)
	assert.Equal(t, locality.SourceDefaultAddress, d.Status.Source)
	assert.Equal(t, locality.ReasonZIPNotLocal, d.Status.Reason)
}

func TestCheckProduct_TransientOverrideBeatsStoredOverride(t *testing.T) {
	f := newFixture()
	f.overrides.zips["anonymous:g1"] = "10001"
	d, err := f.svc.CheckProduct(context.Background(), domain.Requester{AnonymousID: "g1"}, "local", Signals{ZIPOverride: "zip 14853"})
	require.NoError(t, err)
	assert.Equal(t, availability.AddAllowed, d.Availability)
	assert.Equal(t, "14853", d.Status.ZIP())
}

func TestCheckProduct_IPFallback(t *testing.T) {
	f := newFixture()
	d, err := f.svc.CheckProduct(context.Background(), domain.Requester{CustomerID: "c-none"}, "local", Signals{IPPostal: "14850"})
	require.NoError(t, err)
	assert.Equal(t, availability.AddAllowed, d.Availability)
	assert.Equal(t, locality.SourceIP, d.Status.Source)
}

func TestCheckProduct_ProductErrors(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CheckProduct(context.Background(), domain.Requester{}, "missing", Signals{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	f.products.err = errors.New("connection refused")
	_, err = f.svc.CheckProduct(context.Background(), domain.Requester{}, "local", Signals{})
	assert.ErrorIs(t, err, ErrLookupFailed)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckProduct_AddressFailureFailsSafe(t *testing.T) {
	f := newFixture()
	f.customers.err = errors.New("timeout")
	d, err := f.svc.CheckProduct(context.Background(), domain.Requester{CustomerID: "c-local"}, "local", Signals{})
	require.NoError(t, err)
	assert.Equal(t, availability.Blocked, d.Availability)
	assert.ErrorIs(t, d.LookupErr, ErrLookupFailed)
}

func TestStatus_ReportsDegradedOverrideRead(t *testing.T) {
	f := newFixture()
	f.overrides.err = errors.New("redis down")
	st, err := f.svc.Status(context.Background(), domain.Requester{AnonymousID: "g1"}, Signals{IPPostal: "14850"})
	assert.ErrorIs(t, err, ErrLookupFailed)
	assert.True(t, st.Eligible)
	assert.Equal(t, locality.SourceIP, st.Source)
}

func TestSetOverride(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	guest := domain.Requester{AnonymousID: "g1"}

	_, err := f.svc.SetOverride(ctx, guest, "abc", Signals{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.SetOverride(ctx, domain.Requester{}, "14850", Signals{})
	assert.ErrorIs(t, err, ErrNoIdentity)

	st, err := f.svc.SetOverride(ctx, guest, "14853-0001", Signals{})
	require.NoError(t, err)
	assert.True(t, st.Eligible)
	assert.Equal(t, locality.SourceZIPOverride, st.Source)
	assert.Equal(t, "14853", f.overrides.zips["anonymous:g1"])
	require.Len(t, f.published.events, 1)
	assert.Equal(t, events.KindOverrideSet, f.published.events[0].Kind)

	require.NoError(t, f.svc.ClearOverride(ctx, guest))
	assert.Empty(t, f.overrides.zips)
	require.Len(t, f.published.events, 2)
	assert.Equal(t, events.KindOverrideCleared, f.published.events[1].Kind)
}

func TestRequireLocal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.overrides.zips["customer:c-remote"] = "14850"

	st, err := f.svc.RequireLocal(ctx, "c-local")
	require.NoError(t, err)
	assert.True(t, st.Eligible)

	st, err = f.svc.RequireLocal(ctx, "c-remote")
	require.NoError(t, err)
	assert.False(t, st.Eligible)

	st, err = f.svc.RequireLocal(ctx, "c-none")
	require.NoError(t, err)
	assert.Equal(t, locality.ReasonNoDefaultAddress, st.Reason)

	f.customers.err = errors.New("db down")
	_, err = f.svc.RequireLocal(ctx, "c-local")
	assert.ErrorIs(t, err, ErrLookupFailed)
}
