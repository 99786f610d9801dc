// Package eligibility runs the locality pipeline for one requester: gather
// signals, evaluate locality, resolve the product mode, intersect the two.
package eligibility

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"localcart/internal/availability"
	"localcart/internal/domain"
	"localcart/internal/events"
	"localcart/internal/locality"
	"localcart/internal/metrics"

	"golang.org/x/sync/errgroup"
)

const lookupTimeout = 3 * time.Second

type productReader interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type customerReader interface {
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
}

type overrideStore interface {
	Get(ctx context.Context, requesterKey string) (string, error)
	Set(ctx context.Context, requesterKey, zip string) error
	Delete(ctx context.Context, requesterKey string) error
}

// Signals are the per-request inputs that are not stored anywhere.
type Signals struct {
	// ZIPOverride is a transient override (?zip=) that beats a stored one.
	ZIPOverride string
	// IPPostal is the coarse postal code the edge derived from the client IP.
	IPPostal string
}

// Decision is an availability decision plus who it was made for.
type Decision struct {
	availability.Decision
	Requester domain.Requester `json:"-"`
	// LookupErr is set when a locality signal could not be loaded and the
	// decision fell back to treating it as absent.
	LookupErr error `json:"-"`
}

// Err returns a *BlockedError when the decision forbids the cart line.
func (d *Decision) Err() error {
	if d.Allowed() {
		return nil
	}
	return &BlockedError{Decision: d}
}

type Service struct {
	evaluator *locality.Evaluator
	products  productReader
	customers customerReader
	overrides overrideStore
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *log.Logger
}

func New(evaluator *locality.Evaluator, products productReader, customers customerReader, overrides overrideStore, publisher events.Publisher, m *metrics.Metrics, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		evaluator: evaluator,
		products:  products,
		customers: customers,
		overrides: overrides,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// Area exposes the configured local area.
func (s *Service) Area() *locality.Area {
	return s.evaluator.Area()
}

// Status evaluates the requester's locality. The returned status is always
// usable: a signal that could not be loaded counts as absent, and the error
// reports that the result is degraded.
func (s *Service) Status(ctx context.Context, req domain.Requester, in Signals) (locality.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	var g errgroup.Group
	var sig gathered
	s.gatherSignals(ctx, &g, &sig, req)
	_ = g.Wait()

	st := s.evaluate(sig, in)
	return st, sig.err()
}

// CheckProduct decides whether productID may go into req's cart. A missing
// product yields domain.ErrNotFound and a failed product read ErrLookupFailed;
// failed locality reads degrade to "absent" and are reported on the decision.
func (s *Service) CheckProduct(ctx context.Context, req domain.Requester, productID string, in Signals) (*Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	var product *domain.Product
	g.Go(func() error {
		start := time.Now()
		p, err := s.products.GetByID(gctx, productID)
		s.metrics.ObserveLookup("product", time.Since(start))
		if err != nil {
			return err
		}
		product = p
		return nil
	})
	var sig gathered
	s.gatherSignals(gctx, g, &sig, req)

	if err := g.Wait(); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		s.logger.Printf("eligibility: product lookup product_id=%s error=%v", productID, err)
		return nil, fmt.Errorf("%w: product %s: %v", ErrLookupFailed, productID, err)
	}

	st := s.evaluate(sig, in)
	d := &Decision{
		Decision:  availability.Decide(*product, st),
		Requester: req,
		LookupErr: sig.err(),
	}
	s.metrics.IncGateDecision(string(d.ProductMode), string(d.Availability))
	return d, nil
}

// RequireLocal evaluates a customer's saved default address only. Transient
// signals never count. The error is non-nil only when the customer could not
// be loaded.
func (s *Service) RequireLocal(ctx context.Context, customerID string) (locality.Status, error) {
	c, err := s.customers.GetByID(ctx, customerID)
	if errors.Is(err, domain.ErrNotFound) {
		c, err = nil, nil
	}
	if err != nil {
		s.logger.Printf("eligibility: require local customer_id=%s error=%v", customerID, err)
		return locality.Fallback(), fmt.Errorf("%w: customer %s: %v", ErrLookupFailed, customerID, err)
	}
	st := s.evaluator.EvaluateSaved(DefaultAddressSignal(c))
	s.metrics.IncEvaluation(string(st.Source), string(st.Reason))
	return st, nil
}

// SetOverride stores an explicit ZIP for req and announces the change.
// Input without a 5-digit code is domain.ErrInvalidInput.
func (s *Service) SetOverride(ctx context.Context, req domain.Requester, raw string, in Signals) (locality.Status, error) {
	zip := locality.NormalizeZIP(raw)
	if zip == "" {
		return locality.Status{}, fmt.Errorf("%w: %q is not a 5-digit ZIP code", domain.ErrInvalidInput, raw)
	}
	if !req.HasIdentity() {
		return locality.Status{}, ErrNoIdentity
	}
	if err := s.overrides.Set(ctx, req.Key(), zip); err != nil {
		return locality.Status{}, fmt.Errorf("%w: store override: %v", domain.ErrUnavailable, err)
	}
	s.logger.Printf("eligibility: override set requester=%s zip=%s", req.Label(), zip)
	s.announce(ctx, events.NewLocalityChanged(events.KindOverrideSet, req, zip))
	in.ZIPOverride = ""
	return s.Status(ctx, req, in)
}

// ClearOverride removes req's stored ZIP and announces the change.
func (s *Service) ClearOverride(ctx context.Context, req domain.Requester) error {
	if !req.HasIdentity() {
		return ErrNoIdentity
	}
	if err := s.overrides.Delete(ctx, req.Key()); err != nil {
		return fmt.Errorf("%w: clear override: %v", domain.ErrUnavailable, err)
	}
	s.logger.Printf("eligibility: override cleared requester=%s", req.Label())
	s.announce(ctx, events.NewLocalityChanged(events.KindOverrideCleared, req, ""))
	return nil
}

// announce publishes evt; a failed publish never fails the change itself.
func (s *Service) announce(ctx context.Context, evt events.LocalityChanged) {
	if err := s.publisher.PublishLocalityChanged(ctx, evt); err != nil {
		s.logger.Printf("eligibility: publish kind=%s requester=%s error=%v", evt.Kind, evt.Requester().Label(), err)
	}
}

func (s *Service) evaluate(sig gathered, in Signals) locality.Status {
	override := locality.ZIPSignal(in.ZIPOverride)
	if !override.Present() {
		override = locality.ZIPSignal(sig.override)
	}
	st := s.evaluator.Evaluate(sig.address, override, locality.ZIPSignal(in.IPPostal))
	s.metrics.IncEvaluation(string(st.Source), string(st.Reason))
	return st
}

// gathered holds what the concurrent signal reads produced. Each field is
// written by exactly one goroutine.
type gathered struct {
	address     locality.Signal
	override    string
	addressErr  error
	overrideErr error
}

func (g *gathered) err() error {
	switch {
	case g.addressErr != nil:
		return fmt.Errorf("%w: default address: %v", ErrLookupFailed, g.addressErr)
	case g.overrideErr != nil:
		return fmt.Errorf("%w: zip override: %v", ErrLookupFailed, g.overrideErr)
	}
	return nil
}

// gatherSignals starts the reads for the stored locality signals of req.
// They never fail the group: a failed read is recorded and the signal is
// treated as absent.
func (s *Service) gatherSignals(ctx context.Context, g *errgroup.Group, out *gathered, req domain.Requester) {
	if req.IsCustomer() {
		g.Go(func() error {
			start := time.Now()
			c, err := s.customers.GetByID(ctx, req.CustomerID)
			s.metrics.ObserveLookup("address", time.Since(start))
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					out.addressErr = err
					s.logger.Printf("eligibility: address lookup failed requester=%s error=%v; treating as no address", req.Label(), err)
				}
				return nil
			}
			out.address = DefaultAddressSignal(c)
			return nil
		})
	}
	if req.HasIdentity() && s.overrides != nil {
		g.Go(func() error {
			start := time.Now()
			zip, err := s.overrides.Get(ctx, req.Key())
			s.metrics.ObserveLookup("override", time.Since(start))
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					out.overrideErr = err
					s.logger.Printf("eligibility: override lookup failed requester=%s error=%v; ignoring override", req.Label(), err)
				}
				return nil
			}
			out.override = zip
			return nil
		})
	}
}

// DefaultAddressSignal returns c's saved default shipping address as a signal.
func DefaultAddressSignal(c *domain.Customer) locality.Signal {
	if c == nil {
		return locality.Signal{}
	}
	addr := c.DefaultShippingAddress()
	if addr == nil {
		return locality.Signal{}
	}
	return locality.Signal{ZIP: addr.PostalCode, City: addr.City, State: addr.State}
}
