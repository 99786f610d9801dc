// Package reconcile removes cart lines a requester can no longer receive
// after their locality changed.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"localcart/internal/availability"
	"localcart/internal/domain"
	"localcart/internal/eligibility"
	"localcart/internal/events"
	"localcart/internal/locality"
	"localcart/internal/metrics"
)

type cartStore interface {
	GetActiveByCustomer(ctx context.Context, customerID string) (*domain.Cart, error)
	GetActiveByAnonymous(ctx context.Context, anonymousID string) (*domain.Cart, error)
	ListLinesWithProducts(ctx context.Context, cartID string) ([]domain.CartLineProduct, error)
	DeleteLineItem(ctx context.Context, cartID, lineItemID string) error
}

type statusEvaluator interface {
	Status(ctx context.Context, req domain.Requester, in eligibility.Signals) (locality.Status, error)
}

// Result reports one reconciler run.
type Result struct {
	Removed int      `json:"removed"`
	Checked int      `json:"checked"`
	Lines   []string `json:"removedLineIds,omitempty"`
}

type Reconciler struct {
	carts     cartStore
	evaluator statusEvaluator
	metrics   *metrics.Metrics
	logger    *log.Logger
}

func New(carts cartStore, evaluator statusEvaluator, m *metrics.Metrics, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Reconciler{carts: carts, evaluator: evaluator, metrics: m, logger: logger}
}

// PurgeIneligible reconciles the active cart of a customer.
func (r *Reconciler) PurgeIneligible(ctx context.Context, customerID string) (Result, error) {
	return r.Purge(ctx, domain.Requester{CustomerID: customerID}, eligibility.Signals{}, "manual")
}

// PurgeIneligibleAnonymous reconciles the active cart of a guest.
func (r *Reconciler) PurgeIneligibleAnonymous(ctx context.Context, anonymousID string) (Result, error) {
	return r.Purge(ctx, domain.Requester{AnonymousID: anonymousID}, eligibility.Signals{}, "manual")
}

// HandleLocalityChanged is the events.Handler that runs the reconciler.
func (r *Reconciler) HandleLocalityChanged(ctx context.Context, evt events.LocalityChanged) error {
	_, err := r.Purge(ctx, evt.Requester(), eligibility.Signals{}, string(evt.Kind))
	return err
}

// Purge evaluates req's locality once and deletes every BLOCKED line, one at
// a time. On a failed delete it stops and returns the lines removed so far
// with the error; running it again continues where it stopped. A degraded
// locality read aborts before anything is removed so that an outage cannot
// empty carts.
func (r *Reconciler) Purge(ctx context.Context, req domain.Requester, in eligibility.Signals, trigger string) (Result, error) {
	var res Result
	if !req.HasIdentity() {
		return res, nil
	}

	cart, err := r.activeCart(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return res, nil
		}
		r.metrics.IncReconcileError()
		return res, fmt.Errorf("reconcile: load cart: %w", err)
	}

	lines, err := r.carts.ListLinesWithProducts(ctx, cart.ID)
	if err != nil {
		r.metrics.IncReconcileError()
		return res, fmt.Errorf("reconcile: list lines cart_id=%s: %w", cart.ID, err)
	}
	if len(lines) == 0 {
		return res, nil
	}

	status, err := r.evaluator.Status(ctx, req, in)
	if err != nil {
		r.metrics.IncReconcileError()
		r.logger.Printf("reconcile: skip cart_id=%s requester=%s degraded locality error=%v", cart.ID, req.Label(), err)
		return res, err
	}

	for _, lp := range lines {
		res.Checked++
		d := availability.Decide(lp.Product, status)
		if d.Allowed() {
			continue
		}
		if err := r.carts.DeleteLineItem(ctx, cart.ID, lp.Line.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Already gone, e.g. removed by a concurrent run.
				continue
			}
			r.metrics.AddReconcileRemoved(trigger, res.Removed)
			r.metrics.IncReconcileError()
			r.logger.Printf("reconcile: delete line cart_id=%s line_id=%s removed=%d error=%v", cart.ID, lp.Line.ID, res.Removed, err)
			return res, fmt.Errorf("reconcile: delete line %s: %w", lp.Line.ID, err)
		}
		res.Removed++
		res.Lines = append(res.Lines, lp.Line.ID)
	}

	r.metrics.AddReconcileRemoved(trigger, res.Removed)
	r.logger.Printf("reconcile: cart_id=%s requester=%s trigger=%s mode=%s checked=%d removed=%d",
		cart.ID, req.Label(), trigger, status.Mode(), res.Checked, res.Removed)
	return res, nil
}

func (r *Reconciler) activeCart(ctx context.Context, req domain.Requester) (*domain.Cart, error) {
	if req.IsCustomer() {
		return r.carts.GetActiveByCustomer(ctx, req.CustomerID)
	}
	return r.carts.GetActiveByAnonymous(ctx, req.AnonymousID)
}
