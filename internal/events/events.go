// Package events carries locality-changed notifications from the places that
// change a requester's locality to the cart reconciler.
package events

import (
	"context"
	"io"
	"log"
	"time"

	"localcart/internal/domain"
)

// Kind names what changed.
type Kind string

const (
	KindDefaultAddressChanged Kind = "default_address_changed"
	KindOverrideSet           Kind = "override_set"
	KindOverrideCleared       Kind = "override_cleared"
)

// RoutingKey is the AMQP routing key for LocalityChanged.
const RoutingKey = "locality.changed"

// LocalityChanged is published after a default address or ZIP override changed.
type LocalityChanged struct {
	Kind        Kind      `json:"kind"`
	CustomerID  string    `json:"customerId,omitempty"`
	AnonymousID string    `json:"anonymousId,omitempty"`
	ZIP         string    `json:"zip,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// NewLocalityChanged stamps an event for requester.
func NewLocalityChanged(kind Kind, requester domain.Requester, zip string) LocalityChanged {
	return LocalityChanged{
		Kind:        kind,
		CustomerID:  requester.CustomerID,
		AnonymousID: requester.AnonymousID,
		ZIP:         zip,
		OccurredAt:  time.Now().UTC(),
	}
}

func (e LocalityChanged) Requester() domain.Requester {
	return domain.Requester{CustomerID: e.CustomerID, AnonymousID: e.AnonymousID}
}

// Publisher announces locality changes.
type Publisher interface {
	PublishLocalityChanged(ctx context.Context, evt LocalityChanged) error
}

// Handler reacts to a locality change.
type Handler func(ctx context.Context, evt LocalityChanged) error

// Inline runs the handler in the caller's goroutine. It is used when no
// broker is configured so locality changes still reconcile carts.
type Inline struct {
	handler Handler
	logger  *log.Logger
}

func NewInline(handler Handler, logger *log.Logger) *Inline {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Inline{handler: handler, logger: logger}
}

func (p *Inline) PublishLocalityChanged(ctx context.Context, evt LocalityChanged) error {
	if p.handler == nil {
		return nil
	}
	if err := p.handler(ctx, evt); err != nil {
		p.logger.Printf("events: inline handler kind=%s requester=%s error=%v", evt.Kind, evt.Requester().Label(), err)
		return err
	}
	return nil
}

// Nop discards events.
type Nop struct{}

func (Nop) PublishLocalityChanged(context.Context, LocalityChanged) error { return nil }
