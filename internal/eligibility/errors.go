package eligibility

import (
	"errors"
	"fmt"
)

var (
	// ErrLookupFailed wraps infrastructure failures while loading a product or
	// a locality signal.
	ErrLookupFailed = errors.New("locality lookup failed")
	// ErrNoIdentity is returned when per-requester state is written for a
	// requester without a customer or guest token.
	ErrNoIdentity = errors.New("requester has no identity")
)

// BlockedError is a policy outcome, not a failure: the product cannot be
// fulfilled for the requester's locality.
type BlockedError struct {
	Decision *Decision
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("product %s is %s for locality mode %s", e.Decision.ProductID, e.Decision.Availability, e.Decision.LocalityMode)
}
