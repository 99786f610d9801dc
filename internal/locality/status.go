package locality

// Source records which precedence tier produced the ZIP used for a decision.
type Source string

const (
	SourceDefaultAddress Source = "DEFAULT_ADDRESS"
	SourceZIPOverride    Source = "ZIP_OVERRIDE"
	SourceIP             Source = "IP"
	SourceNone           Source = "NONE"
)

type Reason string

const (
	ReasonInLocalArea      Reason = "IN_LOCAL_AREA"
	ReasonNoDefaultAddress Reason = "NO_DEFAULT_ADDRESS"
	ReasonZIPNotLocal      Reason = "ZIP_NOT_LOCAL"
	ReasonFallbackNonLocal Reason = "FALLBACK_NON_LOCAL"
)

// Mode is a customer's resolved locality class. It is derived from a Status
// on every request and never stored.
type Mode string

const (
	ModeLocalOnly        Mode = "LOCAL_ONLY"
	ModeShippingOnly     Mode = "SHIPPING_ONLY"
	ModeLocalAndShipping Mode = "LOCAL_AND_SHIPPING"
	ModeNone             Mode = "NONE"
)

// Status is the result of evaluating a requester's locality.
type Status struct {
	Eligible bool    `json:"eligible"`
	Source   Source  `json:"source"`
	Reason   Reason  `json:"reason"`
	ZIPUsed  *string `json:"zipUsed"`
	City     string  `json:"city,omitempty"`
	State    string  `json:"state,omitempty"`
}

// Fallback is the status for a requester with no usable signal at all. It is
// also what the status endpoint serves when evaluation fails.
func Fallback() Status {
	return Status{
		Eligible: false,
		Source:   SourceNone,
		Reason:   ReasonFallbackNonLocal,
	}
}

// ZIP returns the postal code used, or "".
func (s Status) ZIP() string {
	if s.ZIPUsed == nil {
		return ""
	}
	return *s.ZIPUsed
}

// Mode maps the status onto the customer side of the availability matrix.
// A local customer can still receive shipments, so eligibility yields
// LOCAL_AND_SHIPPING; the evaluator never produces LOCAL_ONLY.
func (s Status) Mode() Mode {
	switch {
	case s.Eligible:
		return ModeLocalAndShipping
	case s.ZIPUsed != nil:
		return ModeShippingOnly
	default:
		return ModeNone
	}
}
