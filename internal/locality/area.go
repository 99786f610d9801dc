package locality

import (
	"errors"
	"fmt"
	"sort"
)

// DefaultPostalCodes is the service area used when configuration supplies none.
var DefaultPostalCodes = []string{
	"14850", "14851", "14852", "14853",
	"14867", "14882", "14886", "13053",
}

// Area is the read-only set of postal codes eligible for local pickup and delivery.
type Area struct {
	codes map[string]struct{}
}

// NewArea normalizes every entry. An entry without a 5-digit code is a
// configuration mistake and is rejected rather than silently dropped.
func NewArea(codes []string) (*Area, error) {
	if len(codes) == 0 {
		return nil, errors.New("locality: local area requires at least one postal code")
	}
	set := make(map[string]struct{}, len(codes))
	for _, raw := range codes {
		zip := NormalizeZIP(raw)
		if zip == "" {
			return nil, fmt.Errorf("locality: invalid local postal code %q", raw)
		}
		set[zip] = struct{}{}
	}
	return &Area{codes: set}, nil
}

// MustArea is NewArea for compile-time lists and tests.
func MustArea(codes []string) *Area {
	a, err := NewArea(codes)
	if err != nil {
		panic(err)
	}
	return a
}

// Contains reports membership. Raw input is normalized first.
func (a *Area) Contains(raw string) bool {
	if a == nil {
		return false
	}
	zip := NormalizeZIP(raw)
	if zip == "" {
		return false
	}
	_, ok := a.codes[zip]
	return ok
}

// Codes returns the member postal codes in ascending order.
func (a *Area) Codes() []string {
	if a == nil {
		return nil
	}
	out := make([]string, 0, len(a.codes))
	for zip := range a.codes {
		out = append(out, zip)
	}
	sort.Strings(out)
	return out
}

// Len reports how many postal codes the area holds.
func (a *Area) Len() int {
	if a == nil {
		return 0
	}
	return len(a.codes)
}
