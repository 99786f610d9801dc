package locality

// Signal is one candidate location: a free-text postal code plus whatever
// city and state came with it.
type Signal struct {
	ZIP   string
	City  string
	State string
}

// ZIPSignal wraps a bare postal code.
func ZIPSignal(raw string) Signal {
	return Signal{ZIP: raw}
}

// Present reports whether the signal carries a usable postal code.
func (s Signal) Present() bool {
	return NormalizeZIP(s.ZIP) != ""
}

// Evaluator resolves locality against a fixed local area. It holds no other
// state and is safe for concurrent use.
type Evaluator struct {
	area *Area
}

func NewEvaluator(area *Area) *Evaluator {
	return &Evaluator{area: area}
}

// Area exposes the configured service area.
func (e *Evaluator) Area() *Area {
	return e.area
}

// Evaluate applies fixed precedence: saved default address, then explicit
// override, then IP-derived fallback. The first tier with a usable postal
// code decides alone; lower tiers are ignored even when present.
func (e *Evaluator) Evaluate(defaultAddress, zipOverride, ipFallback Signal) Status {
	tiers := [...]struct {
		source Source
		signal Signal
	}{
		{SourceDefaultAddress, defaultAddress},
		{SourceZIPOverride, zipOverride},
		{SourceIP, ipFallback},
	}
	for _, tier := range tiers {
		zip := NormalizeZIP(tier.signal.ZIP)
		if zip == "" {
			continue
		}
		return e.statusFor(tier.source, zip, tier.signal)
	}
	return Fallback()
}

// EvaluateSaved looks at the saved default address only. Guards that require
// a local customer use it so that transient signals cannot unlock them.
func (e *Evaluator) EvaluateSaved(defaultAddress Signal) Status {
	zip := NormalizeZIP(defaultAddress.ZIP)
	if zip == "" {
		st := Fallback()
		st.Reason = ReasonNoDefaultAddress
		return st
	}
	return e.statusFor(SourceDefaultAddress, zip, defaultAddress)
}

func (e *Evaluator) statusFor(source Source, zip string, sig Signal) Status {
	eligible := e.area.Contains(zip)
	reason := ReasonZIPNotLocal
	if eligible {
		reason = ReasonInLocalArea
	}
	return Status{
		Eligible: eligible,
		Source:   source,
		Reason:   reason,
		ZIPUsed:  &zip,
		City:     sig.City,
		State:    sig.State,
	}
}
