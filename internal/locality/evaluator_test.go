package locality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type EvaluatorSuite struct {
	suite.Suite
	eval *Evaluator
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorSuite))
}

func (s *EvaluatorSuite) SetupTest() {
	s.eval = NewEvaluator(MustArea([]string{"14850", "14853"}))
}

func (s *EvaluatorSuite) TestDefaultAddressWins() {
	local := Signal{ZIP: "14850", City: "Ithaca", State: "NY"}
	want := s.eval.Evaluate(local, Signal{}, Signal{})

	for _, override := range []string{"", "10001", "14853"} {
		for _, ip := range []string{"", "94105", "14850"} {
			got := s.eval.Evaluate(local, ZIPSignal(override), ZIPSignal(ip))
			s.Equal(want, got, "override=%q ip=%q", override, ip)
		}
	}
	s.True(want.Eligible)
	s.Equal(SourceDefaultAddress, want.Source)
	s.Equal(ReasonInLocalArea, want.Reason)
	s.Equal("14850", want.ZIP())
	s.Equal("Ithaca", want.City)
	s.Equal("NY", want.State)
}

func (s *EvaluatorSuite) TestNonLocalDefaultAddressIsNotRescuedByOverride() {
	got := s.eval.Evaluate(ZIPSignal("10001"), ZIPSignal("14850"), ZIPSignal("14850"))
	s.False(got.Eligible)
	s.Equal(SourceDefaultAddress, got.Source)
	s.Equal(ReasonZIPNotLocal, got.Reason)
	s.Equal("10001", got.ZIP())
}

func (s *EvaluatorSuite) TestOverrideWinsWithoutDefaultAddress() {
	want := s.eval.Evaluate(Signal{}, ZIPSignal("14853"), Signal{})
	for _, ip := range []string{"", "10001", "14850"} {
		s.Equal(want, s.eval.Evaluate(Signal{}, ZIPSignal("14853"), ZIPSignal(ip)))
	}
	s.True(want.Eligible)
	s.Equal(SourceZIPOverride, want.Source)

	nonLocal := s.eval.Evaluate(Signal{}, ZIPSignal("60601"), ZIPSignal("14850"))
	s.False(nonLocal.Eligible)
	s.Equal(SourceZIPOverride, nonLocal.Source)
	s.Equal(ReasonZIPNotLocal, nonLocal.Reason)
}

func (s *EvaluatorSuite) TestIPFallback() {
	local := s.eval.Evaluate(Signal{}, Signal{}, ZIPSignal("14850"))
	s.True(local.Eligible)
	s.Equal(SourceIP, local.Source)
	s.Equal(ReasonInLocalArea, local.Reason)

	remote := s.eval.Evaluate(Signal{}, Signal{}, ZIPSignal("94105"))
	s.False(remote.Eligible)
	s.Equal(SourceIP, remote.Source)
	s.Equal(ReasonZIPNotLocal, remote.Reason)
}

func (s *EvaluatorSuite) TestNoSignal() {
	got := s.eval.Evaluate(Signal{}, Signal{}, Signal{})
	s.Equal(Status{Eligible: false, Source: SourceNone, Reason: ReasonFallbackNonLocal}, got)
	s.Nil(got.ZIPUsed)
	s.Equal(ModeNone, got.Mode())
}

func (s *EvaluatorSuite) TestUnparseableTierFallsThrough() {
	got := s.eval.Evaluate(Signal{ZIP: "n/a", City: "Nowhere"}, ZIPSignal("14850"), Signal{})
	s.Equal(SourceZIPOverride, got.Source)
	s.Empty(got.City)
}

func (s *EvaluatorSuite) TestEvaluateSaved() {
	missing := s.eval.EvaluateSaved(Signal{})
	s.False(missing.Eligible)
	s.Equal(SourceNone, missing.Source)
	s.Equal(ReasonNoDefaultAddress, missing.Reason)

	local := s.eval.EvaluateSaved(ZIPSignal("14853"))
	s.True(local.Eligible)
	s.Equal(SourceDefaultAddress, local.Source)
}

func (s *EvaluatorSuite) TestEligibleMatchesMembership() {
	for _, zip := range []string{"14850", "14853", "10001", "99999"} {
		st := s.eval.Evaluate(Signal{}, ZIPSignal(zip), Signal{})
		s.Equal(s.eval.Area().Contains(st.ZIP()), st.Eligible, zip)
	}
}

func TestStatusMode(t *testing.T) {
	zip := "14850"
	assert.Equal(t, ModeLocalAndShipping, Status{Eligible: true, ZIPUsed: &zip}.Mode())
	assert.Equal(t, ModeShippingOnly, Status{Eligible: false, ZIPUsed: &zip}.Mode())
	assert.Equal(t, ModeNone, Fallback().Mode())
}
