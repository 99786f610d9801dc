package locality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArea_DefaultCodesAreMembers(t *testing.T) {
	area := MustArea(DefaultPostalCodes)
	for _, zip := range DefaultPostalCodes {
		assert.True(t, area.Contains(zip), "expected %s to be local", zip)
	}
	assert.Equal(t, len(DefaultPostalCodes), area.Len())
}

func TestArea_NonMembers(t *testing.T) {
	area := MustArea(DefaultPostalCodes)
	for _, zip := range []string{"10001", "94105", "00000", "14849"} {
		assert.False(t, area.Contains(zip), "expected %s to be non-local", zip)
	}
	assert.False(t, area.Contains(""))
	assert.False(t, area.Contains("not a zip"))
}

func TestArea_NormalizesRawInput(t *testing.T) {
	area := MustArea([]string{"14850-0001"})
	assert.True(t, area.Contains("Ithaca NY 14850"))
	assert.Equal(t, []string{"14850"}, area.Codes())
}

func TestNewArea_RejectsBadConfig(t *testing.T) {
	_, err := NewArea(nil)
	require.Error(t, err)

	_, err = NewArea([]string{"14850", "oops"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oops")
}

func TestArea_NilIsEmpty(t *testing.T) {
	var area *Area
	assert.False(t, area.Contains("14850"))
	assert.Empty(t, area.Codes())
}
