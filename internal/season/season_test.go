package season

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluxnet/oneflux-sub002/internal/errs"
)

func TestParseBasic(t *testing.T) {
	s, err := Parse("12,1,2;3,4,5;6,7,8;9,10,11", false)
	require.NoError(t, err)
	require.Len(t, s, 4)
	require.Equal(t, Group{11, 0, 1}, s[0])
	require.Equal(t, Group{2, 3, 4}, s[1])
}

func TestParseEmptyFails(t *testing.T) {
	_, err := Parse("", false)
	require.Error(t, err)
	require.Equal(t, errs.ConfigInvalid, errs.Of(err))
}

func TestParseOutOfRangeMonth(t *testing.T) {
	_, err := Parse("0,1,2", false)
	require.Error(t, err)

	_, err = Parse("1,13", false)
	require.Error(t, err)
}

func TestParseRejectsDuplicatesByDefault(t *testing.T) {
	_, err := Parse("1,2,3;3,4,5", false)
	require.Error(t, err)
}

func TestParseAllowsDuplicatesWhenEnabled(t *testing.T) {
	s, err := Parse("1,2,3;3,4,5", true)
	require.NoError(t, err)
	require.Len(t, s, 2)
}

func TestGroupForMonth(t *testing.T) {
	s := Default()
	gi, ok := GroupForMonth(s, 11) // December
	require.True(t, ok)
	require.Equal(t, 0, gi)

	gi, ok = GroupForMonth(s, 5) // June
	require.True(t, ok)
	require.Equal(t, 2, gi)

	_, ok = GroupForMonth(Seasons{{0}}, 5)
	require.False(t, ok)
}

// TestSeasonBoundaryAttribution covers S6: a row at Jan 1 00:00, with
// the first configured group {Jan,Feb,Mar}, must attribute to the
// Dec-containing group per I4's boundary rule.
func TestSeasonBoundaryAttribution(t *testing.T) {
	s, err := Parse("1,2,3;4,5,6;7,8,9;10,11,12", false)
	require.NoError(t, err)

	gi, ok := AttributeRow(s, 0, 1, 0, 0) // Jan (month0=0), day 1, 00:00
	require.True(t, ok)
	require.Equal(t, 3, gi, "Jan 1 00:00 must attribute to the Dec-containing group")

	// Any other timestamp within January attributes normally.
	gi, ok = AttributeRow(s, 0, 15, 12, 0)
	require.True(t, ok)
	require.Equal(t, 0, gi)

	gi, ok = AttributeRow(s, 0, 1, 0, 30)
	require.True(t, ok)
	require.Equal(t, 0, gi, "00:30 is not the exact boundary instant")
}
