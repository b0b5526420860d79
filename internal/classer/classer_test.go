package classer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluxnet/oneflux-sub002/internal/numeric"
)

func keysOf(vals ...float64) []numeric.Value {
	out := make([]numeric.Value, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

// TestCoverage verifies P2: the non-empty windows partition [base, base+n)
// exactly, with no gaps and no overlaps.
func TestCoverage(t *testing.T) {
	keys := keysOf(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20)
	windows := Bin(keys, 0, len(keys), 7)

	total := 0
	next := 0
	for i, w := range windows {
		if w.Empty() {
			continue
		}
		require.Equal(t, next, w.Start, "window %d must start where the previous one ended", i)
		require.LessOrEqual(t, w.Start, w.End)
		total += w.Len()
		next = w.End + 1
	}
	require.Equal(t, len(keys), total)
	require.Equal(t, len(keys), next)
}

// TestTieExtension verifies P3: a run of equal keys straddling a nominal
// bin boundary is never split between two adjacent bins.
func TestTieExtension(t *testing.T) {
	// size = 10/5 = 2 per bin; bin 0 would nominally end at index 1 (value 5),
	// but indices 1..3 are all value 5 and must land in the same bin.
	keys := keysOf(1, 5, 5, 5, 6, 7, 8, 9, 10, 11)
	windows := Bin(keys, 0, len(keys), 5)

	require.False(t, windows[0].Empty())
	require.Equal(t, 0, windows[0].Start)
	// Bin 0 must extend through every index carrying the value 5.
	require.Equal(t, 3, windows[0].End)
	require.False(t, windows[1].Empty())
	require.Equal(t, 4, windows[1].Start)
}

func TestSingleBin(t *testing.T) {
	keys := keysOf(3, 1, 4, 1, 5)
	windows := Bin(keys, 0, len(keys), 1)

	require.False(t, windows[0].Empty())
	require.Equal(t, Window{Start: 0, End: 4}, windows[0])
}

func TestBaseOffset(t *testing.T) {
	keys := keysOf(99, 1, 2, 3, 4, 5, 6)
	windows := Bin(keys, 1, 6, 3)

	total := 0
	for _, w := range windows {
		if w.Empty() {
			continue
		}
		require.GreaterOrEqual(t, w.Start, 1)
		require.LessOrEqual(t, w.End, 6)
		total += w.Len()
	}
	require.Equal(t, 6, total)
}

func TestEmptyInput(t *testing.T) {
	windows := Bin(nil, 0, 0, 7)
	for _, w := range windows {
		require.True(t, w.Empty())
	}
}

func TestFewerSamplesThanClasses(t *testing.T) {
	// n < k: size == 0, every window stays empty rather than panicking.
	keys := keysOf(1, 2)
	windows := Bin(keys, 0, 2, 7)
	for _, w := range windows {
		require.True(t, w.Empty())
	}
}

func TestWindowLen(t *testing.T) {
	require.Equal(t, 0, Window{Start: -1, End: -1}.Len())
	require.Equal(t, 5, Window{Start: 2, End: 6}.Len())
}
