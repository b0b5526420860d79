package ustar

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluxnet/oneflux-sub002/internal/numeric"
)

// TestForwardMode_S4 covers S4: a flat fx_mean and a linearly increasing
// ustar_mean should accept the very first class under theta=1.0
// (percentile check off), and report "not found" under theta=1.1.
func TestForwardMode_S4(t *testing.T) {
	const classes = 20
	ustarMean := make([]numeric.Value, classes)
	fxMean := make([]numeric.Value, classes)
	for i := 0; i < classes; i++ {
		ustarMean[i] = 0.05 + float64(i)*(1.00-0.05)/float64(classes-1)
		fxMean[i] = 5.0
	}

	threshold, percentiled := forwardMode(ustarMean, fxMean, classes, 10, false, 0, 1.0, 1)
	require.False(t, percentiled)
	require.InDelta(t, ustarMean[0], threshold, 1e-9)

	threshold, percentiled = forwardMode(ustarMean, fxMean, classes, 10, false, 0, 1.1, 1)
	require.False(t, percentiled)
	require.Equal(t, numeric.ThresholdNotFound, threshold)
}

func TestForwardMode_PercentileShortCircuit(t *testing.T) {
	const classes = 20
	ustarMean := make([]numeric.Value, classes)
	fxMean := make([]numeric.Value, classes)
	for i := 0; i < classes; i++ {
		ustarMean[i] = float64(i) / float64(classes)
		fxMean[i] = 5.0
	}
	threshold, percentiled := forwardMode(ustarMean, fxMean, classes, 10, true, ustarMean[5], 1.0, 1)
	require.True(t, percentiled)
	require.Equal(t, ustarMean[5], threshold)
}

func TestForwardMode_InvalidParams(t *testing.T) {
	threshold, percentiled := forwardMode(nil, nil, 5, 10, false, 0, 1.0, 5)
	require.False(t, percentiled)
	require.Equal(t, numeric.Invalid, threshold)
}

func TestBackMode_NotFoundFallsToPercentile(t *testing.T) {
	const classes = 20
	ustarMean := make([]numeric.Value, classes)
	fxMean := make([]numeric.Value, classes)
	for i := 0; i < classes; i++ {
		ustarMean[i] = float64(i) / float64(classes)
		fxMean[i] = 100.0 - float64(i) // strictly decreasing: each value exceeds the mean after it, never <= mean*theta
	}
	threshold, percentiled := backMode(ustarMean, fxMean, classes, 10, true, 0, 1.0, 1, 90)
	require.True(t, percentiled)
	start := (classes * 90) / 100
	require.Equal(t, ustarMean[start], threshold)
}

func TestBackMode_InvalidParams(t *testing.T) {
	threshold, percentiled := backMode(nil, nil, 5, 10, false, 0, 1.0, 5, 90)
	require.False(t, percentiled)
	require.Equal(t, numeric.Invalid, threshold)
}
