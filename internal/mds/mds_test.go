package mds

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluxnet/oneflux-sub002/internal/calendar"
	"github.com/fluxnet/oneflux-sub002/internal/numeric"
	"github.com/fluxnet/oneflux-sub002/internal/rows"
)

func fullyFilledDataset(n int) []rows.MDSRow {
	data := rows.NewMDSArray(n)
	for i := range data {
		data[i] = rows.MDSRow{
			Target:   10.0 + float64(i%5),
			SWIn:     100.0 + float64(i%20),
			TA:       15.0 + float64(i%3),
			VPD:      3.0,
			RowIndex: i,
			Assigned: true,
		}
	}
	return data
}

// TestIdempotence covers P4: a fully-filled series must pass through
// untouched (method=none, quality=0, target retained).
func TestIdempotence(t *testing.T) {
	data := fullyFilledDataset(500)
	results := Fill(data, DefaultConfig(calendar.HalfHourly))
	for i, r := range results {
		require.True(t, r.TargetValid, "row %d", i)
		require.Equal(t, MethodNone, r.Method)
		require.Equal(t, 0, r.Quality)
		require.Equal(t, data[i].Target, r.Filled)
	}
}

// TestThreeDriverFill covers S2: one half-hour gap with quiet,
// in-tolerance drivers on both sides fills at method=1, quality=1,
// window=7 days.
func TestThreeDriverFill(t *testing.T) {
	data := fullyFilledDataset(2000)
	gapIdx := 1000
	data[gapIdx].Target = numeric.Invalid
	data[gapIdx].Assigned = false

	cfg := DefaultConfig(calendar.HalfHourly)
	results := Fill(data, cfg)
	r := results[gapIdx]

	require.False(t, r.TargetValid)
	require.Equal(t, MethodThreeDriver, r.Method)
	require.Equal(t, 1, r.Quality)
	require.Equal(t, 7, r.TimeWindowDays)
	require.Greater(t, r.SamplesCount, 0)
}

// TestMDCFallback covers S3: drivers all missing, only the target is
// periodic; same-time-of-day samples within +/-1 day fill at
// method=3, quality=1.
func TestMDCFallback(t *testing.T) {
	slotsPerDay := calendar.HalfHourly.SlotsPerDay()
	n := slotsPerDay * 10
	data := rows.NewMDSArray(n)
	for i := range data {
		data[i] = rows.MDSRow{
			Target:   numeric.Invalid,
			SWIn:     numeric.Invalid,
			TA:       numeric.Invalid,
			VPD:      numeric.Invalid,
			RowIndex: i,
		}
	}
	// Populate a periodic target at the same time-of-day, every day,
	// leaving one gap at day 5.
	gapDay := 5
	slot := 10
	for day := 0; day < 10; day++ {
		idx := day*slotsPerDay + slot
		if day == gapDay {
			continue
		}
		data[idx].Target = 7.5
		data[idx].Assigned = true
	}

	cfg := DefaultConfig(calendar.HalfHourly)
	results := Fill(data, cfg)
	gapIdx := gapDay*slotsPerDay + slot
	r := results[gapIdx]

	require.False(t, r.TargetValid)
	require.Equal(t, MethodMDC, r.Method)
	require.Equal(t, 1, r.Quality)
	require.InDelta(t, 7.5, r.Filled, 1e-9)
}

// TestUnfillableLeavesSentinel covers the "no tier yields >= MinSamples"
// path: an isolated gap with no look-alikes anywhere is left invalid.
func TestUnfillableLeavesSentinel(t *testing.T) {
	data := rows.NewMDSArray(5)
	cfg := DefaultConfig(calendar.HalfHourly)
	results := Fill(data, cfg)
	for _, r := range results {
		require.Equal(t, numeric.Invalid, r.Filled)
		require.Equal(t, MethodNone, r.Method)
		require.False(t, r.TargetValid)
	}
}

// TestWindowClipsAtArrayBoundaryNoWrap covers multi-year concatenation:
// a gap near the start of the array must not wrap around to the end
// when building its window.
func TestWindowClipsAtArrayBoundaryNoWrap(t *testing.T) {
	data := fullyFilledDataset(2000)
	// Make the tail visually distinct so a wrap would be detectable.
	for i := 1900; i < 2000; i++ {
		data[i].Target = 999.0
	}
	data[0].Target = numeric.Invalid
	data[0].Assigned = false

	cfg := DefaultConfig(calendar.HalfHourly)
	results := Fill(data, cfg)
	r := results[0]
	require.NotEqual(t, numeric.Invalid, r.Filled)
	require.Less(t, r.Filled, 900.0, "window must not wrap and pick up tail contributors")
}
