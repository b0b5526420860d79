// Package mds implements the marginal distribution sampling gap-filler
// (C2/MDS): for each missing target value it searches expanding
// look-alike windows on three drivers, falls back to a radiation-only
// window, and finally to a mean-diurnal-course average, recording the
// fill's method, quality tier, sample count, and standard deviation.
package mds

import (
	"math"

	gostat "gonum.org/v1/gonum/stat"

	"github.com/fluxnet/oneflux-sub002/internal/calendar"
	"github.com/fluxnet/oneflux-sub002/internal/numeric"
	"github.com/fluxnet/oneflux-sub002/internal/rows"
)

// Method identifies which tier produced a fill. MethodNone marks a row
// whose target was already valid (I5), or a gap no tier could fill.
type Method int

const (
	MethodNone        Method = 0
	MethodThreeDriver Method = 1
	MethodRadiation   Method = 2
	MethodMDC         Method = 3
)

// Tolerances bounds how close a candidate row's drivers must be to the
// target row's to count as a look-alike match.
type Tolerances struct {
	SWInTolMin, SWInTolMax float64
	TATol                  float64
	VPDTol                 float64
}

// DefaultTolerances mirrors the original defaults: radiation window
// 20-50 W*m^-2 (5% of the target value, clamped), TA 2.5C, VPD 5 hPa.
func DefaultTolerances() Tolerances {
	return Tolerances{SWInTolMin: 20, SWInTolMax: 50, TATol: 2.5, VPDTol: 5}
}

// Config is MDS's per-run configuration.
type Config struct {
	Resolution calendar.Resolution
	Tolerances Tolerances
	// MinSamples is the minimum contributor count a tier must reach to
	// accept a fill (the original's ">= 2 matches" rule, generalized as
	// the -rows_min CLI knob).
	MinSamples int
	// RadiationWindowsDays is Tier B's W sequence in days, ascending.
	RadiationWindowsDays []int
	// MDCWindowsDays is Tier C's D sequence in days, ascending.
	MDCWindowsDays []int
}

// DefaultConfig returns MDS's canonical configuration.
func DefaultConfig(res calendar.Resolution) Config {
	return Config{
		Resolution:           res,
		Tolerances:           DefaultTolerances(),
		MinSamples:           2,
		RadiationWindowsDays: []int{7, 14, 21, 28, 35, 42, 49, 56},
		MDCWindowsDays:       []int{0, 1, 2, 7, 14, 21, 28, 35, 42},
	}
}

// GapResult is one row's fill outcome (I5, §4.7).
type GapResult struct {
	Filled         numeric.Value
	Method         Method
	Quality        int
	TimeWindowDays int
	SamplesCount   int
	StdDev         numeric.Value
	TargetValid    bool
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// threeDriverMatch reports whether candidate look-alikes target on all
// three drivers, per §4.7's driver-matched predicate. Both rows must
// carry valid sw_in, ta, and vpd.
func threeDriverMatch(tol Tolerances, target, candidate rows.MDSRow) bool {
	if !numeric.Valid(target.SWIn) || !numeric.Valid(target.TA) || !numeric.Valid(target.VPD) {
		return false
	}
	if !numeric.Valid(candidate.SWIn) || !numeric.Valid(candidate.TA) || !numeric.Valid(candidate.VPD) {
		return false
	}
	swTol := clamp(math.Abs(target.SWIn)*0.05, tol.SWInTolMin, tol.SWInTolMax)
	if math.Abs(candidate.SWIn-target.SWIn) > swTol {
		return false
	}
	if math.Abs(candidate.TA-target.TA) > tol.TATol {
		return false
	}
	if math.Abs(candidate.VPD-target.VPD) > tol.VPDTol {
		return false
	}
	return true
}

// radiationMatch reports whether candidate look-alikes target on sw_in
// alone, per Tier B.
func radiationMatch(tol Tolerances, target, candidate rows.MDSRow) bool {
	if !numeric.Valid(target.SWIn) || !numeric.Valid(candidate.SWIn) {
		return false
	}
	swTol := clamp(math.Abs(target.SWIn)*0.05, tol.SWInTolMin, tol.SWInTolMax)
	return math.Abs(candidate.SWIn-target.SWIn) <= swTol
}

// contributorStats computes the mean and sample standard deviation of
// a set of target values (assumed non-empty).
func contributorStats(values []float64) (mean, stddev float64) {
	if len(values) < 2 {
		mean = gostat.Mean(values, nil)
		return mean, 0
	}
	return gostat.MeanStdDev(values, nil)
}

func radiationQuality(windowDays int) int {
	switch {
	case windowDays <= 14:
		return 1
	case windowDays <= 28:
		return 2
	default:
		return 3
	}
}

func mdcQuality(windowDays int) int {
	switch {
	case windowDays <= 1:
		return 1
	case windowDays <= 7:
		return 2
	default:
		return 3
	}
}

// Fill runs MDS over data (a dense, possibly multi-year-concatenated
// row array addressed at canonical row indices) and returns one
// GapResult per row, in row order. data is read only; the result is
// independent of processing order (§4.7 ordering guarantee) since
// every tier's contributor search reads exclusively from data.
func Fill(data []rows.MDSRow, cfg Config) []GapResult {
	n := len(data)
	out := make([]GapResult, n)
	slotsPerDay := cfg.Resolution.SlotsPerDay()

	for i := 0; i < n; i++ {
		target := data[i]
		if target.Assigned && numeric.Valid(target.Target) {
			out[i] = GapResult{
				Filled:      target.Target,
				Method:      MethodNone,
				Quality:     0,
				TargetValid: true,
			}
			continue
		}

		if result, ok := fillThreeDriver(data, i, slotsPerDay, cfg); ok {
			out[i] = result
			continue
		}
		if result, ok := fillRadiation(data, i, slotsPerDay, cfg); ok {
			out[i] = result
			continue
		}
		if result, ok := fillMDC(data, i, slotsPerDay, cfg); ok {
			out[i] = result
			continue
		}

		out[i] = GapResult{Filled: numeric.Invalid, Method: MethodNone, Quality: 0}
	}

	return out
}

// windowBounds returns the inclusive [lo, hi] row-index range for a
// ±windowDays*slotsPerDay window around i, clipped to data bounds
// without wrapping across the array edges (multi-year windows clip
// rather than wrap, by design per §4.7).
func windowBounds(i, windowDays, slotsPerDay, n int) (lo, hi int) {
	span := windowDays * slotsPerDay
	lo = i - span
	if lo < 0 {
		lo = 0
	}
	hi = i + span
	if hi >= n {
		hi = n - 1
	}
	return lo, hi
}

func fillThreeDriver(data []rows.MDSRow, i, slotsPerDay int, cfg Config) (GapResult, bool) {
	target := data[i]
	for _, windowDays := range []int{7, 14} {
		lo, hi := windowBounds(i, windowDays, slotsPerDay, len(data))
		var contributors []float64
		for j := lo; j <= hi; j++ {
			if j == i {
				continue
			}
			cand := data[j]
			if !numeric.Valid(cand.Target) {
				continue
			}
			if threeDriverMatch(cfg.Tolerances, target, cand) {
				contributors = append(contributors, cand.Target)
			}
		}
		if len(contributors) >= cfg.MinSamples {
			mean, stddev := contributorStats(contributors)
			quality := 1
			if windowDays > 7 {
				quality = 2
			}
			return GapResult{
				Filled:         mean,
				Method:         MethodThreeDriver,
				Quality:        quality,
				TimeWindowDays: windowDays,
				SamplesCount:   len(contributors),
				StdDev:         stddev,
			}, true
		}
	}
	return GapResult{}, false
}

func fillRadiation(data []rows.MDSRow, i, slotsPerDay int, cfg Config) (GapResult, bool) {
	target := data[i]
	for _, windowDays := range cfg.RadiationWindowsDays {
		lo, hi := windowBounds(i, windowDays, slotsPerDay, len(data))
		var contributors []float64
		for j := lo; j <= hi; j++ {
			if j == i {
				continue
			}
			cand := data[j]
			if !numeric.Valid(cand.Target) {
				continue
			}
			if radiationMatch(cfg.Tolerances, target, cand) {
				contributors = append(contributors, cand.Target)
			}
		}
		if len(contributors) >= cfg.MinSamples {
			mean, stddev := contributorStats(contributors)
			return GapResult{
				Filled:         mean,
				Method:         MethodRadiation,
				Quality:        radiationQuality(windowDays),
				TimeWindowDays: windowDays,
				SamplesCount:   len(contributors),
				StdDev:         stddev,
			}, true
		}
	}
	return GapResult{}, false
}

func fillMDC(data []rows.MDSRow, i, slotsPerDay int, cfg Config) (GapResult, bool) {
	n := len(data)
	for _, windowDays := range cfg.MDCWindowsDays {
		var contributors []float64
		for k := -windowDays; k <= windowDays; k++ {
			if k == 0 {
				continue
			}
			j := i + k*slotsPerDay
			if j < 0 || j >= n {
				continue
			}
			cand := data[j]
			if numeric.Valid(cand.Target) {
				contributors = append(contributors, cand.Target)
			}
		}
		if len(contributors) >= cfg.MinSamples {
			mean, stddev := contributorStats(contributors)
			return GapResult{
				Filled:         mean,
				Method:         MethodMDC,
				Quality:        mdcQuality(windowDays),
				TimeWindowDays: windowDays,
				SamplesCount:   len(contributors),
				StdDev:         stddev,
			}, true
		}
	}
	return GapResult{}, false
}
