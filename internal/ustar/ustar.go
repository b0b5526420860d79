// Package ustar implements the u* threshold engine (C1/UST): nested
// TA/u*-class binning within seasonal groupings, a correlation filter,
// and six detection-mode kernels that each propose a per-class
// threshold, later reduced to a per-season median and a selected
// overall value.
package ustar

import (
	"math"
	"sort"

	"github.com/fluxnet/oneflux-sub002/internal/classer"
	"github.com/fluxnet/oneflux-sub002/internal/errs"
	"github.com/fluxnet/oneflux-sub002/internal/numeric"
	"github.com/fluxnet/oneflux-sub002/internal/rows"
	"github.com/fluxnet/oneflux-sub002/internal/stat"
)

// ModeKind distinguishes the two scan directions a detection mode uses.
type ModeKind int

const (
	Forward ModeKind = iota
	Back
)

// Mode enumerates the six detection-mode kernels, replacing the
// original six parallel containers and double-negative "no_*" flags
// with one table keyed by this enumeration.
type Mode int

const (
	ForwardN1 Mode = iota
	ForwardN2
	ForwardN3
	BackN1
	BackN2
	BackN3
)

func (m Mode) String() string {
	switch m {
	case ForwardN1:
		return "forward_mode"
	case ForwardN2:
		return "forward_mode_2"
	case ForwardN3:
		return "forward_mode_3"
	case BackN1:
		return "back_mode"
	case BackN2:
		return "back_mode_2"
	case BackN3:
		return "back_mode_3"
	default:
		return "unknown_mode"
	}
}

// AllModes lists every mode in the table's canonical order.
var AllModes = []Mode{ForwardN1, ForwardN2, ForwardN3, BackN1, BackN2, BackN3}

// ModeSpec carries a mode's kernel parameters: its scan kind, the
// number of consecutive classes the kernel must satisfy (n), and its
// window size (the forward mean-window size, or the back mode's
// max_window_size).
type ModeSpec struct {
	Kind   ModeKind
	N      int
	Window int
}

// DefaultModeSpecs mirrors the original defaults: forward modes scan
// with n=1,2,3 and a window of 10; back modes scan with n=1,2,3 and a
// max window of 10.
var DefaultModeSpecs = map[Mode]ModeSpec{
	ForwardN1: {Kind: Forward, N: 1, Window: 10},
	ForwardN2: {Kind: Forward, N: 2, Window: 10},
	ForwardN3: {Kind: Forward, N: 3, Window: 10},
	BackN1:    {Kind: Back, N: 1, Window: 10},
	BackN2:    {Kind: Back, N: 2, Window: 10},
	BackN3:    {Kind: Back, N: 3, Window: 10},
}

// Constants grounded on ustar_mp/src/types.h.
const (
	MinValuePeriod      = 3000
	MinValueSeason      = 160
	TAClassMinSample    = 100
	CorrelationCheck    = 0.5
	FirstUstarMeanCheck = 0.2
)

// Config is the per-run configuration UST needs; nothing here is a
// package-level global (DESIGN NOTES: process-wide mutable globals).
type Config struct {
	TAClasses       int
	UstarClasses    int
	PercentileValue int // e.g. 90
	PercentileCheck bool
	ThresholdCheck  float64 // theta, default 1.0
	EnabledModes    map[Mode]bool
	ModeSpecs       map[Mode]ModeSpec // defaults to DefaultModeSpecs for any unset mode
}

// DefaultConfig returns the canonical configuration (all six modes
// enabled, P=90, theta=1.0).
func DefaultConfig(taClasses, ustarClasses int) Config {
	enabled := make(map[Mode]bool, len(AllModes))
	for _, m := range AllModes {
		enabled[m] = true
	}
	return Config{
		TAClasses:       taClasses,
		UstarClasses:    ustarClasses,
		PercentileValue: 90,
		PercentileCheck: true,
		ThresholdCheck:  1.0,
		EnabledModes:    enabled,
		ModeSpecs:       DefaultModeSpecs,
	}
}

func (c Config) specFor(m Mode) ModeSpec {
	if s, ok := c.ModeSpecs[m]; ok {
		return s
	}
	return DefaultModeSpecs[m]
}

// ClassResult is one (season, ta-class) cell's outcome for a single mode.
type ClassResult struct {
	Threshold   numeric.Value
	Percentiled bool
}

// SeasonOutcome is one season's result for one mode: the per-class
// thresholds, and the season's median threshold over those classes.
type SeasonOutcome struct {
	Classes []ClassResult
	Median  numeric.Value
}

// Result is UST's full output: per mode, per season, per TA class.
type Result struct {
	SeasonsUsed      int
	SamplesPerSeason []int
	ByMode           map[Mode][]SeasonOutcome
	Selected         map[Mode]numeric.Value // max per-season median, across seasons
}

// Run executes the full UST pipeline over rowsIn, which must already
// be partitioned into contiguous season blocks whose lengths are given
// by samplesPerSeason (in season order). rowsIn is sorted in place.
func Run(rowsIn []rows.USTRow, samplesPerSeason []int, days int, cfg Config) (Result, error) {
	rowsCount := len(rowsIn)
	if rowsCount < cfg.TAClasses*cfg.UstarClasses {
		return Result{}, errs.Wrap(errs.NotEnoughValues, "rows_count %d below ta_classes*ustar_classes (%d)", rowsCount, cfg.TAClasses*cfg.UstarClasses)
	}

	samples := append([]int(nil), samplesPerSeason...)
	seasonsGroupCount := len(samples)
	var seasonsN int
	switch {
	case rowsCount+days >= MinValuePeriod:
		seasonsN = seasonsGroupCount
	case rowsCount > MinValueSeason:
		seasonsN, samples, seasonsGroupCount = collapseToOneSeason(samples)
	default:
		return Result{}, errs.Wrap(errs.NotEnoughValues, "rows_count %d below both period and season minimums", rowsCount)
	}

	if seasonsN > 1 {
		allBelowMin := true
		for _, s := range samples[:seasonsN] {
			if s >= TAClassMinSample*cfg.TAClasses {
				allBelowMin = false
				break
			}
		}
		if allBelowMin {
			seasonsN, samples, seasonsGroupCount = collapseToOneSeason(samples)
		}
	}

	result := Result{
		SeasonsUsed:      seasonsGroupCount,
		SamplesPerSeason: samples,
		ByMode:           make(map[Mode][]SeasonOutcome, len(AllModes)),
		Selected:         make(map[Mode]numeric.Value, len(AllModes)),
	}
	for _, m := range AllModes {
		outcomes := make([]SeasonOutcome, seasonsGroupCount)
		for i := range outcomes {
			classes := make([]ClassResult, cfg.TAClasses)
			for c := range classes {
				classes[c] = ClassResult{Threshold: numeric.Invalid}
			}
			outcomes[i] = SeasonOutcome{Classes: classes, Median: numeric.Invalid}
		}
		result.ByMode[m] = outcomes
	}

	for s := 0; s < seasonsN; s++ {
		if samples[s] < TAClassMinSample*cfg.TAClasses {
			continue
		}
		seasonStart := 0
		for i := 0; i < s; i++ {
			seasonStart += samples[i]
		}
		runSeason(rowsIn, seasonStart, samples[s], s, seasonsN, seasonsGroupCount, cfg, &result)
	}

	for _, m := range AllModes {
		if !cfg.EnabledModes[m] {
			continue
		}
		for s := range result.ByMode[m] {
			vals := make([]numeric.Value, len(result.ByMode[m][s].Classes))
			for i, c := range result.ByMode[m][s].Classes {
				vals[i] = c.Threshold
			}
			result.ByMode[m][s].Median = stat.Median(vals)
		}
		selected := numeric.Invalid
		for _, outcome := range result.ByMode[m] {
			if numeric.Valid(outcome.Median) && (!numeric.Valid(selected) || outcome.Median > selected) {
				selected = outcome.Median
			}
		}
		result.Selected[m] = selected
	}

	return result, nil
}

func collapseToOneSeason(samples []int) (seasonsN int, merged []int, groupCount int) {
	total := 0
	for _, s := range samples {
		total += s
	}
	merged = make([]int, len(samples))
	merged[0] = total
	return 1, merged, 1
}

// runSeason sorts rows[seasonStart:seasonStart+n) by TA, bins by
// CLASSER, and for each TA class applies the correlation filter and
// u*-class binning, then every enabled mode's kernel.
func runSeason(data []rows.USTRow, seasonStart, n, season, seasonsN, seasonsGroupCount int, cfg Config, result *Result) {
	seasonRows := data[seasonStart : seasonStart+n]
	sort.Slice(seasonRows, func(i, j int) bool {
		if seasonRows[i].TA != seasonRows[j].TA {
			return seasonRows[i].TA < seasonRows[j].TA
		}
		return seasonRows[i].OriginalIndex < seasonRows[j].OriginalIndex
	})

	taKeys := make([]numeric.Value, len(data))
	for i := seasonStart; i < seasonStart+n; i++ {
		taKeys[i] = data[i].TA
	}
	taWindows := classer.Bin(taKeys, seasonStart, n, cfg.TAClasses)

	for taClass, w := range taWindows {
		if w.Empty() || w.Len() < TAClassMinSample {
			continue
		}

		taSeries := make([]numeric.Value, len(data))
		ustarSeries := make([]numeric.Value, len(data))
		for i := w.Start; i <= w.End; i++ {
			taSeries[i] = data[i].TA
			ustarSeries[i] = data[i].Ustar
		}
		corr := stat.Correlation(taSeries, ustarSeries, w.Start, w.End)
		if !numeric.Valid(corr) || math.Abs(corr) > CorrelationCheck {
			continue
		}

		classRows := data[w.Start : w.End+1]
		sort.Slice(classRows, func(i, j int) bool {
			if classRows[i].Ustar != classRows[j].Ustar {
				return classRows[i].Ustar < classRows[j].Ustar
			}
			return classRows[i].OriginalIndex < classRows[j].OriginalIndex
		})

		ustarTotal := w.Len()
		percentileIndexFloat := float64(ustarTotal)/100.0*float64(cfg.PercentileValue) - 1.0
		percentileIndex := int(percentileIndexFloat)
		if percentileIndex < 0 {
			percentileIndex = 0
		}
		if percentileIndex >= ustarTotal {
			percentileIndex = ustarTotal - 1
		}
		percentile := data[w.Start+percentileIndex].Ustar

		ustarKeys := make([]numeric.Value, len(data))
		for i := w.Start; i <= w.End; i++ {
			ustarKeys[i] = data[i].Ustar
		}
		ustarWindows := classer.Bin(ustarKeys, w.Start, ustarTotal, cfg.UstarClasses)

		ustarMean := make([]numeric.Value, cfg.UstarClasses)
		fxMean := make([]numeric.Value, cfg.UstarClasses)
		for i, uw := range ustarWindows {
			if uw.Empty() {
				ustarMean[i] = 0
				fxMean[i] = 0
				continue
			}
			var uSum, fSum float64
			for y := uw.Start; y <= uw.End; y++ {
				uSum += data[y].Ustar
				fSum += data[y].NEE
			}
			cnt := float64(uw.Len())
			ustarMean[i] = uSum / cnt
			fxMean[i] = fSum / cnt
		}

		if ustarMean[0] > FirstUstarMeanCheck {
			continue
		}

		for _, m := range AllModes {
			if !cfg.EnabledModes[m] {
				continue
			}
			spec := cfg.specFor(m)
			var threshold numeric.Value
			var percentiled bool
			if spec.Kind == Forward {
				threshold, percentiled = forwardMode(ustarMean, fxMean, cfg.UstarClasses, spec.Window, cfg.PercentileCheck, percentile, cfg.ThresholdCheck, spec.N)
			} else {
				threshold, percentiled = backMode(ustarMean, fxMean, cfg.UstarClasses, spec.Window, cfg.PercentileCheck, percentile, cfg.ThresholdCheck, spec.N, cfg.PercentileValue)
			}

			result.ByMode[m][season].Classes[taClass] = ClassResult{Threshold: threshold, Percentiled: percentiled}
			if seasonsN == 1 {
				for i := 0; i < seasonsGroupCount; i++ {
					result.ByMode[m][i].Classes[taClass] = ClassResult{Threshold: threshold, Percentiled: percentiled}
				}
			}
		}
	}
}

// forwardMode scans ustar classes ascending, accepting the first class
// whose forward windowed NEE means are all dominated by the current
// NEE (a plateau), or short-circuiting on the percentile check.
func forwardMode(ustarMean, fxMean []numeric.Value, ustarClassesCount, window int, percentileCheck bool, percentile numeric.Value, thresholdCheck float64, n int) (numeric.Value, bool) {
	if n < 1 || ustarClassesCount-n <= 0 {
		return numeric.Invalid, false
	}

	means := make([]numeric.Value, n)
	for i := 0; i <= ustarClassesCount-n; i++ {
		if percentileCheck && ustarMean[i+n-1] >= percentile {
			return ustarMean[i+n-1], true
		}

		invalid := false
		for y := 0; y < n; y++ {
			means[y] = stat.Meanws(fxMean, i+1+y, window)
			if !numeric.Valid(means[y]) {
				invalid = true
				break
			}
		}
		if invalid {
			continue
		}

		z := 0
		for y := 0; y < n; y++ {
			if fxMean[i+y] >= means[y]*thresholdCheck {
				z++
			}
		}
		if z == n {
			return ustarMean[i], false
		}
	}

	return numeric.ThresholdNotFound, false
}

// backMode scans ustar classes descending from the percentile-derived
// start index, accepting the first class whose backward windowed NEE
// mean dominates the preceding n NEE values. The loop bound `i > n`
// (excluding i==n) is preserved as-written in the original source;
// per design note this off-by-one-looking bound is intentional and
// not corrected here.
func backMode(ustarMean, fxMean []numeric.Value, ustarClassesCount, maxWindowSize int, percentileCheck bool, percentile numeric.Value, thresholdCheck float64, n, percentileValue int) (numeric.Value, bool) {
	if n < 1 || ustarClassesCount-n <= 0 {
		return numeric.Invalid, false
	}

	start := (ustarClassesCount * percentileValue) / 100

	for i := start; i > n; i-- {
		size := ustarClassesCount - i
		if size == 0 {
			continue
		}
		if size > maxWindowSize {
			size = maxWindowSize
		}
		mean := stat.Meanws(fxMean, i, size)
		if !numeric.Valid(mean) {
			continue
		}

		z := 0
		for j := 0; j < n; j++ {
			if fxMean[i-(1+j)] <= mean*thresholdCheck {
				z++
			}
		}
		if z == n {
			return ustarMean[i-1], false
		}
	}

	if percentileCheck {
		return ustarMean[start], true
	}
	return numeric.ThresholdNotFound, false
}
