// Package stat implements the numeric primitives (STAT) the u*
// threshold engine and its mode kernels are built on: a sentinel
// propagating windowed mean, Pearson correlation over a TA/u* window,
// a median that filters both the invalid sentinel and the
// threshold-not-found marker, and a rank-based percentile.
//
// Median and the final sort delegate to montanaflynn/stats and the
// standard sort package; meanws and correlation keep their
// sentinel-propagating contracts hand-rolled since neither
// montanaflynn nor gonum model an explicit "missing" sentinel.
package stat

import (
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"

	"github.com/fluxnet/oneflux-sub002/internal/numeric"
)

// Meanws computes the mean of arr[i:i+k), returning numeric.Invalid if
// any element in the window is the invalid sentinel or the result is
// NaN. A start index past len(arr) returns 0, matching the original
// kernel's defensive fallback; a start index equal to len(arr) leaves
// an empty window and returns numeric.Invalid.
func Meanws(arr []numeric.Value, i, k int) numeric.Value {
	n := len(arr)
	if i > n {
		return 0
	}
	var sum float64
	count := 0
	end := i + k
	if end > n {
		end = n
	}
	for j := i; j < end; j++ {
		if !numeric.Valid(arr[j]) {
			return numeric.Invalid
		}
		sum += arr[j]
		count++
	}
	if count == 0 {
		return numeric.Invalid
	}
	mean := sum / float64(count)
	if math.IsNaN(mean) {
		return numeric.Invalid
	}
	return mean
}

// Correlation computes Pearson's r between two parallel series
// (typically TA and u*) over rows[s:e] inclusive, returning
// numeric.Invalid if any element is invalid or the result is NaN.
func Correlation(xs, ys []numeric.Value, s, e int) numeric.Value {
	n := e - s + 1
	if n <= 0 {
		return numeric.Invalid
	}
	var xmean, ymean float64
	for i := s; i <= e; i++ {
		if !numeric.Valid(xs[i]) || !numeric.Valid(ys[i]) {
			return numeric.Invalid
		}
		xmean += xs[i]
		ymean += ys[i]
	}
	xmean /= float64(n)
	ymean /= float64(n)

	var xv, yv, cov float64
	for i := s; i <= e; i++ {
		dx := xs[i] - xmean
		dy := ys[i] - ymean
		xv += dx * dx
		yv += dy * dy
		cov += dx * dy
	}
	corr := cov / (math.Sqrt(xv) * math.Sqrt(yv))
	if math.IsNaN(corr) {
		return numeric.Invalid
	}
	return corr
}

// Median sorts a filtered copy of vals, excluding the invalid sentinel
// and the threshold-not-found marker, and returns the midpoint (even N)
// or center element (odd N). It returns numeric.Invalid if no value
// survives filtering. The "bigger-value substitution" variant from the
// original source (median_ustar_threshold_old) is intentionally not
// reproduced — current upstream behavior excludes those values outright.
func Median(vals []numeric.Value) numeric.Value {
	filtered := make([]float64, 0, len(vals))
	for _, v := range vals {
		if numeric.Valid(v) && !numeric.FloatEqual(v, numeric.ThresholdNotFound) {
			filtered = append(filtered, v)
		}
	}
	if len(filtered) == 0 {
		return numeric.Invalid
	}
	m, err := mstats.Median(filtered)
	if err != nil {
		return numeric.Invalid
	}
	return m
}

// Percentile returns the rank-based p-th percentile of an
// already-sorted-ascending slice: index = ceil(p*N/100) - 1, clamped to
// [0, N-1].
func Percentile(sorted []numeric.Value, p float64) numeric.Value {
	n := len(sorted)
	if n == 0 {
		return numeric.Invalid
	}
	idx := int(math.Ceil(p*float64(n)/100.0)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

// SortAscending sorts a copy of vals ascending using the standard
// library (montanaflynn's Sort shells out to the same algorithm; kept
// as a thin, explicit wrapper so call sites read like the rest of this
// package).
func SortAscending(vals []numeric.Value) []numeric.Value {
	out := append([]numeric.Value(nil), vals...)
	sort.Float64s(out)
	return out
}

// FloatEqual re-exports numeric.FloatEqual for callers that only import
// stat.
func FloatEqual(a, b float64) bool {
	return numeric.FloatEqual(a, b)
}
