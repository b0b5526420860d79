// Package numeric defines the sentinel-based floating point value used
// throughout the u* threshold and gap-filling pipelines.
package numeric

import "math"

// Value is a floating point measurement that may be absent. Absence is
// represented by Invalid rather than NaN so that downstream code never
// has to special-case "value != value".
type Value = float64

// Invalid is the reserved sentinel for an absent measurement. It is the
// ONEFlux convention and is distinct from any real measurement in this
// domain (radiation, temperature, VPD, u*, NEE all have physically
// bounded ranges far from -9999).
const Invalid Value = -9999.0

// ThresholdNotFound marks a u* mode kernel that ran to completion but
// found no qualifying class. It is distinct from Invalid, which means
// "no data was available to evaluate at all".
const ThresholdNotFound Value = 10.0

// EqualTol is the tolerance used when two floating measurements are
// considered equal for binning/tie-extension purposes.
const EqualTol = 1e-7

// Valid reports whether v is usable, i.e. not the Invalid sentinel.
func Valid(v Value) bool {
	return v != Invalid
}

// Normalize converts NaN (and +/-Inf, which can never be a legitimate
// measurement here) to Invalid, leaving every other value untouched.
func Normalize(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Invalid
	}
	return v
}

// FloatEqual reports whether a and b are equal within EqualTol.
func FloatEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < EqualTol
}
