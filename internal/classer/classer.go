// Package classer implements equal-count binning with tie extension
// (CLASSER): given a sorted key sequence and a target bin count K, it
// produces K index windows such that adjacent bins never split equal
// keys, preventing groups of equal-valued measurements from being
// divided across classes and biasing per-class means.
package classer

import "github.com/fluxnet/oneflux-sub002/internal/numeric"

// Window is an inclusive [Start, End] index range. Start == -1 marks an
// empty window.
type Window struct {
	Start, End int
}

// Empty reports whether w was never populated.
func (w Window) Empty() bool {
	return w.Start == -1
}

// Len returns the number of indices covered by w, or 0 if empty.
func (w Window) Len() int {
	if w.Empty() {
		return 0
	}
	return w.End - w.Start + 1
}

// Bin partitions keys[base : base+n) into k equal-count windows (absolute
// indices into keys, not offsets from base), extending each bin's end forward while the
// next key is float-equal to the current boundary key, so that no two
// adjacent non-empty bins split a run of equal values (P2, P3).
//
// keys must already be sorted ascending over [base, base+n).
func Bin(keys []numeric.Value, base, n, k int) []Window {
	windows := make([]Window, k)
	for i := range windows {
		windows[i] = Window{Start: -1, End: -1}
	}
	if n <= 0 || k <= 0 {
		return windows
	}

	size := n / k
	if size <= 0 {
		return windows
	}

	// classEnd is carried between iterations as an *exclusive* one-past-
	// the-end marker (matching the original's ta_class_end/ustar_class_end
	// convention), not an inclusive end: the original stores
	// ta_window[i].end = ta_class_end - 1 only when populating a window,
	// while the raw variable itself always means "first index not yet
	// claimed". Conflating the two conventions splits a tie run across
	// a bin boundary whenever one straddles it.
	classEnd := base
	for i := 0; i < k-1; i++ {
		classStart := classEnd
		if classStart >= base+n {
			break
		}

		candidateEnd := base + size*(i+1) - 1
		if candidateEnd >= base+n {
			candidateEnd = base + n - 1
		}
		// A tie run spanning more than one nominal bin width can push
		// classStart past this bin's nominal candidate end; clamp so
		// windows stay monotonic non-overlapping rather than inverting.
		if candidateEnd < classStart {
			candidateEnd = classStart
		}

		value := keys[candidateEnd]
		exclusiveEnd := candidateEnd + 1
		for exclusiveEnd < base+n && numeric.FloatEqual(value, keys[exclusiveEnd]) {
			exclusiveEnd++
		}

		windows[i] = Window{Start: classStart, End: exclusiveEnd - 1}
		classEnd = exclusiveEnd
	}

	// Tail forms the last bin, covering whatever remains after the first
	// k-1 bins (including the whole range when k==1, since classEnd is
	// still its initial value of base in that case).
	if classEnd < base+n {
		windows[k-1] = Window{Start: classEnd, End: base + n - 1}
	}

	return windows
}
