// Package rows implements the dense, year-indexed row containers (VEC)
// shared by the u* threshold engine and the MDS gap-filler. Every row
// is pre-populated with the invalid sentinel until explicitly assigned,
// matching I2 of the data model.
package rows

import (
	"github.com/fluxnet/oneflux-sub002/internal/calendar"
	"github.com/fluxnet/oneflux-sub002/internal/numeric"
)

// NightState is the tri-state day/night/unknown flag UST rows carry.
type NightState int

const (
	Unknown NightState = iota
	Day
	Night
)

// ValidFlags is a small named-member set replacing the C bitset
// NEE_VALID|TA_VALID|USTAR_VALID (DESIGN NOTES: bit-flag integers).
type ValidFlags struct {
	NEEValid, TAValid, UstarValid bool
}

// AllValid reports whether every tracked driver/target is valid.
func (f ValidFlags) AllValid() bool {
	return f.NEEValid && f.TAValid && f.UstarValid
}

// MDSRow is one row of the MDS (C2) dense array: a fixed tuple of
// measurements plus the "assigned" flag from I2.
type MDSRow struct {
	Target   numeric.Value
	SWIn     numeric.Value
	TA       numeric.Value
	VPD      numeric.Value
	RowIndex int
	Assigned bool
}

// USTRow is one row of the UST (C1) dense array.
type USTRow struct {
	NEE       numeric.Value
	TA        numeric.Value
	Ustar     numeric.Value
	SWIn      numeric.Value
	Night     NightState
	MonthZero int // 0..11, per-group month index
	Flags     ValidFlags
	Timestamp calendar.Timestamp
	// OriginalIndex anchors a row to its position in the full site-year
	// array. BOOT relies on this to re-sort a bootstrap sample back into
	// original row order after drawing with replacement (DESIGN NOTES:
	// comparators must break ties by original row index).
	OriginalIndex int
}

// NightValid reports whether row counts as "nighttime-valid" per I3:
// flags == ALL_VALID and night == Night.
func (r USTRow) NightValid() bool {
	return r.Flags.AllValid() && r.Night == Night
}

// NewMDSArray allocates a dense MDS row array for rowCount rows, every
// slot carrying the invalid sentinel and Assigned=false (I2).
func NewMDSArray(rowCount int) []MDSRow {
	arr := make([]MDSRow, rowCount)
	for i := range arr {
		arr[i] = MDSRow{
			Target: numeric.Invalid,
			SWIn:   numeric.Invalid,
			TA:     numeric.Invalid,
			VPD:    numeric.Invalid,
		}
	}
	return arr
}

// NewUSTArray allocates a dense UST row array, every slot holding the
// invalid sentinel and NightState Unknown until assigned.
func NewUSTArray(rowCount int) []USTRow {
	arr := make([]USTRow, rowCount)
	for i := range arr {
		arr[i] = USTRow{
			NEE:   numeric.Invalid,
			TA:    numeric.Invalid,
			Ustar: numeric.Invalid,
			SWIn:  numeric.Invalid,
			Night: Unknown,
		}
	}
	return arr
}
