// Package calendar maps between calendar timestamps and the zero-based
// row index ONEFlux uses to address a site-year at half-hourly or
// hourly resolution.
package calendar

import (
	"fmt"

	"github.com/pkg/errors"
)

// Resolution is the temporal resolution of a site-year dataset.
type Resolution int

const (
	HalfHourly Resolution = iota
	Hourly
)

// SlotsPerDay and SlotsPerHour describe a Resolution's row layout.
func (r Resolution) SlotsPerDay() int {
	if r == Hourly {
		return 24
	}
	return 48
}

func (r Resolution) SlotsPerHour() int {
	if r == Hourly {
		return 1
	}
	return 2
}

func (r Resolution) StepMinutes() int {
	if r == Hourly {
		return 60
	}
	return 30
}

func (r Resolution) String() string {
	if r == Hourly {
		return "HR"
	}
	return "HH"
}

// ErrInvalidTimestamp is returned whenever a timestamp is malformed,
// out of the calendar range, or misaligned with the resolution step.
var ErrInvalidTimestamp = errors.New("InvalidTimestamp")

// Timestamp is a calendar instant at minute precision.
type Timestamp struct {
	Year, Month, Day, Hour, Minute int
}

// IsLeap reports whether year follows the standard Gregorian leap rule.
func IsLeap(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// RowsPerYear is the number of rows a full site-year occupies at res.
func RowsPerYear(year int, res Resolution) int {
	days := 365
	if IsLeap(year) {
		days = 366
	}
	return days * res.SlotsPerDay()
}

var daysInMonthCommon = [13]int{0, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func daysInMonth(year, month int) int {
	if month == 2 && IsLeap(year) {
		return 29
	}
	return daysInMonthCommon[month]
}

// dayOfYear returns the 1-based day-of-year for (year, month, day).
func dayOfYear(year, month, day int) (int, error) {
	if month < 1 || month > 12 {
		return 0, errors.Wrapf(ErrInvalidTimestamp, "month %d out of range", month)
	}
	if day < 1 || day > daysInMonth(year, month) {
		return 0, errors.Wrapf(ErrInvalidTimestamp, "day %d out of range for %04d-%02d", day, year, month)
	}
	doy := day
	for m := 1; m < month; m++ {
		doy += daysInMonth(year, m)
	}
	return doy, nil
}

// dateFromDOY is the inverse of dayOfYear.
func dateFromDOY(year, doy int) (month, day int, err error) {
	maxDoy := 365
	if IsLeap(year) {
		maxDoy = 366
	}
	if doy < 1 || doy > maxDoy {
		return 0, 0, errors.Wrapf(ErrInvalidTimestamp, "day-of-year %d out of range for %04d", doy, year)
	}
	remaining := doy
	for m := 1; m <= 12; m++ {
		dim := daysInMonth(year, m)
		if remaining <= dim {
			return m, remaining, nil
		}
		remaining -= dim
	}
	return 0, 0, errors.Wrap(ErrInvalidTimestamp, "unreachable day-of-year resolution")
}

const minutesPerDay = 24 * 60

// TimestampStartForRow returns the start-of-interval timestamp for row:
// row 0 at HH starts at 00:00.
func TimestampStartForRow(year, row int, res Resolution) (Timestamp, error) {
	if row < 0 || row >= RowsPerYear(year, res) {
		return Timestamp{}, errors.Wrapf(ErrInvalidTimestamp, "row %d out of range for year %d", row, year)
	}
	minutes := row * res.StepMinutes()
	return timestampFromYearMinutes(year, minutes)
}

// TimestampEndForRow returns the end-of-interval timestamp for row: row 0
// at HH ends at 00:30. The last row of the year ends at 00:00 of Jan 1 of
// year+1, matching how ONEFlux data represents TIMESTAMP_END.
func TimestampEndForRow(year, row int, res Resolution) (Timestamp, error) {
	if row < 0 || row >= RowsPerYear(year, res) {
		return Timestamp{}, errors.Wrapf(ErrInvalidTimestamp, "row %d out of range for year %d", row, year)
	}
	minutes := (row + 1) * res.StepMinutes()
	return timestampFromYearMinutes(year, minutes)
}

// timestampFromYearMinutes converts "minutes elapsed since Jan 1 00:00 of
// year" into a Timestamp, rolling into Jan 1 00:00 of year+1 exactly at
// the year boundary.
func timestampFromYearMinutes(year, minutes int) (Timestamp, error) {
	total := RowsPerYear(year, HalfHourly) / 48 * minutesPerDay // days-in-year * minutesPerDay, resolution independent
	if minutes == total {
		return Timestamp{Year: year + 1, Month: 1, Day: 1, Hour: 0, Minute: 0}, nil
	}
	if minutes < 0 || minutes > total {
		return Timestamp{}, errors.Wrapf(ErrInvalidTimestamp, "minutes %d outside year %d", minutes, year)
	}
	doy := minutes/minutesPerDay + 1
	rem := minutes % minutesPerDay
	month, day, err := dateFromDOY(year, doy)
	if err != nil {
		return Timestamp{}, err
	}
	return Timestamp{Year: year, Month: month, Day: day, Hour: rem / 60, Minute: rem % 60}, nil
}

// RowIndexFromEnd inverts TimestampEndForRow: given a TIMESTAMP_END-style
// stamp believed to belong to site-year year, it returns the 0-based row.
// The stamp may legitimately read Jan 1 00:00 of year+1 (the last row).
func RowIndexFromEnd(year int, ts Timestamp, res Resolution) (int, error) {
	minutes, err := minutesFromYearStart(year, ts)
	if err != nil {
		return 0, err
	}
	if minutes%res.StepMinutes() != 0 {
		return 0, errors.Wrapf(ErrInvalidTimestamp, "minute offset %d misaligned with resolution %s", minutes, res)
	}
	row := minutes/res.StepMinutes() - 1
	if row < 0 || row >= RowsPerYear(year, res) {
		return 0, errors.Wrapf(ErrInvalidTimestamp, "timestamp resolves to out-of-range row %d", row)
	}
	return row, nil
}

// RowIndexFromStart inverts TimestampStartForRow.
func RowIndexFromStart(year int, ts Timestamp, res Resolution) (int, error) {
	minutes, err := minutesFromYearStart(year, ts)
	if err != nil {
		return 0, err
	}
	if minutes%res.StepMinutes() != 0 {
		return 0, errors.Wrapf(ErrInvalidTimestamp, "minute offset %d misaligned with resolution %s", minutes, res)
	}
	row := minutes / res.StepMinutes()
	if row < 0 || row >= RowsPerYear(year, res) {
		return 0, errors.Wrapf(ErrInvalidTimestamp, "timestamp resolves to out-of-range row %d", row)
	}
	return row, nil
}

func minutesFromYearStart(year int, ts Timestamp) (int, error) {
	if ts.Year == year+1 && ts.Month == 1 && ts.Day == 1 && ts.Hour == 0 && ts.Minute == 0 {
		total := RowsPerYear(year, HalfHourly) / 48 * minutesPerDay
		return total, nil
	}
	if ts.Year != year {
		return 0, errors.Wrapf(ErrInvalidTimestamp, "timestamp year %d does not match site-year %d", ts.Year, year)
	}
	doy, err := dayOfYear(ts.Year, ts.Month, ts.Day)
	if err != nil {
		return 0, err
	}
	if ts.Hour < 0 || ts.Hour > 23 || ts.Minute < 0 || ts.Minute > 59 {
		return 0, errors.Wrapf(ErrInvalidTimestamp, "time %02d:%02d out of range", ts.Hour, ts.Minute)
	}
	return (doy-1)*minutesPerDay + ts.Hour*60 + ts.Minute, nil
}

// FormatYYYYMMDDHHMM renders a Timestamp in ONEFlux's canonical string form.
func FormatYYYYMMDDHHMM(ts Timestamp) string {
	return fmt.Sprintf("%04d%02d%02d%02d%02d", ts.Year, ts.Month, ts.Day, ts.Hour, ts.Minute)
}

// ParseYYYYMMDDHHMM parses a canonical ONEFlux timestamp string.
func ParseYYYYMMDDHHMM(s string) (Timestamp, error) {
	if len(s) != 12 {
		return Timestamp{}, errors.Wrapf(ErrInvalidTimestamp, "timestamp %q must be 12 digits", s)
	}
	var ts Timestamp
	_, err := fmt.Sscanf(s, "%4d%2d%2d%2d%2d", &ts.Year, &ts.Month, &ts.Day, &ts.Hour, &ts.Minute)
	if err != nil {
		return Timestamp{}, errors.Wrapf(ErrInvalidTimestamp, "cannot parse timestamp %q: %v", s, err)
	}
	return ts, nil
}

// DTime converts a row index to the fractional decimal day-of-year used
// by some ONEFlux inputs: day-of-year based, so row 0 (the first
// half-hour of the year) reads 1 + 1/48 = 1.02083 (HH), 1 + 1/24 = 1.04167
// (HR), matching DTIME_TO_ROW's inverse rather than a bare row/n fraction.
func DTime(row int, res Resolution) float64 {
	n := float64(res.SlotsPerDay())
	return 1 + (float64(row)+1)/n
}

// RowFromDTime inverts DTime, returning a 1-based row that the caller
// must decrement to reach the 0-based convention used elsewhere.
func RowFromDTime(dtime float64, res Resolution) int {
	n := float64(res.SlotsPerDay())
	return int(roundHalfAwayFromZero(dtime*n - n))
}

func roundHalfAwayFromZero(v float64) float64 {
	if v < 0 {
		return -roundHalfAwayFromZero(-v)
	}
	return float64(int64(v + 0.5))
}
