package calendar

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRowsPerYear(t *testing.T) {
	require.Equal(t, 17568, RowsPerYear(2020, HalfHourly), "2020 is a leap year")
	require.Equal(t, 17520, RowsPerYear(2021, HalfHourly), "2021 is not a leap year")
	require.Equal(t, 8784, RowsPerYear(2020, Hourly))
	require.Equal(t, 8760, RowsPerYear(2021, Hourly))
}

func TestRoundTripEndTimestamp(t *testing.T) {
	for _, res := range []Resolution{HalfHourly, Hourly} {
		for _, year := range []int{2019, 2020} {
			n := RowsPerYear(year, res)
			for row := 0; row < n; row += 37 {
				ts, err := TimestampEndForRow(year, row, res)
				require.NoError(t, err)
				got, err := RowIndexFromEnd(year, ts, res)
				require.NoError(t, err)
				require.Equal(t, row, got, "round trip failed for row %d res %v year %d", row, res, year)
			}
		}
	}
}

func TestLeapYearFebBoundary(t *testing.T) {
	// Row 0 (Jan 1 00:00-00:30) carries the END label Jan 1 00:30.
	ts, err := TimestampEndForRow(2020, 0, HalfHourly)
	require.NoError(t, err)
	require.Equal(t, Timestamp{2020, 1, 1, 0, 30}, ts)

	// Row for March 1 00:00-00:30 in a leap year must land after Feb 29.
	marchFirstStart := Timestamp{2020, 3, 1, 0, 0}
	row, err := RowIndexFromStart(2020, marchFirstStart, HalfHourly)
	require.NoError(t, err)
	require.Equal(t, 60*48, row) // Jan(31)+Feb(29) = 60 days elapsed
}

func TestLastRowEndsNextYear(t *testing.T) {
	last := RowsPerYear(2021, HalfHourly) - 1
	ts, err := TimestampEndForRow(2021, last, HalfHourly)
	require.NoError(t, err)
	require.Equal(t, Timestamp{2022, 1, 1, 0, 0}, ts)

	row, err := RowIndexFromEnd(2021, ts, HalfHourly)
	require.NoError(t, err)
	require.Equal(t, last, row)
}

func TestOutOfRangeNeverAddressed(t *testing.T) {
	_, err := TimestampEndForRow(2021, RowsPerYear(2021, HalfHourly), HalfHourly)
	require.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestMisalignedMinute(t *testing.T) {
	_, err := RowIndexFromStart(2021, Timestamp{2021, 1, 1, 0, 15}, HalfHourly)
	require.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestDTimeRoundTrip(t *testing.T) {
	row := 100
	dt := DTime(row, HalfHourly)
	got := RowFromDTime(dt, HalfHourly) - 1
	require.Equal(t, row, got)
}
