package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluxnet/oneflux-sub002/internal/calendar"
	"github.com/fluxnet/oneflux-sub002/internal/numeric"
	"github.com/fluxnet/oneflux-sub002/internal/rows"
)

func TestReadUSTBasic(t *testing.T) {
	csvData := "TIMESTAMP_END,NEE,TA,USTAR,SW_IN\n" +
		"200101010030,1.1,10.0,0.5,0\n" +
		"200101010100,2.2,11.0,0.6,100\n"

	var src CSVSource
	rowsOut, info, err := src.ReadUST(strings.NewReader(csvData), DefaultUSTColumns(), calendar.HalfHourly)
	require.NoError(t, err)
	require.Equal(t, 0, info.Year)

	require.Equal(t, 1.1, rowsOut[0].NEE)
	require.Equal(t, 10.0, rowsOut[0].TA)
	require.True(t, rowsOut[0].Flags.AllValid())
	require.Equal(t, 2.2, rowsOut[1].NEE)
}

func TestReadUSTInfoBlock(t *testing.T) {
	csvData := "site US-ABC\nyear 2001\n" +
		"TIMESTAMP_END,NEE,TA,USTAR,SW_IN\n" +
		"200101010030,1.1,10.0,0.5,0\n"

	var src CSVSource
	rowsOut, info, err := src.ReadUST(strings.NewReader(csvData), DefaultUSTColumns(), calendar.HalfHourly)
	require.NoError(t, err)
	require.Equal(t, "US-ABC", info.Site)
	require.Equal(t, 2001, info.Year)
	require.Equal(t, 1.1, rowsOut[0].NEE)
}

func TestReadUSTMissingValueNormalized(t *testing.T) {
	csvData := "TIMESTAMP_END,NEE,TA,USTAR,SW_IN\n" +
		"200101010030,-9999,NaN,,100\n"

	var src CSVSource
	rowsOut, _, err := src.ReadUST(strings.NewReader(csvData), DefaultUSTColumns(), calendar.HalfHourly)
	require.NoError(t, err)
	require.Equal(t, numeric.Invalid, rowsOut[0].NEE)
	require.False(t, rowsOut[0].Flags.NEEValid)
	require.False(t, rowsOut[0].Flags.TAValid)
	require.False(t, rowsOut[0].Flags.UstarValid)
}

func TestReadUSTRequiresColumns(t *testing.T) {
	csvData := "TIMESTAMP_END,NEE,TA\n200101010030,1,2\n"
	var src CSVSource
	_, _, err := src.ReadUST(strings.NewReader(csvData), DefaultUSTColumns(), calendar.HalfHourly)
	require.Error(t, err)
}

func TestReadMDSBasic(t *testing.T) {
	csvData := "TIMESTAMP_END,NEE,SW_IN,TA,VPD\n" +
		"200101010030,1.1,50,10,5\n"

	var src CSVSource
	rowsOut, _, err := src.ReadMDS(strings.NewReader(csvData), DefaultMDSColumns(), calendar.HalfHourly)
	require.NoError(t, err)
	require.Equal(t, 1.1, rowsOut[0].Target)
	require.True(t, rowsOut[0].Assigned)
}

func TestReadUSTNightFlag(t *testing.T) {
	csvData := "TIMESTAMP_END,NEE,TA,USTAR,SW_IN\n" +
		"200101010030,1,10,0.5,5\n" +
		"200101011230,1,10,0.5,500\n"

	var src CSVSource
	rowsOut, _, err := src.ReadUST(strings.NewReader(csvData), DefaultUSTColumns(), calendar.HalfHourly)
	require.NoError(t, err)
	require.Equal(t, rows.Night, rowsOut[0].Night)
	require.Equal(t, rows.Day, rowsOut[24].Night) // TIMESTAMP_END 12:30 is row 24
}
