// Package ingest is the external collaborator (§6) that turns a CSV
// site-year file into the dense row arrays UST and MDS operate on. The
// wire format, header discovery, and info-block handling are not part
// of the core spec; this package models them as a RowSource interface
// with a minimal encoding/csv-backed default, per SPEC_FULL.md.
package ingest

import (
	"bufio"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/fluxnet/oneflux-sub002/internal/calendar"
	"github.com/fluxnet/oneflux-sub002/internal/errs"
	"github.com/fluxnet/oneflux-sub002/internal/numeric"
	"github.com/fluxnet/oneflux-sub002/internal/rows"
)

// SWInForNight is the radiation threshold below which a row counts as
// night (SWIN_FOR_NIGHT in the original source).
const SWInForNight = 10.0

// SiteInfo is the optional leading info-block's content.
type SiteInfo struct {
	Site       string
	Year       int
	Lat, Lon   float64
	Timezone   string
	Resolution calendar.Resolution
}

// USTColumns names the header tokens UST reads (case-insensitive).
type USTColumns struct {
	NEE, TA, Ustar, SWIn string
}

// DefaultUSTColumns matches the canonical FLUXNET naming.
func DefaultUSTColumns() USTColumns {
	return USTColumns{NEE: "NEE", TA: "TA", Ustar: "USTAR", SWIn: "SW_IN"}
}

// MDSColumns names the header tokens MDS reads.
type MDSColumns struct {
	Target, SWIn, TA, VPD, Date string
	DTime                       bool
}

// DefaultMDSColumns matches the canonical FLUXNET naming.
func DefaultMDSColumns() MDSColumns {
	return MDSColumns{Target: "NEE", SWIn: "SW_IN", TA: "TA", VPD: "VPD", Date: "TIMESTAMP_END"}
}

// RowSource reads a site-year CSV into the dense arrays UST/MDS need.
type RowSource interface {
	ReadUST(r io.Reader, cols USTColumns, res calendar.Resolution) ([]rows.USTRow, SiteInfo, error)
	ReadMDS(r io.Reader, cols MDSColumns, res calendar.Resolution) ([]rows.MDSRow, SiteInfo, error)
}

// CSVSource is the default RowSource: UTF-8 CSV, comma-delimited,
// LF/CRLF terminated, with an optional leading "site" info block.
type CSVSource struct{}

func normalize(s string) numeric.Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return numeric.Invalid
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return numeric.Invalid
	}
	return numeric.Normalize(v)
}

func headerIndex(names []string, want string) int {
	for i, n := range names {
		if strings.EqualFold(strings.TrimSpace(n), want) {
			return i
		}
	}
	return -1
}

// skipInfoBlock consumes an optional leading "site ..." block,
// returning whatever SiteInfo it could parse and the buffered reader
// positioned at the header line.
func skipInfoBlock(br *bufio.Reader) (SiteInfo, error) {
	var info SiteInfo
	peek, err := br.Peek(4)
	if err != nil && err != io.EOF {
		return info, errs.Wrap(errs.IoFailure, "peeking input: %v", err)
	}
	if !strings.EqualFold(string(peek), "site") {
		return info, nil
	}

	for {
		// The info block ends once the next line is the data header
		// line. Peek at it without consuming it, so that the caller's
		// csv.Reader reads it next.
		ahead, perr := br.Peek(br.Size())
		if perr != nil && perr != io.EOF {
			return info, errs.Wrap(errs.IoFailure, "peeking input: %v", perr)
		}
		next := string(ahead)
		if nl := strings.IndexByte(next, '\n'); nl >= 0 {
			next = next[:nl]
		}
		if looksLikeHeader(next) {
			break
		}
		line, err := br.ReadString('\n')
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			parseInfoLine(&info, trimmed)
		}
		if err != nil {
			break
		}
	}
	return info, nil
}

func looksLikeHeader(line string) bool {
	upper := strings.ToUpper(line)
	return strings.Contains(upper, "TIMESTAMP") || strings.Contains(upper, "DTIME")
}

func parseInfoLine(info *SiteInfo, line string) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return
	}
	switch strings.ToLower(fields[0]) {
	case "site":
		if len(fields) > 1 {
			info.Site = fields[1]
		}
	case "year":
		if y, err := strconv.Atoi(fields[1]); err == nil {
			info.Year = y
		}
	case "lat":
		if v, err := strconv.ParseFloat(fields[1], 64); err == nil {
			info.Lat = v
		}
	case "lon":
		if v, err := strconv.ParseFloat(fields[1], 64); err == nil {
			info.Lon = v
		}
	case "timezone":
		info.Timezone = fields[1]
	case "htower", "resolution":
		if strings.EqualFold(fields[1], "hr") {
			info.Resolution = calendar.Hourly
		}
	}
}

// ReadUST parses r into a dense UST row array at resolution res. Rows
// are addressed by their TIMESTAMP_END-derived row index; month_per_group
// and night are derived here since they depend only on the calendar
// and SW_IN, not on SEAS (the caller attributes seasons afterward).
func (CSVSource) ReadUST(r io.Reader, cols USTColumns, res calendar.Resolution) ([]rows.USTRow, SiteInfo, error) {
	br := bufio.NewReader(r)
	info, err := skipInfoBlock(br)
	if err != nil {
		return nil, info, err
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, info, errs.Wrap(errs.InputMalformed, "reading header: %v", err)
	}

	dateIdx := headerIndex(header, "TIMESTAMP_END")
	usingDtime := false
	if dateIdx < 0 {
		dateIdx = headerIndex(header, "Dtime")
		usingDtime = dateIdx >= 0
	}
	if dateIdx < 0 {
		dateIdx = headerIndex(header, "TIMESTAMP")
	}
	if dateIdx < 0 {
		return nil, info, errs.Wrap(errs.InputMalformed, "no TIMESTAMP, TIMESTAMP_END, or Dtime column found")
	}

	neeIdx := headerIndex(header, cols.NEE)
	taIdx := headerIndex(header, cols.TA)
	ustarIdx := headerIndex(header, cols.Ustar)
	swinIdx := headerIndex(header, cols.SWIn)
	if neeIdx < 0 || taIdx < 0 || ustarIdx < 0 || swinIdx < 0 {
		return nil, info, errs.Wrap(errs.InputMalformed, "missing one of NEE/TA/USTAR/SW_IN columns")
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, info, errs.Wrap(errs.InputMalformed, "reading data rows: %v", err)
	}

	year := resolveYear(info.Year, records, dateIdx, usingDtime)
	arr := rows.NewUSTArray(calendar.RowsPerYear(year, res))

	for idx, record := range records {
		var rowIndex int
		if usingDtime {
			dt, perr := strconv.ParseFloat(strings.TrimSpace(record[dateIdx]), 64)
			if perr != nil {
				return nil, info, errs.Wrap(errs.InputMalformed, "bad Dtime %q at row %d", record[dateIdx], idx)
			}
			rowIndex = calendar.RowFromDTime(dt, res) - 1
		} else {
			ts, perr := calendar.ParseYYYYMMDDHHMM(strings.TrimSpace(record[dateIdx]))
			if perr != nil {
				return nil, info, errs.Wrap(errs.InputMalformed, "bad timestamp %q at row %d", record[dateIdx], idx)
			}
			rowIndex, perr = calendar.RowIndexFromEnd(year, ts, res)
			if perr != nil {
				return nil, info, errs.Wrap(errs.InputMalformed, "timestamp %q out of range at row %d", record[dateIdx], idx)
			}
		}
		if rowIndex < 0 || rowIndex >= len(arr) {
			return nil, info, errs.Wrap(errs.InputMalformed, "row index %d out of range at data row %d", rowIndex, idx)
		}

		nee := normalize(record[neeIdx])
		ta := normalize(record[taIdx])
		ustar := normalize(record[ustarIdx])
		swin := normalize(record[swinIdx])

		night := rows.Day
		if numeric.Valid(swin) && swin < SWInForNight {
			night = rows.Night
		}

		rowTS, _ := calendar.TimestampEndForRow(year, rowIndex, res)

		arr[rowIndex] = rows.USTRow{
			NEE:   nee,
			TA:    ta,
			Ustar: ustar,
			SWIn:  swin,
			Night: night,
			Flags: rows.ValidFlags{
				NEEValid:   numeric.Valid(nee),
				TAValid:    numeric.Valid(ta),
				UstarValid: numeric.Valid(ustar),
			},
			Timestamp:     rowTS,
			MonthZero:     rowTS.Month - 1,
			OriginalIndex: rowIndex,
		}
	}

	return arr, info, nil
}

// ReadMDS parses r into a dense MDS row array.
func (CSVSource) ReadMDS(r io.Reader, cols MDSColumns, res calendar.Resolution) ([]rows.MDSRow, SiteInfo, error) {
	br := bufio.NewReader(r)
	info, err := skipInfoBlock(br)
	if err != nil {
		return nil, info, err
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, info, errs.Wrap(errs.InputMalformed, "reading header: %v", err)
	}

	usingDtime := cols.DTime
	dateIdx := -1
	if !usingDtime {
		dateIdx = headerIndex(header, cols.Date)
	}
	if dateIdx < 0 {
		dateIdx = headerIndex(header, "Dtime")
		usingDtime = dateIdx >= 0
	}
	if dateIdx < 0 {
		return nil, info, errs.Wrap(errs.InputMalformed, "no %s or Dtime column found", cols.Date)
	}

	targetIdx := headerIndex(header, cols.Target)
	swinIdx := headerIndex(header, cols.SWIn)
	taIdx := headerIndex(header, cols.TA)
	vpdIdx := headerIndex(header, cols.VPD)
	if targetIdx < 0 || swinIdx < 0 || taIdx < 0 || vpdIdx < 0 {
		return nil, info, errs.Wrap(errs.InputMalformed, "missing one of %s/%s/%s/%s columns", cols.Target, cols.SWIn, cols.TA, cols.VPD)
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, info, errs.Wrap(errs.InputMalformed, "reading data rows: %v", err)
	}

	year := resolveYear(info.Year, records, dateIdx, usingDtime)
	arr := rows.NewMDSArray(calendar.RowsPerYear(year, res))

	for idx, record := range records {
		var rowIndex int
		if usingDtime {
			dt, perr := strconv.ParseFloat(strings.TrimSpace(record[dateIdx]), 64)
			if perr != nil {
				return nil, info, errs.Wrap(errs.InputMalformed, "bad Dtime %q at row %d", record[dateIdx], idx)
			}
			rowIndex = calendar.RowFromDTime(dt, res) - 1
		} else {
			ts, perr := calendar.ParseYYYYMMDDHHMM(strings.TrimSpace(record[dateIdx]))
			if perr != nil {
				return nil, info, errs.Wrap(errs.InputMalformed, "bad timestamp %q at row %d", record[dateIdx], idx)
			}
			rowIndex, perr = calendar.RowIndexFromEnd(year, ts, res)
			if perr != nil {
				return nil, info, errs.Wrap(errs.InputMalformed, "timestamp %q out of range at row %d", record[dateIdx], idx)
			}
		}
		if rowIndex < 0 || rowIndex >= len(arr) {
			return nil, info, errs.Wrap(errs.InputMalformed, "row index %d out of range at data row %d", rowIndex, idx)
		}

		arr[rowIndex] = rows.MDSRow{
			Target:   normalize(record[targetIdx]),
			SWIn:     normalize(record[swinIdx]),
			TA:       normalize(record[taIdx]),
			VPD:      normalize(record[vpdIdx]),
			RowIndex: rowIndex,
			Assigned: true,
		}
	}

	return arr, info, nil
}

// resolveYear returns the declared info-block year if present, otherwise
// infers it from the first data row's TIMESTAMP/TIMESTAMP_END. Dtime-keyed
// files carry no year at all; 2000 is used as the resolution's reference
// year for array sizing (a leap year, matching the Dtime rows/2 convention).
func resolveYear(declared int, records [][]string, dateIdx int, usingDtime bool) int {
	if declared != 0 {
		return declared
	}
	if usingDtime || len(records) == 0 {
		return 2000
	}
	ts, err := calendar.ParseYYYYMMDDHHMM(strings.TrimSpace(records[0][dateIdx]))
	if err != nil {
		return 2000
	}
	if ts.Month == 1 && ts.Day == 1 && ts.Hour == 0 && ts.Minute == 0 {
		return ts.Year - 1
	}
	return ts.Year
}
