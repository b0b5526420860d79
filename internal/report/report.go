// Package report renders UST's fixed-width text report and MDS's CSV
// output, grounded on the teacher's tabwriter-based tables
// (study.go's printHorizonTable/printMonotonicityTable) and its
// streaming day-by-day CSV writers (report.go).
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fluxnet/oneflux-sub002/internal/bootstrap"
	"github.com/fluxnet/oneflux-sub002/internal/calendar"
	"github.com/fluxnet/oneflux-sub002/internal/mds"
	"github.com/fluxnet/oneflux-sub002/internal/numeric"
	"github.com/fluxnet/oneflux-sub002/internal/ustar"
)

// WriteUSTReport renders the per-mode class matrices, per-season
// sample counts and selected thresholds, the bootstrap iteration
// blocks, and the final percentile tables, per §6's UST output format.
func WriteUSTReport(w io.Writer, result ustar.Result, boot bootstrap.Result, enabledModes []ustar.Mode, provenance string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	for _, m := range enabledModes {
		outcomes := result.ByMode[m]
		fmt.Fprintf(tw, "== %s ==\n", m)
		fmt.Fprint(tw, "SEASON")
		for c := 0; c < len(outcomes[0].Classes); c++ {
			fmt.Fprintf(tw, "\tTA%d", c)
		}
		fmt.Fprintln(tw, "\tSAMPLES\tSELECTED")
		for s, outcome := range outcomes {
			fmt.Fprintf(tw, "%d", s)
			for _, cls := range outcome.Classes {
				fmt.Fprintf(tw, "\t%s", formatThreshold(cls.Threshold, cls.Percentiled))
			}
			samples := 0
			if s < len(result.SamplesPerSeason) {
				samples = result.SamplesPerSeason[s]
			}
			fmt.Fprintf(tw, "\t%d\t%s\n", samples, formatValue(outcome.Median))
		}
		fmt.Fprintf(tw, "OVERALL SELECTED\t%s\n\n", formatValue(result.Selected[m]))
	}
	tw.Flush()

	for b, it := range boot.Iterations {
		fmt.Fprintf(tw, "-- bootstrap iteration %d --\n", b)
		for _, m := range enabledModes {
			medians := it.SeasonMedians[m]
			fmt.Fprintf(tw, "%s", m)
			for _, med := range medians {
				fmt.Fprintf(tw, "\t%s", formatValue(med))
			}
			fmt.Fprintln(tw)
		}
		fmt.Fprint(tw, "samples")
		for _, s := range it.SamplesPerSeason {
			fmt.Fprintf(tw, "\t%d", s)
		}
		fmt.Fprintln(tw)
	}
	fmt.Fprintln(tw)
	tw.Flush()

	for _, m := range enabledModes {
		summary := boot.Summaries[m]
		fmt.Fprintf(tw, "-- percentiles %s\n", m)
		if summary.NotEnoughValues {
			fmt.Fprintln(tw, "not enough values. percentiles not computed.")
		} else {
			for _, p := range bootstrap.DefaultPercentiles {
				mark := ""
				if p == 50 {
					mark = " 50%"
				}
				fmt.Fprintf(tw, "%v%s\n", summary.Percentiles[p], mark)
			}
		}
		fmt.Fprintln(tw)
	}
	fmt.Fprintf(tw, "-- %s\n", provenance)
	tw.Flush()
}

func formatThreshold(v numeric.Value, percentiled bool) string {
	s := formatValue(v)
	if percentiled {
		return s + "*"
	}
	return s
}

func formatValue(v numeric.Value) string {
	if !numeric.Valid(v) {
		return "NA"
	}
	return fmt.Sprintf("%g", v)
}

// WriteMDSCSV renders the canonical MDS output CSV header and one row
// per GapResult, per §6. dateHeader is "TIMESTAMP" or "DTime" per the
// ingest mode; targetName is the filled column's variable name. When
// dtime is set, the label column holds calendar.DTime's fractional
// decimal day-of-year instead of the YYYYMMDDHHMM timestamp, mirroring
// gf_mds's -dtime output switch.
func WriteMDSCSV(w io.Writer, res calendar.Resolution, year int, dateHeader, targetName string, dtime bool, originals []numeric.Value, results []mds.GapResult) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{dateHeader, targetName, "FILLED", "QC", "HAT", "SAMPLE", "STDDEV", "METHOD", "QC_HAT", "TIMEWINDOW"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, r := range results {
		var label string
		if dtime {
			label = fmt.Sprintf("%g", calendar.DTime(i, res))
		} else if ts, err := calendar.TimestampEndForRow(year, i, res); err == nil {
			label = calendar.FormatYYYYMMDDHHMM(ts)
		} else {
			label = "NA"
		}

		qc := 0
		if !r.TargetValid {
			qc = r.Quality
		}

		row := []string{
			label,
			formatValue(originals[i]),
			formatValue(r.Filled),
			fmt.Sprintf("%d", qc),
			formatValue(r.Filled),
			fmt.Sprintf("%d", r.SamplesCount),
			formatValue(r.StdDev),
			fmt.Sprintf("%d", r.Method),
			fmt.Sprintf("%d", r.Quality),
			fmt.Sprintf("%d", r.TimeWindowDays),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}
