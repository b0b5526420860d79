// Command oneflux-ustar runs the u*-threshold estimator (C1) over a
// single site-year CSV: it ingests the dataset, parses the season
// grouping grammar, runs the six detection-mode kernels per season, then
// bootstraps the whole pipeline to build a percentile distribution of
// thresholds. Output is a fixed-width text report, mirroring the
// teacher's study.go report surface.
package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fluxnet/oneflux-sub002/internal/bootstrap"
	"github.com/fluxnet/oneflux-sub002/internal/calendar"
	"github.com/fluxnet/oneflux-sub002/internal/config"
	"github.com/fluxnet/oneflux-sub002/internal/ingest"
	"github.com/fluxnet/oneflux-sub002/internal/report"
	"github.com/fluxnet/oneflux-sub002/internal/rows"
	"github.com/fluxnet/oneflux-sub002/internal/season"
	"github.com/fluxnet/oneflux-sub002/internal/ustar"
)

func main() {
	root := &cobra.Command{
		Use:   "oneflux-ustar",
		Short: "Estimate the u* threshold below which NEE is rejected as insufficiently turbulent",
		RunE:  run,
	}
	config.BindUST(root.Flags())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	cfg, err := config.ReadUST(v)
	if err != nil {
		return err
	}

	log := config.NewLogger(cfg.Verbose)
	start := time.Now()

	seasons, err := season.Parse(cfg.GroupBy, false)
	if err != nil {
		return err
	}

	f, err := os.Open(cfg.InputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var src ingest.CSVSource
	fullRows, info, err := src.ReadUST(f, ingest.DefaultUSTColumns(), cfg.Resolution())
	if err != nil {
		return err
	}
	log.Info().Str("site", info.Site).Int("rows", len(fullRows)).Msg("dataset ingested")

	cleanRows, samplesPerSeason := buildCleanRows(fullRows, seasons)
	days := countUnclassifiedDays(fullRows)

	ucfg := cfg.ToUstarConfig()
	result, err := ustar.Run(cleanRows, samplesPerSeason, days, ucfg)
	if err != nil {
		log.Error().Err(err).Msg("u* threshold run failed")
		return err
	}

	workers := cfg.Workers
	if workers == 0 {
		workers = config.DefaultWorkers()
	}

	seed1, seed2 := cfg.Seed1, cfg.Seed2
	if !cfg.NoRandomSeed {
		now := uint64(time.Now().UnixNano())
		seed1, seed2 = now, now>>32
	}

	bootCfg := bootstrap.Config{
		Iterations:      cfg.BootstrappingTimes,
		Workers:         workers,
		SeasonsEndIndex: seasonRowSpaceEnds(seasons, calendar.IsLeap(info.Year), cfg.Resolution().SlotsPerDay()),
		UstarConfig:     ucfg,
		Percentiles:     bootstrap.DefaultPercentiles,
		Seed1:           seed1,
		Seed2:           seed2,
	}
	bootResult, err := bootstrap.Run(fullRows, bootCfg)
	if err != nil {
		log.Error().Err(err).Msg("bootstrap run failed")
		return err
	}

	enabledModes := make([]ustar.Mode, 0, len(ustar.AllModes))
	for _, m := range ustar.AllModes {
		if ucfg.EnabledModes[m] {
			enabledModes = append(enabledModes, m)
		}
	}

	out := os.Stdout
	if cfg.OutputPath != "" {
		outFile, err := os.Create(cfg.OutputPath)
		if err != nil {
			return err
		}
		defer outFile.Close()
		out = outFile
	}

	provenance := fmt.Sprintf("site=%s rows=%d seasons=%d workers=%d elapsed=%s go=%s",
		info.Site, len(fullRows), result.SeasonsUsed, workers, time.Since(start), runtime.Version())
	report.WriteUSTReport(out, result, bootResult, enabledModes, provenance)

	log.Info().Dur("elapsed", time.Since(start)).Msg("run complete")
	return nil
}

// buildCleanRows filters fullRows (calendar-ordered, unfiltered) down to
// nighttime-valid rows (rows.USTRow.NightValid: ALL_VALID flags and a
// known night classification) and lays them out as contiguous per-season
// blocks in season order, mirroring the "can_be_grouped" clean-dataset
// construction in original_source/ustar_mp/src/main.c (~lines 1001-1057).
// UST's primary run, unlike BOOT's resampling over the raw array, must
// never see daytime or partially-invalid rows, and runSeason's
// data[seasonStart:seasonStart+n] slice only means "one season" when
// every row in that span really does belong to the same season.
func buildCleanRows(fullRows []rows.USTRow, seasons season.Seasons) (clean []rows.USTRow, samplesPerSeason []int) {
	buckets := make([][]rows.USTRow, len(seasons))
	samplesPerSeason = make([]int, len(seasons))
	for i := range fullRows {
		row := fullRows[i]
		if !row.NightValid() {
			continue
		}
		g, ok := season.AttributeRow(seasons, row.MonthZero, row.Timestamp.Day, row.Timestamp.Hour, row.Timestamp.Minute)
		if !ok {
			continue
		}
		buckets[g] = append(buckets[g], row)
		samplesPerSeason[g]++
	}

	clean = make([]rows.USTRow, 0, len(fullRows))
	for _, b := range buckets {
		clean = append(clean, b...)
	}
	return clean, samplesPerSeason
}

// countUnclassifiedDays counts rows whose night/day state could not be
// determined at all (rows.Unknown, a dense-array slot the CSV never
// populated), mirroring main.c:978-985's days accumulator — the period-
// length fallback ustar.Run folds into its MinValuePeriod check.
func countUnclassifiedDays(fullRows []rows.USTRow) int {
	days := 0
	for i := range fullRows {
		if fullRows[i].Night == rows.Unknown {
			days++
		}
	}
	return days
}

// monthDaysCommon mirrors the original's months_days[], Jan..Dec
// (zero-based), used only for seasonRowSpaceEnds's nominal day-count
// accumulation; leap years add the Feb adjustment separately.
var monthDaysCommon = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// seasonRowSpaceEnds computes each season's cumulative end offset in the
// full, un-filtered row-index space BOOT's resampling loop draws from,
// walking each group's declared months in the grammar's own order and
// summing their nominal slot counts (main.c:1011-1035). This is
// deliberately not a cumulative sum of samplesPerSeason: BOOT compares a
// raw drawn index against these bounds, so they must live in the same
// index space as fullRows, not in the (much smaller) count of clean
// night-valid samples.
func seasonRowSpaceEnds(seasons season.Seasons, leapYear bool, slotsPerDay int) []int {
	const february = 1
	ends := make([]int, len(seasons))
	days := 0
	for i, group := range seasons {
		for _, month0 := range group {
			if month0 == february && leapYear {
				days++
			}
			days += monthDaysCommon[month0] * slotsPerDay
		}
		ends[i] = days
	}
	return ends
}
