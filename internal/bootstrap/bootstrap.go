// Package bootstrap implements the BOOT wrapper around UST: repeated
// resampling with replacement from a full site-year, re-deriving the
// u* threshold per iteration, and reducing the resulting distribution
// to percentiles per detection mode.
package bootstrap

import (
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/fluxnet/oneflux-sub002/internal/numeric"
	"github.com/fluxnet/oneflux-sub002/internal/rows"
	"github.com/fluxnet/oneflux-sub002/internal/ustar"
)

// DefaultIterations mirrors BOOTSTRAPPING_TIMES.
const DefaultIterations = 100

// DefaultPercentiles mirrors the original percentile table and the
// PERCENTILES_COUNT=9 "not enough values" gate.
var DefaultPercentiles = []int{1, 5, 10, 25, 50, 75, 90, 95, 99}

// Config is BOOT's per-run configuration.
type Config struct {
	Iterations int
	// Workers bounds how many iterations run concurrently. 0 means
	// sequential (the default); a caller processing many site-years
	// already in parallel should usually leave this at 0 and
	// parallelize across site-years instead.
	Workers int
	// SeasonsEndIndex holds, per season and in season order, the
	// exclusive upper bound of that season's row indices in the full
	// (un-filtered) site-year row space. A drawn row is attributed to
	// the first season whose bound exceeds its index.
	SeasonsEndIndex []int
	UstarConfig     ustar.Config
	Percentiles     []int
	// Seed1/Seed2 seed the PCG stream. Callers wanting
	// no_random_seed-style reproducibility pass a fixed pair; callers
	// wanting fresh randomness derive these from wall-clock time
	// themselves (this package never reads the clock).
	Seed1, Seed2 uint64
}

// IterationOutcome is one bootstrap draw's result.
type IterationOutcome struct {
	SamplesPerSeason []int
	SeasonMedians    map[ustar.Mode][]numeric.Value
	Selected         map[ustar.Mode]numeric.Value
	NoValidRows      bool
}

// ModeSummary is one mode's reduction across all iterations.
type ModeSummary struct {
	ValidSorted     []numeric.Value
	Percentiles     map[int]numeric.Value
	NotEnoughValues bool
}

// Result is BOOT's full output.
type Result struct {
	Iterations []IterationOutcome
	Summaries  map[ustar.Mode]ModeSummary
}

// Run executes cfg.Iterations bootstrap draws over fullRows (the
// complete, un-filtered site-year row space spanning both day and
// night rows) and reduces the per-iteration selected thresholds into
// per-mode percentile summaries.
//
// Each iteration seeds its own PCG stream from (cfg.Seed1,
// cfg.Seed2+iteration), so iterations are independent of execution
// order: a caller may run them concurrently (grounded on the
// teacher's worker-pool pattern) and still collect results in
// iteration-index order for P7 reproducibility.
func Run(fullRows []rows.USTRow, cfg Config) (Result, error) {
	iterations := cfg.Iterations
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	percentiles := cfg.Percentiles
	if len(percentiles) == 0 {
		percentiles = DefaultPercentiles
	}

	outcomes := make([]IterationOutcome, iterations)
	if cfg.Workers > 1 {
		if err := runParallel(fullRows, cfg, outcomes); err != nil {
			return Result{}, err
		}
	} else {
		for b := 0; b < iterations; b++ {
			outcome, err := runIteration(fullRows, cfg, uint64(b))
			if err != nil {
				return Result{}, err
			}
			outcomes[b] = outcome
		}
	}

	result := Result{
		Iterations: outcomes,
		Summaries:  make(map[ustar.Mode]ModeSummary, len(ustar.AllModes)),
	}
	for _, m := range ustar.AllModes {
		if !cfg.UstarConfig.EnabledModes[m] {
			continue
		}
		valid := make([]numeric.Value, 0, iterations)
		for _, it := range outcomes {
			v := it.Selected[m]
			if numeric.Valid(v) && !numeric.FloatEqual(v, numeric.ThresholdNotFound) {
				valid = append(valid, v)
			}
		}
		sort.Float64s(valid)

		summary := ModeSummary{ValidSorted: valid}
		if len(valid) < len(DefaultPercentiles) {
			summary.NotEnoughValues = true
		} else {
			summary.Percentiles = make(map[int]numeric.Value, len(percentiles))
			for _, p := range percentiles {
				idx := int(float64(p)/100.0*float64(len(valid))) - 1
				if idx < 0 {
					idx = 0
				}
				if idx >= len(valid) {
					idx = len(valid) - 1
				}
				summary.Percentiles[p] = valid[idx]
			}
		}
		result.Summaries[m] = summary
	}

	return result, nil
}

// runParallel dispatches iterations across cfg.Workers goroutines
// (grounded on the teacher's jobsChan/WaitGroup worker pool), writing
// each result directly into outcomes[b] — safe without synchronization
// since every worker owns a disjoint index. The first error observed
// is returned after all workers finish.
func runParallel(fullRows []rows.USTRow, cfg Config, outcomes []IterationOutcome) error {
	jobs := make(chan int, len(outcomes))
	for b := range outcomes {
		jobs <- b
	}
	close(jobs)

	var wg sync.WaitGroup
	var errOnce sync.Once
	var firstErr error

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range jobs {
				outcome, err := runIteration(fullRows, cfg, uint64(b))
				if err != nil {
					errOnce.Do(func() { firstErr = err })
					continue
				}
				outcomes[b] = outcome
			}
		}()
	}
	wg.Wait()

	return firstErr
}

func runIteration(fullRows []rows.USTRow, cfg Config, iteration uint64) (IterationOutcome, error) {
	rng := rand.New(rand.NewPCG(cfg.Seed1, cfg.Seed2+iteration))

	rowsCount := len(fullRows)
	seasonsCount := len(cfg.SeasonsEndIndex)
	samplesPerSeason := make([]int, seasonsCount)

	sample := make([]rows.USTRow, 0, rowsCount)
	daysBoot := 0

	for i := 0; i < rowsCount; i++ {
		rowRandom := rng.IntN(rowsCount)
		row := fullRows[rowRandom]

		if row.Night == rows.Day {
			daysBoot++
			continue
		}
		if !row.Flags.AllValid() {
			continue
		}

		index := 0
		for z, end := range cfg.SeasonsEndIndex {
			if rowRandom < end {
				index = z
				break
			}
		}
		samplesPerSeason[index]++

		drawn := row
		drawn.OriginalIndex = rowRandom
		sample = append(sample, drawn)
	}

	if len(sample) == 0 {
		outcome := IterationOutcome{
			SamplesPerSeason: samplesPerSeason,
			SeasonMedians:    map[ustar.Mode][]numeric.Value{},
			Selected:         map[ustar.Mode]numeric.Value{},
			NoValidRows:      true,
		}
		for _, m := range ustar.AllModes {
			outcome.Selected[m] = numeric.Invalid
		}
		return outcome, nil
	}

	sort.Slice(sample, func(i, j int) bool { return sample[i].OriginalIndex < sample[j].OriginalIndex })

	res, err := ustar.Run(sample, samplesPerSeason, daysBoot, cfg.UstarConfig)
	if err != nil {
		return IterationOutcome{}, err
	}

	outcome := IterationOutcome{
		SamplesPerSeason: samplesPerSeason,
		SeasonMedians:    make(map[ustar.Mode][]numeric.Value, len(ustar.AllModes)),
		Selected:         make(map[ustar.Mode]numeric.Value, len(ustar.AllModes)),
	}
	for _, m := range ustar.AllModes {
		if !cfg.UstarConfig.EnabledModes[m] {
			continue
		}
		medians := make([]numeric.Value, len(res.ByMode[m]))
		for s, outcomeForSeason := range res.ByMode[m] {
			medians[s] = outcomeForSeason.Median
		}
		outcome.SeasonMedians[m] = medians
		outcome.Selected[m] = res.Selected[m]
	}
	return outcome, nil
}
