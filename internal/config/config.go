// Package config builds the explicit per-run configuration structs
// the two CLI binaries hand down to the engine packages, replacing the
// teacher's process-wide mutable globals (config.go's BaseDir,
// CPUThreads, HorizonLabels, ...) with values read from cobra/pflag
// flags through a viper instance bound to them. No config file or
// environment variable is read.
package config

import (
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fluxnet/oneflux-sub002/internal/calendar"
	"github.com/fluxnet/oneflux-sub002/internal/errs"
	"github.com/fluxnet/oneflux-sub002/internal/ustar"
)

// RunConfig holds the flags common to both CLI tools.
type RunConfig struct {
	InputPath   string
	OutputPath  string
	Hourly      bool
	DumpDataset bool
	Verbose     bool
}

// Resolution maps the -hourly flag to a calendar.Resolution.
func (c RunConfig) Resolution() calendar.Resolution {
	if c.Hourly {
		return calendar.Hourly
	}
	return calendar.HalfHourly
}

// BindCommon registers the flags shared by both tools onto fs, mirroring
// the CLI surface's -input/-input_path, -output/-output_path, -hourly.
func BindCommon(fs *pflag.FlagSet) {
	fs.String("input", "", "input file or directory path")
	fs.String("input_path", "", "alias for -input")
	fs.String("output", "", "output file or directory path")
	fs.String("output_path", "", "alias for -output")
	fs.Bool("hourly", false, "dataset is hourly resolution instead of half-hourly")
	fs.Bool("verbose", false, "enable debug-level logging")
}

// ReadCommon resolves RunConfig from a bound viper instance, preferring
// the long form (-input_path) over the short alias when both are set.
func ReadCommon(v *viper.Viper) RunConfig {
	input := v.GetString("input_path")
	if input == "" {
		input = v.GetString("input")
	}
	output := v.GetString("output_path")
	if output == "" {
		output = v.GetString("output")
	}
	return RunConfig{
		InputPath:  input,
		OutputPath: output,
		Hourly:     v.GetBool("hourly"),
		Verbose:    v.GetBool("verbose"),
	}
}

// NewLogger builds a zerolog console logger at info or debug level.
func NewLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.NewConsoleWriter()).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// DefaultWorkers mirrors the teacher's CPUThreads pattern: use all
// hardware threads, leaving two free on machines with more than 4.
func DefaultWorkers() int {
	n := runtime.GOMAXPROCS(0)
	if n > 4 {
		return n - 2
	}
	return n
}

// USTConfig is the u*-threshold tool's full run configuration.
type USTConfig struct {
	RunConfig
	GroupBy            string
	TAClasses          int
	UstarClasses       int
	BootstrappingTimes int
	EnabledModes       map[ustar.Mode]bool
	ModeWindows        map[ustar.Mode]int
	PercentileValue    int
	PercentileCheck    bool
	ThresholdCheck     float64
	NoRandomSeed       bool
	Seed1, Seed2       uint64
	Workers            int
}

// BindUST registers UST-specific flags, positively named per the
// Open Question resolution: every toggle enables its mode; there is
// no double-negative "-no_*" flag.
func BindUST(fs *pflag.FlagSet) {
	BindCommon(fs)
	fs.String("groupby", "12,1,2;3,4,5;6,7,8;9,10,11", "season grouping grammar: group(;group)*, group:=month(,month)*")
	fs.Int("ta_classes", 7, "number of TA classes")
	fs.Int("ustar_classes", 20, "number of u* classes")
	fs.Int("bootstrapping_times", 100, "bootstrap iteration count")
	fs.Bool("forward_mode", true, "enable forward_mode (n=1)")
	fs.Bool("forward_mode_2", true, "enable forward_mode_2 (n=2)")
	fs.Bool("forward_mode_3", true, "enable forward_mode_3 (n=3)")
	fs.Bool("back_mode", true, "enable back_mode (n=1)")
	fs.Bool("back_mode_2", true, "enable back_mode_2 (n=2)")
	fs.Bool("back_mode_3", true, "enable back_mode_3 (n=3)")
	fs.Int("percentile", 90, "percentile value used by the percentile check and back-mode start index")
	fs.Bool("percentile_check", true, "enable the percentile short-circuit/fallback in mode kernels")
	fs.Float64("threshold_check", 1.0, "theta multiplier applied to windowed means")
	fs.Bool("no_random_seed", false, "use a fixed PRNG seed for reproducible bootstrap runs (debug)")
	fs.Bool("dump_dataset", false, "accepted and stored in the run configuration; no dump is written")
	fs.Int("workers", 0, "bootstrap iteration worker count (0 = chosen from the CPU count, 1 = sequential)")
}

// ReadUST resolves a USTConfig from a bound viper instance, validating
// the result.
func ReadUST(v *viper.Viper) (USTConfig, error) {
	enabled := map[ustar.Mode]bool{
		ustar.ForwardN1: v.GetBool("forward_mode"),
		ustar.ForwardN2: v.GetBool("forward_mode_2"),
		ustar.ForwardN3: v.GetBool("forward_mode_3"),
		ustar.BackN1:    v.GetBool("back_mode"),
		ustar.BackN2:    v.GetBool("back_mode_2"),
		ustar.BackN3:    v.GetBool("back_mode_3"),
	}

	cfg := USTConfig{
		RunConfig:          ReadCommon(v),
		GroupBy:            v.GetString("groupby"),
		TAClasses:          v.GetInt("ta_classes"),
		UstarClasses:       v.GetInt("ustar_classes"),
		BootstrappingTimes: v.GetInt("bootstrapping_times"),
		EnabledModes:       enabled,
		PercentileValue:    v.GetInt("percentile"),
		PercentileCheck:    v.GetBool("percentile_check"),
		ThresholdCheck:     v.GetFloat64("threshold_check"),
		NoRandomSeed:       v.GetBool("no_random_seed"),
		Workers:            v.GetInt("workers"),
	}
	cfg.DumpDataset = v.GetBool("dump_dataset")

	if cfg.NoRandomSeed {
		cfg.Seed1, cfg.Seed2 = 1, 1
	}

	if cfg.TAClasses <= 0 || cfg.UstarClasses <= 0 {
		return cfg, errs.Wrap(errs.ConfigInvalid, "ta_classes and ustar_classes must be positive (got %d, %d)", cfg.TAClasses, cfg.UstarClasses)
	}
	if cfg.BootstrappingTimes <= 0 {
		return cfg, errs.Wrap(errs.ConfigInvalid, "bootstrapping_times must be positive (got %d)", cfg.BootstrappingTimes)
	}
	if cfg.PercentileValue <= 0 || cfg.PercentileValue > 100 {
		return cfg, errs.Wrap(errs.ConfigInvalid, "percentile must be in (0,100] (got %d)", cfg.PercentileValue)
	}
	if cfg.InputPath == "" {
		return cfg, errs.Wrap(errs.ConfigInvalid, "input path is required")
	}

	return cfg, nil
}

// ToUstarConfig converts the CLI-facing USTConfig to ustar.Config.
func (c USTConfig) ToUstarConfig() ustar.Config {
	return ustar.Config{
		TAClasses:       c.TAClasses,
		UstarClasses:    c.UstarClasses,
		PercentileValue: c.PercentileValue,
		PercentileCheck: c.PercentileCheck,
		ThresholdCheck:  c.ThresholdCheck,
		EnabledModes:    c.EnabledModes,
		ModeSpecs:       ustar.DefaultModeSpecs,
	}
}

// MDSConfig is the gap-filler tool's full run configuration.
type MDSConfig struct {
	RunConfig
	ToFill     string
	SWInName   string
	TAName     string
	VPDName    string
	DateName   string
	SWInTolMin float64
	SWInTolMax float64
	TATol      float64
	VPDTol     float64
	RowsMin    int
	DTime      bool
}

// BindMDS registers MDS-specific flags.
func BindMDS(fs *pflag.FlagSet) {
	BindCommon(fs)
	fs.String("tofill", "NEE", "target variable column name")
	fs.String("sw_in", "SW_IN", "shortwave radiation column name")
	fs.String("ta", "TA", "air temperature column name")
	fs.String("vpd", "VPD", "vapor pressure deficit column name")
	fs.String("date", "TIMESTAMP_END", "timestamp column name")
	fs.String("sw_int", "20,50", "sw_in tolerance min,max in W*m^-2")
	fs.Float64("tat", 2.5, "TA tolerance in degrees C")
	fs.Float64("vpdt", 5.0, "VPD tolerance in hPa")
	fs.Int("rows_min", 2, "minimum contributor count to accept a tier's fill")
	fs.Bool("dtime", false, "ingest via fractional day-of-year Dtime column instead of TIMESTAMP")
}

// ReadMDS resolves an MDSConfig from a bound viper instance.
func ReadMDS(v *viper.Viper) (MDSConfig, error) {
	swInMin, swInMax := 20.0, 50.0
	if raw := v.GetString("sw_int"); raw != "" {
		var parsedMin, parsedMax float64
		if n, _ := fmt.Sscanf(raw, "%g,%g", &parsedMin, &parsedMax); n == 2 {
			swInMin, swInMax = parsedMin, parsedMax
		}
	}

	cfg := MDSConfig{
		RunConfig:  ReadCommon(v),
		ToFill:     v.GetString("tofill"),
		SWInName:   v.GetString("sw_in"),
		TAName:     v.GetString("ta"),
		VPDName:    v.GetString("vpd"),
		DateName:   v.GetString("date"),
		SWInTolMin: swInMin,
		SWInTolMax: swInMax,
		TATol:      v.GetFloat64("tat"),
		VPDTol:     v.GetFloat64("vpdt"),
		RowsMin:    v.GetInt("rows_min"),
		DTime:      v.GetBool("dtime"),
	}

	if cfg.InputPath == "" {
		return cfg, errs.Wrap(errs.ConfigInvalid, "input path is required")
	}
	if cfg.RowsMin < 2 {
		return cfg, errs.Wrap(errs.ConfigInvalid, "rows_min must be >= 2 (got %d)", cfg.RowsMin)
	}

	return cfg, nil
}
