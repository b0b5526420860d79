package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/fluxnet/oneflux-sub002/internal/errs"
)

func newViper(t *testing.T, bind func(*pflag.FlagSet)) *viper.Viper {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	bind(fs)
	require.NoError(t, fs.Parse(nil))

	v := viper.New()
	require.NoError(t, v.BindPFlags(fs))
	return v
}

func TestReadUSTRequiresInput(t *testing.T) {
	v := newViper(t, BindUST)
	_, err := ReadUST(v)
	require.Error(t, err)
	require.Equal(t, errs.ConfigInvalid, errs.Of(err))
}

func TestReadUSTDefaults(t *testing.T) {
	v := newViper(t, BindUST)
	v.Set("input", "site.csv")
	cfg, err := ReadUST(v)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.TAClasses)
	require.Equal(t, 20, cfg.UstarClasses)
	require.Equal(t, 100, cfg.BootstrappingTimes)
	require.Len(t, cfg.EnabledModes, 6)
	for _, enabled := range cfg.EnabledModes {
		require.True(t, enabled)
	}
}

func TestReadUSTNoRandomSeedIsFixed(t *testing.T) {
	v := newViper(t, BindUST)
	v.Set("input", "site.csv")
	v.Set("no_random_seed", true)
	cfg, err := ReadUST(v)
	require.NoError(t, err)
	require.Equal(t, uint64(1), cfg.Seed1)
	require.Equal(t, uint64(1), cfg.Seed2)
}

func TestReadMDSParsesSwInTolerance(t *testing.T) {
	v := newViper(t, BindMDS)
	v.Set("input", "site.csv")
	v.Set("sw_int", "10,40")
	cfg, err := ReadMDS(v)
	require.NoError(t, err)
	require.Equal(t, 10.0, cfg.SWInTolMin)
	require.Equal(t, 40.0, cfg.SWInTolMax)
}

func TestReadMDSRejectsLowRowsMin(t *testing.T) {
	v := newViper(t, BindMDS)
	v.Set("input", "site.csv")
	v.Set("rows_min", 1)
	_, err := ReadMDS(v)
	require.Error(t, err)
}
