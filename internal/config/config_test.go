package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadMergesOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := []byte(`
horizon: 12
peak_demand_mw: 500
demand_scenarios: [1, 3]
storage_ratings_mw: [10, 50]
day_ahead_participation: true
storage:
  efficiency: 0.85
  degradation_cost: 2
  grid_resolution: 0.1
  initial_soc: 0.5
`)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Horizon)
	assert.Equal(t, 500.0, cfg.PeakDemandMW)
	assert.Equal(t, []int{1, 3}, cfg.DemandScenarios)
	assert.Equal(t, []float64{10, 50}, cfg.StorageRatingsMW)
	assert.True(t, cfg.DayAheadParticipation)
	assert.Equal(t, 0.85, cfg.Storage.Efficiency)

	// Fields the file is silent on keep their defaults.
	assert.Equal(t, 1.0, cfg.StepHours)
	assert.Equal(t, 4, cfg.WindowSize)
	assert.Equal(t, "bid", cfg.DayAheadMode)
	assert.Equal(t, []float64{0}, cfg.BidUncertaintySigmas)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("demand_scenarios: [9]\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty demand scenarios", func(c *Config) { c.DemandScenarios = nil }},
		{"scenario out of range", func(c *Config) { c.DemandScenarios = []int{6} }},
		{"empty wind axis", func(c *Config) { c.WindCapacitiesMW = nil }},
		{"empty rating axis", func(c *Config) { c.StorageRatingsMW = nil }},
		{"empty sigma axis", func(c *Config) { c.BidUncertaintySigmas = nil }},
		{"no duration derivation", func(c *Config) { c.NormalizedPowerMW = 0 }},
		{"bad day-ahead mode", func(c *Config) { c.DayAheadMode = "pinned" }},
		{"bad efficiency", func(c *Config) { c.Storage.Efficiency = 1.5 }},
		{"bad grid resolution", func(c *Config) { c.Storage.GridResolution = 0 }},
		{"zero horizon", func(c *Config) { c.Horizon = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestStorageSpecDerivesDuration(t *testing.T) {
	cfg := Default()
	cfg.NormalizedPowerMW = 250

	spec, err := cfg.StorageSpec(500)
	require.NoError(t, err)
	assert.Equal(t, 500.0, spec.PowerMW)
	assert.Equal(t, 2.0, spec.DurationHours)
	assert.Equal(t, 1000.0, spec.EnergyMWh())
}

func TestStorageSpecExplicitDurationWins(t *testing.T) {
	cfg := Default()
	cfg.Storage.DurationHours = 6

	spec, err := cfg.StorageSpec(100)
	require.NoError(t, err)
	assert.Equal(t, 6.0, spec.DurationHours)
}

func TestStorageSpecZeroRating(t *testing.T) {
	spec, err := Default().StorageSpec(0)
	require.NoError(t, err)
	assert.False(t, spec.Enabled())
}
