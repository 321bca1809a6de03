package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"storage-market/internal/model"
	"storage-market/internal/scenario"
)

// Config is the on-disk experiment configuration (YAML).
type Config struct {
	Horizon      int     `yaml:"horizon"`
	StepHours    float64 `yaml:"step_hours"`
	PeakDemandMW float64 `yaml:"peak_demand_mw"`

	// Sweep axes.
	DemandScenarios       []int     `yaml:"demand_scenarios"`
	WindCapacitiesMW      []float64 `yaml:"wind_capacities_mw"`
	ForecastErrorPcts     []float64 `yaml:"forecast_error_pcts"`
	StorageRatingsMW      []float64 `yaml:"storage_ratings_mw"`
	BidUncertaintySigmas  []float64 `yaml:"bid_uncertainty_sigmas"`
	DayAheadParticipation bool      `yaml:"day_ahead_participation"`

	// DayAheadMode selects how storage enters the with-storage day-ahead
	// pass: "bid" (price taker against the first value function) or
	// "coopt" (free decision inside the MILP).
	DayAheadMode string `yaml:"day_ahead_mode"`

	// NormalizedPowerMW converts a storage power rating into a duration:
	// duration_hours = rating / normalized_power_mw. A non-zero
	// storage.duration_hours overrides the derivation.
	NormalizedPowerMW float64       `yaml:"normalized_power_mw"`
	Storage           StorageConfig `yaml:"storage"`

	WindowSize int    `yaml:"window_size"`
	Segments   int    `yaml:"segments"`
	Seed       uint64 `yaml:"seed"`

	// SkipOnError keeps the sweep going past a failed point instead of
	// aborting the run.
	SkipOnError bool   `yaml:"skip_on_error"`
	OutputDir   string `yaml:"output_dir"`
}

type StorageConfig struct {
	DurationHours   float64  `yaml:"duration_hours"`
	Efficiency      float64  `yaml:"efficiency"`
	DegradationCost float64  `yaml:"degradation_cost"`
	GridResolution  float64  `yaml:"grid_resolution"`
	InitialSoC      float64  `yaml:"initial_soc"`
	TerminalSoC     *float64 `yaml:"terminal_soc"`
}

// Default returns the configuration used when a field is left unset.
func Default() *Config {
	return &Config{
		Horizon:              24,
		StepHours:            1,
		PeakDemandMW:         1000,
		DemandScenarios:      []int{1},
		WindCapacitiesMW:     []float64{200},
		ForecastErrorPcts:    []float64{0.1},
		StorageRatingsMW:     []float64{50},
		BidUncertaintySigmas: []float64{0},
		NormalizedPowerMW:    250,
		Storage: StorageConfig{
			Efficiency:      0.9,
			DegradationCost: 2,
			GridResolution:  0.05,
			InitialSoC:      0.5,
		},
		DayAheadMode: "bid",
		WindowSize:   4,
		Seed:         1,
		OutputDir:    "results",
	}
}

// Load reads, merges onto defaults, and validates.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if len(c.DemandScenarios) == 0 {
		return errors.New("config: demand_scenarios is required")
	}
	for _, ds := range c.DemandScenarios {
		if ds < 1 || ds > scenario.NumDemandScenarios {
			return fmt.Errorf("config: demand scenario %d out of range 1..%d", ds, scenario.NumDemandScenarios)
		}
	}
	if len(c.WindCapacitiesMW) == 0 || len(c.ForecastErrorPcts) == 0 ||
		len(c.StorageRatingsMW) == 0 || len(c.BidUncertaintySigmas) == 0 {
		return errors.New("config: every sweep axis needs at least one value")
	}
	if c.NormalizedPowerMW <= 0 && c.Storage.DurationHours <= 0 {
		return errors.New("config: normalized_power_mw or storage.duration_hours must be set")
	}
	if c.DayAheadMode != "bid" && c.DayAheadMode != "coopt" {
		return fmt.Errorf("config: day_ahead_mode must be \"bid\" or \"coopt\", got %q", c.DayAheadMode)
	}
	// Validate the derived storage spec for every rating up front, so a
	// malformed axis fails before any solve is attempted.
	for _, rating := range c.StorageRatingsMW {
		if _, err := c.StorageSpec(rating); err != nil {
			return err
		}
	}
	// Validate shared scenario parameters against the first axis values.
	params := scenario.Params{
		DemandScenario:   c.DemandScenarios[0],
		Horizon:          c.Horizon,
		StepHours:        c.StepHours,
		PeakDemandMW:     c.PeakDemandMW,
		WindCapacityMW:   c.WindCapacitiesMW[0],
		ForecastErrorPct: c.ForecastErrorPcts[0],
		Seed:             c.Seed,
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// StorageSpec derives the storage parameters for one swept power rating.
func (c *Config) StorageSpec(ratingMW float64) (model.StorageSpec, error) {
	duration := c.Storage.DurationHours
	if duration <= 0 {
		duration = ratingMW / c.NormalizedPowerMW
	}
	spec := model.StorageSpec{
		PowerMW:         ratingMW,
		DurationHours:   duration,
		Efficiency:      c.Storage.Efficiency,
		DegradationCost: c.Storage.DegradationCost,
		GridResolution:  c.Storage.GridResolution,
		InitialSoC:      c.Storage.InitialSoC,
		TerminalSoC:     c.Storage.TerminalSoC,
	}
	if err := spec.Validate(); err != nil {
		return model.StorageSpec{}, fmt.Errorf("config: storage rating %g: %w", ratingMW, err)
	}
	return spec, nil
}
