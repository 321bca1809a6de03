package model

import (
	"errors"
	"fmt"
)

// Generator defines one thermal unit in the fleet.
// Units:
// - MinOutputMW / MaxOutputMW: MW
// - MarginalCost: currency per MWh
// - RampUpMW / RampDownMW: MW per hour
// - MinUp / MinDown: periods
// - StartupCost: currency per start
type Generator struct {
	Name         string
	MinOutputMW  float64
	MaxOutputMW  float64
	MarginalCost float64
	RampUpMW     float64
	RampDownMW   float64
	MinUp        int
	MinDown      int
	StartupCost  float64

	// Initial conditions entering period 1.
	InitialOn       bool
	InitialOutputMW float64
}

func (g Generator) Validate() error {
	if g.MaxOutputMW <= 0 {
		return fmt.Errorf("generator %s: MaxOutputMW must be > 0", g.Name)
	}
	if g.MinOutputMW < 0 || g.MinOutputMW > g.MaxOutputMW {
		return fmt.Errorf("generator %s: MinOutputMW must be in [0, MaxOutputMW]", g.Name)
	}
	if g.RampUpMW <= 0 || g.RampDownMW <= 0 {
		return fmt.Errorf("generator %s: ramp rates must be > 0", g.Name)
	}
	if g.MinUp < 0 || g.MinDown < 0 {
		return fmt.Errorf("generator %s: min up/down must be >= 0", g.Name)
	}
	if g.StartupCost < 0 {
		return fmt.Errorf("generator %s: StartupCost must be >= 0", g.Name)
	}
	return nil
}

// SystemSnapshot is the immutable per-scenario input to both clearing stages.
// Demand, WindForecastMW and WindActualMW all have length Horizon, in MW.
type SystemSnapshot struct {
	Horizon    int
	StepHours  float64
	Generators []Generator

	DemandMW       []float64
	WindForecastMW []float64
	WindActualMW   []float64
}

func (s *SystemSnapshot) Validate() error {
	if s == nil {
		return errors.New("snapshot is nil")
	}
	if s.Horizon <= 0 {
		return errors.New("Horizon must be > 0")
	}
	if s.StepHours <= 0 {
		return errors.New("StepHours must be > 0")
	}
	if len(s.Generators) == 0 {
		return errors.New("at least one generator is required")
	}
	for _, g := range s.Generators {
		if err := g.Validate(); err != nil {
			return err
		}
	}
	if len(s.DemandMW) != s.Horizon {
		return fmt.Errorf("DemandMW has %d periods, want %d", len(s.DemandMW), s.Horizon)
	}
	if len(s.WindForecastMW) != s.Horizon {
		return fmt.Errorf("WindForecastMW has %d periods, want %d", len(s.WindForecastMW), s.Horizon)
	}
	if len(s.WindActualMW) != s.Horizon {
		return fmt.Errorf("WindActualMW has %d periods, want %d", len(s.WindActualMW), s.Horizon)
	}
	return nil
}

// NetForecastMW is demand minus wind forecast for period t (0-based).
func (s *SystemSnapshot) NetForecastMW(t int) float64 {
	return s.DemandMW[t] - s.WindForecastMW[t]
}

// NetActualMW is demand minus realized wind for period t (0-based).
func (s *SystemSnapshot) NetActualMW(t int) float64 {
	return s.DemandMW[t] - s.WindActualMW[t]
}
