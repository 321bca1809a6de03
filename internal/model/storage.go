package model

import (
	"errors"
	"math"
)

// StorageSpec defines the physical and economic parameters of the storage
// unit plus the SoC discretization used for value-function bidding.
// Units:
// - PowerMW: MW
// - DurationHours: energy rating = PowerMW * DurationHours
// - Efficiency: one-way, applied as eta on charge and 1/eta on discharge
//   (round trip is eta^2)
// - DegradationCost: currency per MWh discharged
// - GridResolution: SoC grid spacing in (0,1]
type StorageSpec struct {
	PowerMW         float64
	DurationHours   float64
	Efficiency      float64
	DegradationCost float64
	GridResolution  float64

	InitialSoC float64
	// TerminalSoC, when non-nil, is the SoC target enforced (by penalty) at
	// the end of the horizon.
	TerminalSoC *float64
}

// EnergyMWh is the energy rating of the unit.
func (s StorageSpec) EnergyMWh() float64 {
	return s.PowerMW * s.DurationHours
}

// Enabled reports whether the unit participates at all. A zero power rating
// is the no-storage baseline and must leave every formulation untouched.
func (s StorageSpec) Enabled() bool {
	return s.PowerMW > 0
}

func (s StorageSpec) Validate() error {
	if s.PowerMW < 0 {
		return errors.New("PowerMW must be >= 0")
	}
	if !s.Enabled() {
		return nil
	}
	if s.DurationHours <= 0 {
		return errors.New("DurationHours must be > 0")
	}
	if s.Efficiency <= 0 || s.Efficiency > 1 {
		return errors.New("Efficiency must be in (0, 1]")
	}
	if s.DegradationCost < 0 {
		return errors.New("DegradationCost must be >= 0")
	}
	if s.GridResolution <= 0 || s.GridResolution > 1 {
		return errors.New("GridResolution must be in (0, 1]")
	}
	if s.InitialSoC < 0 || s.InitialSoC > 1 {
		return errors.New("InitialSoC must be in [0, 1]")
	}
	if s.TerminalSoC != nil && (*s.TerminalSoC < 0 || *s.TerminalSoC > 1) {
		return errors.New("TerminalSoC must be in [0, 1]")
	}
	return nil
}

// SoCGrid is a uniform discretization of [0,1] with both bounds included.
type SoCGrid struct {
	Samples []float64
}

// NewSoCGrid builds the grid for resolution ed: floor(1/ed)+1 points spread
// uniformly over [0,1].
func NewSoCGrid(ed float64) (SoCGrid, error) {
	if ed <= 0 || ed > 1 {
		return SoCGrid{}, errors.New("grid resolution must be in (0, 1]")
	}
	n := int(math.Floor(1.0/ed+1e-9)) + 1
	if n < 2 {
		n = 2
	}
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = float64(i) / float64(n-1)
	}
	return SoCGrid{Samples: samples}, nil
}

// Step is the spacing between adjacent samples.
func (g SoCGrid) Step() float64 {
	return 1.0 / float64(len(g.Samples)-1)
}

func (g SoCGrid) Len() int { return len(g.Samples) }

// Clamp snaps a SoC back into [0,1] to absorb numerical drift.
func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
