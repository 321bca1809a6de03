// Package scenario constructs the SystemSnapshot inputs the clearing stages
// consume: a canonical thermal fleet, enumerated demand scenario shapes, a
// wind profile scaled to installed capacity, and seeded Gaussian
// forecast-error draws. A Params value fully determines its snapshot, so
// rebuilding with the same seed is idempotent.
package scenario

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"storage-market/internal/model"
)

// NumDemandScenarios is the number of enumerated demand shapes.
const NumDemandScenarios = 5

// Params selects one snapshot.
type Params struct {
	// DemandScenario indexes the demand shape, 1..NumDemandScenarios.
	DemandScenario int
	Horizon        int
	StepHours      float64
	// PeakDemandMW scales the demand shape.
	PeakDemandMW float64
	// WindCapacityMW scales the wind profile.
	WindCapacityMW float64
	// ForecastErrorPct is the std deviation of the per-period Gaussian
	// multiplicative wind forecast error, as a fraction (0.1 = 10%).
	ForecastErrorPct float64
	Seed             uint64
}

func (p Params) Validate() error {
	if p.DemandScenario < 1 || p.DemandScenario > NumDemandScenarios {
		return fmt.Errorf("scenario: demand scenario %d out of range 1..%d", p.DemandScenario, NumDemandScenarios)
	}
	if p.Horizon <= 0 {
		return fmt.Errorf("scenario: horizon must be > 0")
	}
	if p.StepHours <= 0 {
		return fmt.Errorf("scenario: step size must be > 0")
	}
	if p.PeakDemandMW <= 0 {
		return fmt.Errorf("scenario: peak demand must be > 0")
	}
	if p.WindCapacityMW < 0 || p.ForecastErrorPct < 0 {
		return fmt.Errorf("scenario: wind capacity and forecast error must be >= 0")
	}
	return nil
}

// Fleet returns the canonical three-unit thermal fleet, sized relative to
// the peak demand: a slow cheap baseload unit, a mid-merit unit, and a fast
// expensive peaker.
func Fleet(peakMW float64) []model.Generator {
	return []model.Generator{
		{
			Name:            "base",
			MinOutputMW:     0.25 * peakMW,
			MaxOutputMW:     0.70 * peakMW,
			MarginalCost:    18,
			RampUpMW:        0.15 * peakMW,
			RampDownMW:      0.15 * peakMW,
			MinUp:           4,
			MinDown:         4,
			StartupCost:     900,
			InitialOn:       true,
			InitialOutputMW: 0.40 * peakMW,
		},
		{
			Name:            "mid",
			MinOutputMW:     0.10 * peakMW,
			MaxOutputMW:     0.45 * peakMW,
			MarginalCost:    34,
			RampUpMW:        0.30 * peakMW,
			RampDownMW:      0.30 * peakMW,
			MinUp:           2,
			MinDown:         2,
			StartupCost:     300,
			InitialOn:       true,
			InitialOutputMW: 0.10 * peakMW,
		},
		{
			Name:         "peaker",
			MinOutputMW:  0,
			MaxOutputMW:  0.30 * peakMW,
			MarginalCost: 80,
			RampUpMW:     0.30 * peakMW,
			RampDownMW:   0.30 * peakMW,
			MinUp:        1,
			MinDown:      1,
			StartupCost:  80,
		},
	}
}

// demandShape returns the normalized (0..1] load factor for period t of T.
// The five shapes differ in peakiness and in whether the evening or morning
// peak dominates.
func demandShape(scenario, t, T int) float64 {
	frac := float64(t) / float64(T)
	base := 0.55 + 0.25*math.Sin(2*math.Pi*(frac-0.30))
	switch scenario {
	case 1: // flat valley, single evening peak
		return base
	case 2: // peakier evening
		return 0.45 + 0.40*math.Pow(math.Max(0, math.Sin(2*math.Pi*(frac-0.30))), 1.5)
	case 3: // double peak (morning + evening)
		return 0.50 + 0.20*math.Sin(2*math.Pi*(frac-0.30)) + 0.15*math.Sin(4*math.Pi*(frac-0.10))
	case 4: // high base load, shallow swing
		return 0.75 + 0.12*math.Sin(2*math.Pi*(frac-0.30))
	default: // 5: low base load, deep overnight valley
		return 0.35 + 0.35*math.Sin(2*math.Pi*(frac-0.30))
	}
}

// windShape is the normalized wind availability factor for period t of T:
// stronger overnight, sagging through midday.
func windShape(t, T int) float64 {
	frac := float64(t) / float64(T)
	return 0.45 + 0.30*math.Cos(2*math.Pi*frac) + 0.10*math.Sin(4*math.Pi*frac)
}

// Build constructs the immutable snapshot for params. Wind realization is
// forecast * (1 + eps_t) with eps_t ~ N(0, ForecastErrorPct), truncated so
// realized wind stays non-negative.
func Build(params Params) (*model.SystemSnapshot, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	T := params.Horizon

	snap := &model.SystemSnapshot{
		Horizon:        T,
		StepHours:      params.StepHours,
		Generators:     Fleet(params.PeakDemandMW),
		DemandMW:       make([]float64, T),
		WindForecastMW: make([]float64, T),
		WindActualMW:   make([]float64, T),
	}

	noise := distuv.Normal{
		Mu:    0,
		Sigma: math.Max(params.ForecastErrorPct, 1e-12),
		Src:   rand.NewSource(params.Seed),
	}

	for t := 0; t < T; t++ {
		snap.DemandMW[t] = params.PeakDemandMW * demandShape(params.DemandScenario, t, T)
		snap.WindForecastMW[t] = params.WindCapacityMW * windShape(t, T)
		eps := 0.0
		if params.ForecastErrorPct > 0 {
			eps = noise.Rand()
		}
		snap.WindActualMW[t] = math.Max(0, snap.WindForecastMW[t]*(1+eps))
	}

	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}
