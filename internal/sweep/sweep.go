// Package sweep drives the parameter study: it enumerates the axis product,
// runs the clearing pipeline for every point, and collects immutable result
// records keyed by the parameter tuple.
package sweep

import (
	"fmt"
	"hash/fnv"
	"log/slog"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"storage-market/internal/config"
	"storage-market/internal/market"
	"storage-market/internal/model"
	"storage-market/internal/scenario"
	"storage-market/internal/solver"
	"storage-market/internal/valuefn"
)

// Key identifies one sweep point.
type Key struct {
	DemandScenario   int
	BidSigma         float64
	WindCapacityMW   float64
	ForecastErrorPct float64
	StorageRatingMW  float64
	DayAhead         bool
}

func (k Key) String() string {
	return fmt.Sprintf("scenario=%d bid_sigma=%g wind=%gMW err=%g%% rating=%gMW da=%t",
		k.DemandScenario, k.BidSigma, k.WindCapacityMW, 100*k.ForecastErrorPct, k.StorageRatingMW, k.DayAhead)
}

// seed derives a deterministic per-point RNG seed from the base seed.
func (k Key) seed(base uint64) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%s", base, k.String())
	return h.Sum64()
}

// PointResult is the immutable record produced for one sweep point.
type PointResult struct {
	Key      Key
	Snapshot *model.SystemSnapshot

	DayAheadNoStorage *model.ClearingResult
	VF1               *model.ValueFunction // nil at the zero-rating axis point
	RTBaseline        *model.ClearingResult // N-ED counterfactual, rating forced to 0
	RTStorage         *model.ClearingResult // S-ED

	// DA+RT chain, nil unless Key.DayAhead.
	DayAheadStorage *model.ClearingResult
	VF2             *model.ValueFunction
	RTPinned        *model.ClearingResult
}

// Failure records a point that could not be cleared.
type Failure struct {
	Key Key
	Err error
}

// Runner executes sweeps. Zero-value fields fall back to defaults.
type Runner struct {
	Cfg    *config.Config
	Solver solver.Solver
	Log    *slog.Logger
}

func NewRunner(cfg *config.Config) *Runner {
	return &Runner{Cfg: cfg, Solver: solver.NewSimplex(), Log: slog.Default()}
}

// Run enumerates the axis product in a fixed order and runs every point.
// A point failure aborts the run unless SkipOnError is set, in which case
// it is recorded and the sweep continues.
func (r *Runner) Run() ([]PointResult, []Failure, error) {
	cfg := r.Cfg
	keys := r.Keys()
	pointsPlanned.Set(float64(len(keys)))

	results := make([]PointResult, 0, len(keys))
	var failures []Failure
	for i, key := range keys {
		r.Log.Info("sweep point", "index", i+1, "total", len(keys),
			"scenario", key.DemandScenario, "bid_sigma", key.BidSigma,
			"wind_mw", key.WindCapacityMW, "forecast_err", key.ForecastErrorPct,
			"rating_mw", key.StorageRatingMW, "day_ahead", key.DayAhead)

		pt, err := r.RunPoint(key)
		if err != nil {
			pointsFailed.Inc()
			r.Log.Error("sweep point failed", "point", key.String(), "err", err)
			if !cfg.SkipOnError {
				return results, failures, fmt.Errorf("sweep: point %s: %w", key, err)
			}
			failures = append(failures, Failure{Key: key, Err: err})
			continue
		}
		pointsCompleted.Inc()
		results = append(results, *pt)
	}
	return results, failures, nil
}

// Keys returns the axis product in sweep order.
func (r *Runner) Keys() []Key {
	cfg := r.Cfg
	var keys []Key
	for _, ds := range cfg.DemandScenarios {
		for _, sigma := range cfg.BidUncertaintySigmas {
			for _, wind := range cfg.WindCapacitiesMW {
				for _, errPct := range cfg.ForecastErrorPcts {
					for _, rating := range cfg.StorageRatingsMW {
						keys = append(keys, Key{
							DemandScenario:   ds,
							BidSigma:         sigma,
							WindCapacityMW:   wind,
							ForecastErrorPct: errPct,
							StorageRatingMW:  rating,
							DayAhead:         cfg.DayAheadParticipation,
						})
					}
				}
			}
		}
	}
	return keys
}

// RunPoint runs the full clearing pipeline for one parameter tuple:
// DA(no storage) -> VF -> RT(N-ED) + RT(S-ED), and when day-ahead
// participation is on, DA(with storage) -> VF (re-derived) -> RT(pinned).
func (r *Runner) RunPoint(key Key) (*PointResult, error) {
	cfg := r.Cfg
	slv := r.Solver
	if slv == nil {
		slv = solver.NewSimplex()
	}

	snap, err := scenario.Build(scenario.Params{
		DemandScenario:   key.DemandScenario,
		Horizon:          cfg.Horizon,
		StepHours:        cfg.StepHours,
		PeakDemandMW:     cfg.PeakDemandMW,
		WindCapacityMW:   key.WindCapacityMW,
		ForecastErrorPct: key.ForecastErrorPct,
		Seed:             key.seed(cfg.Seed),
	})
	if err != nil {
		return nil, err
	}

	spec, err := cfg.StorageSpec(key.StorageRatingMW)
	if err != nil {
		return nil, err
	}

	pt := &PointResult{Key: key, Snapshot: snap}

	pt.DayAheadNoStorage, err = market.DayAhead(snap, market.DayAheadOptions{Mode: market.StorageNone, Solver: slv})
	if err != nil {
		return nil, err
	}

	// The zero-rating axis point runs without a value function: the unit has
	// no energy to value and, disabled, both real-time passes below degrade
	// to the plain dispatch.
	vfOpts := valuefn.Options{Segments: cfg.Segments}
	if spec.Enabled() {
		prices1 := perturbPrices(pt.DayAheadNoStorage.Prices, key.BidSigma, key.seed(cfg.Seed)+1)
		pt.VF1, err = valuefn.Build(prices1, spec, snap.StepHours, vfOpts)
		if err != nil {
			return nil, err
		}
	}

	// N-ED counterfactual: same pipeline with the rating zeroed out.
	pt.RTBaseline, err = market.RealTime(snap, pt.DayAheadNoStorage, market.RealTimeOptions{
		Storage:    model.StorageSpec{},
		WindowSize: cfg.WindowSize,
		Solver:     slv,
	})
	if err != nil {
		return nil, err
	}

	pt.RTStorage, err = market.RealTime(snap, pt.DayAheadNoStorage, market.RealTimeOptions{
		Storage:    spec,
		VF:         pt.VF1,
		WindowSize: cfg.WindowSize,
		Solver:     slv,
	})
	if err != nil {
		return nil, err
	}

	if !key.DayAhead {
		return pt, nil
	}

	daOpts := market.DayAheadOptions{Mode: market.StorageBid, Storage: spec, VF: pt.VF1, Solver: slv}
	if cfg.DayAheadMode == "coopt" {
		daOpts = market.DayAheadOptions{Mode: market.StorageCoOptimized, Storage: spec, Solver: slv}
	}
	pt.DayAheadStorage, err = market.DayAhead(snap, daOpts)
	if err != nil {
		return nil, err
	}

	if spec.Enabled() {
		prices2 := perturbPrices(pt.DayAheadStorage.Prices, key.BidSigma, key.seed(cfg.Seed)+2)
		pt.VF2, err = valuefn.Build(prices2, spec, snap.StepHours, vfOpts)
		if err != nil {
			return nil, err
		}
	}

	pt.RTPinned, err = market.RealTime(snap, pt.DayAheadStorage, market.RealTimeOptions{
		Storage:            spec,
		VF:                 pt.VF2,
		AltVF:              pt.VF1,
		WindowSize:         cfg.WindowSize,
		PinnedSchedule:     pt.DayAheadStorage,
		UseExternalSoCPath: true,
		Solver:             slv,
	})
	if err != nil {
		return nil, err
	}
	return pt, nil
}

// perturbPrices applies the bid-uncertainty offset: an additive Gaussian
// deviation per period, deterministic per point. Sigma 0 returns the input
// unchanged.
func perturbPrices(prices []float64, sigma float64, seed uint64) []float64 {
	if sigma == 0 {
		return prices
	}
	noise := distuv.Normal{Mu: 0, Sigma: sigma, Src: rand.NewSource(seed)}
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[i] = p + noise.Rand()
	}
	return out
}
