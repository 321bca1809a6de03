// Package valuefn turns a price trajectory into the storage unit's marginal
// value-of-energy curves by backward induction over a discretized SoC grid.
// The marginal curve per period is the bid/offer stack the clearing stages
// consume.
package valuefn

import (
	"errors"
	"fmt"
	"math"

	"storage-market/internal/model"
)

// Options tunes the builder.
type Options struct {
	// Segments, when > 0, compresses each period's marginal curve to that
	// many equal-width tiers; 1 yields a single power-quantity bid. 0 keeps
	// the full grid resolution.
	Segments int
}

// Build runs backward induction over prices (length T, currency/MWh) and
// returns the value table and marginal bid curves. The terminal value is
// zero everywhere, or a linear penalty pulling the final SoC toward
// spec.TerminalSoC when that is set.
func Build(prices []float64, spec model.StorageSpec, stepHours float64, opts Options) (*model.ValueFunction, error) {
	if len(prices) == 0 {
		return nil, errors.New("valuefn: empty price trajectory")
	}
	if stepHours <= 0 {
		return nil, errors.New("valuefn: step size must be > 0")
	}
	if spec.Efficiency <= 0 {
		return nil, errors.New("valuefn: efficiency must be > 0")
	}
	if spec.EnergyMWh() <= 0 {
		return nil, errors.New("valuefn: energy rating must be > 0")
	}
	grid, err := model.NewSoCGrid(spec.GridResolution)
	if err != nil {
		return nil, fmt.Errorf("valuefn: %w", err)
	}
	if grid.Len() < 2 {
		return nil, errors.New("valuefn: SoC grid needs at least 2 samples")
	}

	T := len(prices)
	n := grid.Len()
	energy := spec.EnergyMWh()
	eta := spec.Efficiency
	deg := spec.DegradationCost

	value := make([][]float64, T+1)
	for t := range value {
		value[t] = make([]float64, n)
	}

	// Terminal value: flat, or a penalty steep enough to bind the SoC
	// target without distorting interior periods.
	if spec.TerminalSoC != nil {
		pen := 2*priceSpread(prices) + deg + 1
		for i, soc := range grid.Samples {
			value[T][i] = -pen * math.Abs(soc-*spec.TerminalSoC) * energy
		}
	}

	// Maximum SoC movement in one period. Charging stores eta per grid MWh;
	// discharging withdraws 1/eta per delivered MWh.
	chargeStep := spec.PowerMW * stepHours * eta / energy
	dischargeStep := spec.PowerMW * stepHours / (eta * energy)

	interp := func(row []float64, soc float64) float64 {
		x := model.Clamp01(soc) / grid.Step()
		k := int(x)
		if k >= n-1 {
			return row[n-1]
		}
		f := x - float64(k)
		return row[k]*(1-f) + row[k+1]*f
	}

	for t := T - 1; t >= 0; t-- {
		price := prices[t]
		cont := value[t+1]
		for i, soc := range grid.Samples {
			best := cont[i] // idle

			// The payoff is linear in the action, so the optimum sits at a
			// grid sample of the continuation or at a power bound; evaluate
			// exactly those candidates.
			for j, target := range grid.Samples {
				if j == i {
					continue
				}
				if target > soc {
					stored := (target - soc) * energy
					if stored > spec.PowerMW*stepHours*eta+1e-12 {
						continue
					}
					cand := -price*stored/eta + cont[j]
					if cand > best {
						best = cand
					}
				} else {
					delivered := (soc - target) * energy * eta
					if delivered > spec.PowerMW*stepHours+1e-12 {
						continue
					}
					cand := (price-deg)*delivered + cont[j]
					if cand > best {
						best = cand
					}
				}
			}
			if hi := soc + chargeStep; hi < 1 {
				stored := chargeStep * energy
				if cand := -price*stored/eta + interp(cont, hi); cand > best {
					best = cand
				}
			}
			if lo := soc - dischargeStep; lo > 0 {
				delivered := dischargeStep * energy * eta
				if cand := (price-deg)*delivered + interp(cont, lo); cand > best {
					best = cand
				}
			}
			value[t][i] = best
		}
	}

	marginal := make([][]float64, T)
	segEnergy := grid.Step() * energy
	for t := 0; t < T; t++ {
		row := make([]float64, n-1)
		for k := 0; k < n-1; k++ {
			row[k] = (value[t+1][k+1] - value[t+1][k]) / segEnergy
		}
		if opts.Segments > 0 && opts.Segments < len(row) {
			row = compress(row, opts.Segments)
		}
		marginal[t] = row
	}

	return &model.ValueFunction{Grid: grid, Value: value, Marginal: marginal}, nil
}

// compress resamples the marginal step function onto `tiers` equal-width
// steps over [0,1]. Each tier is the width-weighted average of the underlying
// segments it spans, so the integral (total value of a full charge) and the
// non-increasing ordering are both preserved even when the grid segment
// count is not divisible by tiers.
func compress(row []float64, tiers int) []float64 {
	out := make([]float64, tiers)
	n := float64(len(row))
	for k := 0; k < tiers; k++ {
		lo := float64(k) / float64(tiers) * n
		hi := float64(k+1) / float64(tiers) * n
		sum := 0.0
		for i := int(lo); i < len(row) && float64(i) < hi; i++ {
			l := math.Max(lo, float64(i))
			h := math.Min(hi, float64(i+1))
			sum += row[i] * (h - l)
		}
		out[k] = sum / (hi - lo)
	}
	return out
}

func priceSpread(prices []float64) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range prices {
		lo = math.Min(lo, p)
		hi = math.Max(hi, math.Abs(p))
	}
	if lo > 0 {
		lo = 0
	}
	return hi - lo
}
