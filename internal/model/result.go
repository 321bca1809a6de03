package model

// ClearingResult is the common output shape of the day-ahead and real-time
// clearing passes. Slices are indexed [generator][period] or [period]; the
// commitment matrix is only populated by the day-ahead stage.
type ClearingResult struct {
	// Stage is a short tag for reporting: "DA", "RT".
	Stage string
	// Mode records how storage participated: "none", "coopt", "bid",
	// "pinned".
	Mode string

	Committed  [][]bool    // [gen][period], day-ahead only
	DispatchMW [][]float64 // [gen][period]
	Prices     []float64   // [period], dual of the balance row
	SpillMW    []float64   // [period], curtailed wind

	// Storage schedule, zero-length when storage does not participate.
	ChargeMW    []float64 // [period], grid-side MW drawn while charging
	DischargeMW []float64 // [period], grid-side MW delivered
	SoC         []float64 // [period], SoC at the END of each period

	Objective float64
}

// NetStorageMW is discharge minus charge for period t, or 0 when storage is
// not part of this result.
func (r *ClearingResult) NetStorageMW(t int) float64 {
	if len(r.DischargeMW) == 0 {
		return 0
	}
	return r.DischargeMW[t] - r.ChargeMW[t]
}

// TotalDispatchMW sums generator output for period t.
func (r *ClearingResult) TotalDispatchMW(t int) float64 {
	total := 0.0
	for g := range r.DispatchMW {
		total += r.DispatchMW[g][t]
	}
	return total
}

// ValueFunction is the backward-induction output: V[t][i] is the value of
// holding SoC sample i at the START of period t (t in 0..T, row T being the
// terminal value). Marginal[t][k] is the continuation marginal value
// (currency/MWh) governing actions taken DURING period t, for the segment
// between samples k and k+1; it is non-increasing in k.
type ValueFunction struct {
	Grid     SoCGrid
	Value    [][]float64
	Marginal [][]float64
}

// MarginalAt evaluates the period-t marginal value step function at an
// arbitrary SoC. Segments are equal-width over [0,1], so this works for both
// full-resolution and compressed curves.
func (vf *ValueFunction) MarginalAt(t int, soc float64) float64 {
	m := vf.Marginal[t]
	k := int(Clamp01(soc) * float64(len(m)))
	if k >= len(m) {
		k = len(m) - 1
	}
	return m[k]
}
