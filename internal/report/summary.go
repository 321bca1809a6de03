package report

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"storage-market/internal/model"
	"storage-market/internal/sweep"
)

// PriceStats summarizes one price trajectory.
type PriceStats struct {
	Mean         float64
	Min          float64
	Max          float64
	P05          float64
	P95          float64
	SpreadP95P05 float64
}

func SummarizePrices(prices []float64) PriceStats {
	if len(prices) == 0 {
		return PriceStats{}
	}
	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)
	s := PriceStats{
		Mean: stat.Mean(sorted, nil),
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		P05:  stat.Quantile(0.05, stat.Empirical, sorted, nil),
		P95:  stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}
	s.SpreadP95P05 = s.P95 - s.P05
	return s
}

// StorageProfit is the storage unit's realized arbitrage margin in a
// clearing result: energy revenue minus charging cost minus degradation.
func StorageProfit(res *model.ClearingResult, degradationCost, stepHours float64) float64 {
	if res == nil || len(res.DischargeMW) == 0 {
		return 0
	}
	profit := 0.0
	for t := range res.Prices {
		profit += res.Prices[t] * (res.DischargeMW[t] - res.ChargeMW[t]) * stepHours
		profit -= degradationCost * res.DischargeMW[t] * stepHours
	}
	return profit
}

// PointSummary is the flattened per-point record written to the sweep CSV.
type PointSummary struct {
	Key sweep.Key

	DAPrice         PriceStats
	RTBaselinePrice PriceStats
	RTStoragePrice  PriceStats

	StorageProfitRT     float64
	StorageProfitPinned float64
	FinalSoC            float64
	// FinalSoCMarginal prices the energy still held at the horizon end
	// against the last period's marginal curve; nonzero only when a terminal
	// SoC target leaves that energy in (or out of) the money.
	FinalSoCMarginal float64
}

func Summarize(pt *sweep.PointResult, degradationCost, stepHours float64) PointSummary {
	s := PointSummary{
		Key:             pt.Key,
		DAPrice:         SummarizePrices(pt.DayAheadNoStorage.Prices),
		RTBaselinePrice: SummarizePrices(pt.RTBaseline.Prices),
		RTStoragePrice:  SummarizePrices(pt.RTStorage.Prices),
		StorageProfitRT: StorageProfit(pt.RTStorage, degradationCost, stepHours),
	}
	if len(pt.RTStorage.SoC) > 0 {
		s.FinalSoC = pt.RTStorage.SoC[len(pt.RTStorage.SoC)-1]
		if pt.VF1 != nil {
			s.FinalSoCMarginal = pt.VF1.MarginalAt(len(pt.VF1.Marginal)-1, s.FinalSoC)
		}
	}
	if pt.RTPinned != nil {
		s.StorageProfitPinned = StorageProfit(pt.RTPinned, degradationCost, stepHours)
	}
	return s
}
