package report

import (
	"encoding/csv"
	"os"
	"strconv"

	"storage-market/internal/model"
	"storage-market/internal/sweep"
)

// WriteClearingCSV writes one clearing result as a per-period ledger.
func WriteClearingCSV(path string, snap *model.SystemSnapshot, res *model.ClearingResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"period", "demand_mw", "wind_forecast_mw", "wind_actual_mw", "price", "total_dispatch_mw", "spill_mw"}
	for _, g := range snap.Generators {
		header = append(header, "dispatch_"+g.Name+"_mw")
	}
	withStorage := len(res.DischargeMW) > 0
	if withStorage {
		header = append(header, "charge_mw", "discharge_mw", "soc")
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for t := 0; t < snap.Horizon; t++ {
		row := []string{
			strconv.Itoa(t + 1),
			fmtFloat(snap.DemandMW[t]),
			fmtFloat(snap.WindForecastMW[t]),
			fmtFloat(snap.WindActualMW[t]),
			fmtFloat(res.Prices[t]),
			fmtFloat(res.TotalDispatchMW(t)),
			fmtFloat(res.SpillMW[t]),
		}
		for g := range snap.Generators {
			row = append(row, fmtFloat(res.DispatchMW[g][t]))
		}
		if withStorage {
			row = append(row, fmtFloat(res.ChargeMW[t]), fmtFloat(res.DischargeMW[t]), fmtFloat(res.SoC[t]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// WriteSweepCSV writes the one-row-per-point summary of a finished sweep.
func WriteSweepCSV(path string, points []sweep.PointResult, degradationCost, stepHours float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"demand_scenario", "bid_sigma", "wind_capacity_mw", "forecast_error_pct", "storage_rating_mw", "day_ahead",
		"da_price_mean", "rt_baseline_price_mean", "rt_storage_price_mean",
		"rt_price_spread_p95_p05",
		"storage_profit_rt", "storage_profit_pinned", "final_soc", "final_soc_marginal",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range points {
		s := Summarize(&points[i], degradationCost, stepHours)
		row := []string{
			strconv.Itoa(s.Key.DemandScenario),
			fmtFloat(s.Key.BidSigma),
			fmtFloat(s.Key.WindCapacityMW),
			fmtFloat(s.Key.ForecastErrorPct),
			fmtFloat(s.Key.StorageRatingMW),
			strconv.FormatBool(s.Key.DayAhead),
			fmtFloat(s.DAPrice.Mean),
			fmtFloat(s.RTBaselinePrice.Mean),
			fmtFloat(s.RTStoragePrice.Mean),
			fmtFloat(s.RTStoragePrice.SpreadP95P05),
			fmtFloat(s.StorageProfitRT),
			fmtFloat(s.StorageProfitPinned),
			fmtFloat(s.FinalSoC),
			fmtFloat(s.FinalSoCMarginal),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
