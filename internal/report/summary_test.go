package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storage-market/internal/model"
	"storage-market/internal/sweep"
)

func TestSummarizePrices(t *testing.T) {
	s := SummarizePrices([]float64{20, 80, 20, 80})
	assert.InDelta(t, 50, s.Mean, 1e-9)
	assert.InDelta(t, 20, s.Min, 1e-9)
	assert.InDelta(t, 80, s.Max, 1e-9)
	assert.InDelta(t, s.P95-s.P05, s.SpreadP95P05, 1e-9)
	assert.GreaterOrEqual(t, s.P95, s.P05)
}

func TestSummarizePricesEmpty(t *testing.T) {
	assert.Equal(t, PriceStats{}, SummarizePrices(nil))
}

func TestStorageProfit(t *testing.T) {
	res := &model.ClearingResult{
		Prices:      []float64{20, 80},
		ChargeMW:    []float64{10, 0},
		DischargeMW: []float64{0, 9},
	}
	// Revenue 9*80, charging cost 10*20, degradation 2/MWh on discharge.
	got := StorageProfit(res, 2, 1)
	assert.InDelta(t, 9*80-10*20-2*9, got, 1e-9)
}

func TestSummarizeFinalSoCMarginal(t *testing.T) {
	pt := &sweep.PointResult{
		DayAheadNoStorage: &model.ClearingResult{Prices: []float64{20, 80}},
		RTBaseline:        &model.ClearingResult{Prices: []float64{20, 80}},
		RTStorage: &model.ClearingResult{
			Prices:      []float64{20, 80},
			ChargeMW:    []float64{10, 0},
			DischargeMW: []float64{0, 9},
			SoC:         []float64{0.5, 0.3},
		},
		VF1: &model.ValueFunction{Marginal: [][]float64{{60, 40, 10, 0}, {30, 5, 0, 0}}},
	}

	s := Summarize(pt, 2, 1)
	assert.InDelta(t, 0.3, s.FinalSoC, 1e-9)
	// Segment of the last period's curve containing SoC 0.3.
	assert.InDelta(t, 5, s.FinalSoCMarginal, 1e-9)

	pt.VF1 = nil
	assert.Equal(t, 0.0, Summarize(pt, 2, 1).FinalSoCMarginal)
}

func TestStorageProfitNoStorage(t *testing.T) {
	assert.Equal(t, 0.0, StorageProfit(&model.ClearingResult{Prices: []float64{20}}, 2, 1))
	assert.Equal(t, 0.0, StorageProfit(nil, 2, 1))
}
