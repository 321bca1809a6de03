package models

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RunPointResponse summarizes one cleared sweep point.
type RunPointResponse struct {
	Status  string       `json:"status"`
	Summary PointSummary `json:"summary"`

	DayAheadLedger []LedgerRow `json:"day_ahead_ledger,omitempty"`
	RealTimeLedger []LedgerRow `json:"real_time_ledger,omitempty"`
	BaselineLedger []LedgerRow `json:"baseline_ledger,omitempty"`
	PinnedLedger   []LedgerRow `json:"pinned_ledger,omitempty"`
}

// PointSummary is the aggregate view of the point.
type PointSummary struct {
	DemandScenario   int     `json:"demand_scenario"`
	WindCapacityMW   float64 `json:"wind_capacity_mw"`
	ForecastErrorPct float64 `json:"forecast_error_pct"`
	StorageRatingMW  float64 `json:"storage_rating_mw"`
	DayAhead         bool    `json:"day_ahead"`

	DAPriceMean         float64 `json:"da_price_mean"`
	RTBaselinePriceMean float64 `json:"rt_baseline_price_mean"`
	RTStoragePriceMean  float64 `json:"rt_storage_price_mean"`
	StorageProfitRT     float64 `json:"storage_profit_rt"`
	StorageProfitPinned float64 `json:"storage_profit_pinned"`
	FinalSoC            float64 `json:"final_soc"`
}

// LedgerRow is one period of a clearing result.
type LedgerRow struct {
	Period          int     `json:"period"`
	DemandMW        float64 `json:"demand_mw"`
	WindForecastMW  float64 `json:"wind_forecast_mw"`
	WindActualMW    float64 `json:"wind_actual_mw"`
	Price           float64 `json:"price"`
	TotalDispatchMW float64 `json:"total_dispatch_mw"`
	SpillMW         float64 `json:"spill_mw"`
	ChargeMW        float64 `json:"charge_mw"`
	DischargeMW     float64 `json:"discharge_mw"`
	SoC             float64 `json:"soc"`
}

// ScenarioInfo describes one demand scenario for listing endpoints.
type ScenarioInfo struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
}
