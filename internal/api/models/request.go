package models

// RunPointRequest asks the server to clear a single sweep point. Zero
// values fall back to the server's default experiment configuration.
type RunPointRequest struct {
	DemandScenario   int     `json:"demand_scenario" binding:"required"`
	WindCapacityMW   float64 `json:"wind_capacity_mw"`
	ForecastErrorPct float64 `json:"forecast_error_pct"`
	StorageRatingMW  float64 `json:"storage_rating_mw"`
	BidSigma         float64 `json:"bid_sigma"`
	DayAhead         bool    `json:"day_ahead"`

	Horizon   int     `json:"horizon"`
	StepHours float64 `json:"step_hours"`
	Seed      uint64  `json:"seed"`

	// IncludeLedgers adds per-period ledgers to the response.
	IncludeLedgers bool `json:"include_ledgers"`
}
