package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storage-market/internal/api/models"
	"storage-market/internal/config"
	"storage-market/internal/market"
	"storage-market/internal/model"
	"storage-market/internal/report"
	"storage-market/internal/sweep"
)

// RunHandler clears single sweep points on demand.
type RunHandler struct {
	cfg *config.Config
}

func NewRunHandler(cfg *config.Config) *RunHandler {
	if cfg == nil {
		cfg = config.Default()
	}
	return &RunHandler{cfg: cfg}
}

// RunPoint handles POST /api/v1/run.
func (h *RunHandler) RunPoint(c *gin.Context) {
	var req models.RunPointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return
	}

	cfg := *h.cfg
	if req.Horizon > 0 {
		cfg.Horizon = req.Horizon
	}
	if req.StepHours > 0 {
		cfg.StepHours = req.StepHours
	}
	if req.Seed != 0 {
		cfg.Seed = req.Seed
	}
	cfg.DayAheadParticipation = req.DayAhead

	key := sweep.Key{
		DemandScenario:   req.DemandScenario,
		BidSigma:         req.BidSigma,
		WindCapacityMW:   orDefault(req.WindCapacityMW, cfg.WindCapacitiesMW[0]),
		ForecastErrorPct: req.ForecastErrorPct,
		StorageRatingMW:  orDefault(req.StorageRatingMW, cfg.StorageRatingsMW[0]),
		DayAhead:         req.DayAhead,
	}

	runner := sweep.NewRunner(&cfg)
	pt, err := runner.RunPoint(key)
	if err != nil {
		var infeasible *market.InfeasibleError
		if errors.As(err, &infeasible) {
			c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    "INFEASIBLE",
					Message: err.Error(),
					Details: map[string]interface{}{"point": key.String()},
				},
			})
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "RUN_FAILED", Message: err.Error()},
		})
		return
	}

	s := report.Summarize(pt, cfg.Storage.DegradationCost, cfg.StepHours)
	resp := models.RunPointResponse{
		Status: "ok",
		Summary: models.PointSummary{
			DemandScenario:      key.DemandScenario,
			WindCapacityMW:      key.WindCapacityMW,
			ForecastErrorPct:    key.ForecastErrorPct,
			StorageRatingMW:     key.StorageRatingMW,
			DayAhead:            key.DayAhead,
			DAPriceMean:         s.DAPrice.Mean,
			RTBaselinePriceMean: s.RTBaselinePrice.Mean,
			RTStoragePriceMean:  s.RTStoragePrice.Mean,
			StorageProfitRT:     s.StorageProfitRT,
			StorageProfitPinned: s.StorageProfitPinned,
			FinalSoC:            s.FinalSoC,
		},
	}
	if req.IncludeLedgers {
		resp.DayAheadLedger = ledgerRows(pt.Snapshot, pt.DayAheadNoStorage)
		resp.RealTimeLedger = ledgerRows(pt.Snapshot, pt.RTStorage)
		resp.BaselineLedger = ledgerRows(pt.Snapshot, pt.RTBaseline)
		if pt.RTPinned != nil {
			resp.PinnedLedger = ledgerRows(pt.Snapshot, pt.RTPinned)
		}
	}
	c.JSON(http.StatusOK, resp)
}

func ledgerRows(snap *model.SystemSnapshot, res *model.ClearingResult) []models.LedgerRow {
	rows := make([]models.LedgerRow, snap.Horizon)
	withStorage := len(res.DischargeMW) > 0
	for t := 0; t < snap.Horizon; t++ {
		row := models.LedgerRow{
			Period:          t + 1,
			DemandMW:        snap.DemandMW[t],
			WindForecastMW:  snap.WindForecastMW[t],
			WindActualMW:    snap.WindActualMW[t],
			Price:           res.Prices[t],
			TotalDispatchMW: res.TotalDispatchMW(t),
			SpillMW:         res.SpillMW[t],
		}
		if withStorage {
			row.ChargeMW = res.ChargeMW[t]
			row.DischargeMW = res.DischargeMW[t]
			row.SoC = res.SoC[t]
		}
		rows[t] = row
	}
	return rows
}

func orDefault(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
