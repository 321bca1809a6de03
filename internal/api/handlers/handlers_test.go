package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storage-market/internal/api/models"
	"storage-market/internal/config"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Horizon = 6
	cfg.PeakDemandMW = 100
	cfg.WindCapacitiesMW = []float64{10}
	cfg.StorageRatingsMW = []float64{10}
	cfg.NormalizedPowerMW = 2.5

	r := gin.New()
	h := NewRunHandler(cfg)
	r.POST("/api/v1/run", h.RunPoint)
	r.GET("/api/v1/scenarios", ListScenarios)
	return r
}

func TestListScenarios(t *testing.T) {
	router := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/scenarios", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Scenarios []models.ScenarioInfo `json:"scenarios"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Scenarios, 5)
	assert.Equal(t, 1, body.Scenarios[0].Index)
	assert.NotEmpty(t, body.Scenarios[0].Description)
}

func TestRunPointRejectsMissingScenario(t *testing.T) {
	router := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/run", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_REQUEST", body.Error.Code)
}

func TestRunPointClearsPoint(t *testing.T) {
	router := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/run",
		strings.NewReader(`{"demand_scenario": 1, "include_ledgers": true}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body models.RunPointResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 1, body.Summary.DemandScenario)
	assert.Equal(t, 10.0, body.Summary.StorageRatingMW)
	assert.Greater(t, body.Summary.RTBaselinePriceMean, 0.0)
	require.Len(t, body.RealTimeLedger, 6)
	assert.Empty(t, body.PinnedLedger)

	for _, row := range body.RealTimeLedger {
		assert.GreaterOrEqual(t, row.SoC, 0.0)
		assert.LessOrEqual(t, row.SoC, 1.0)
	}
}

func TestRunPointRejectsBadScenarioIndex(t *testing.T) {
	router := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/run",
		strings.NewReader(`{"demand_scenario": 99}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "RUN_FAILED", body.Error.Code)
}
