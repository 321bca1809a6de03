package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storage-market/internal/api/models"
	"storage-market/internal/scenario"
)

var scenarioDescriptions = []string{
	"flat valley, single evening peak",
	"peaky evening",
	"double peak (morning + evening)",
	"high base load, shallow swing",
	"low base load, deep overnight valley",
}

// ListScenarios handles GET /api/v1/scenarios.
func ListScenarios(c *gin.Context) {
	out := make([]models.ScenarioInfo, 0, scenario.NumDemandScenarios)
	for i := 1; i <= scenario.NumDemandScenarios; i++ {
		out = append(out, models.ScenarioInfo{Index: i, Description: scenarioDescriptions[i-1]})
	}
	c.JSON(http.StatusOK, gin.H{"scenarios": out})
}
