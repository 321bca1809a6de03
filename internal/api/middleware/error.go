package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"storage-market/internal/api/models"
)

// ErrorHandler recovers panics into the JSON error envelope.
func ErrorHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: fmt.Sprint(recovered),
			},
		})
		c.Abort()
	})
}
