package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-transfer-alert/internal/domain"
	"github.com/feral-file/ff-transfer-alert/internal/logger"
	"github.com/feral-file/ff-transfer-alert/internal/pipeline"
)

// runResponse is the body of every trigger response.
// Counts are present on success and on failures that happened after the fetch.
type runResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
	*domain.RunResult
}

// respondRunSuccess sends a 200 with the run counts
func respondRunSuccess(c *gin.Context, result domain.RunResult) {
	c.JSON(http.StatusOK, runResponse{OK: true, RunResult: &result})
}

// respondRunError maps a run error to its status code:
// missing configuration is a 400, a failed ledger fetch a 502, anything else a 500
func respondRunError(c *gin.Context, err error, result domain.RunResult) {
	switch {
	case domain.IsConfigError(err):
		c.JSON(http.StatusBadRequest, runResponse{
			Error:   "Missing configuration",
			Details: err.Error(),
		})
	case errors.Is(err, pipeline.ErrFetchTransfers):
		c.JSON(http.StatusBadGateway, runResponse{
			Error:   "Failed to fetch transfers",
			Details: err.Error(),
		})
	default:
		logger.ErrorCtx(c.Request.Context(), err)
		c.JSON(http.StatusInternalServerError, runResponse{
			Error:     "Run failed",
			Details:   err.Error(),
			RunResult: &result,
		})
	}
}
