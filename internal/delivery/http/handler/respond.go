package handler

import (
	"errors"
	"net/http"

	"fleetpulse/internal/ingestion"
	"fleetpulse/internal/logger"
	"fleetpulse/internal/middleware"
	appErrors "fleetpulse/pkg/errors"
	"fleetpulse/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps a use-case error onto the HTTP error envelope. Internal
// details are logged, never returned.
func respondError(c *gin.Context, err error) {
	if verr, ok := ingestion.IsValidationError(err); ok {
		utils.ErrorResponse(c, http.StatusBadRequest, "Validation failed", verr.Fields)
		return
	}

	var appErr *appErrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case appErrors.CodeValidation:
			if appErr.Err != nil {
				utils.ErrorResponse(c, http.StatusBadRequest, appErr.Message, appErr.Err.Error())
				return
			}
			utils.ErrorResponse(c, http.StatusBadRequest, appErr.Message)
			return
		case appErrors.CodeBadRequest:
			utils.ErrorResponse(c, http.StatusBadRequest, appErr.Message)
			return
		case appErrors.CodeNotFound:
			utils.ErrorResponse(c, http.StatusNotFound, appErr.Message)
			return
		}
	}

	_ = c.Error(err)
	logger.WithRequestID(middleware.GetRequestID(c)).Error("Request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	utils.ErrorResponse(c, http.StatusInternalServerError, "Internal server error")
}

// readBody returns the raw request body or writes a 400.
func readBody(c *gin.Context) ([]byte, bool) {
	body, err := c.GetRawData()
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	return body, true
}
