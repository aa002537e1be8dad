package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/poultryledger/internal/ledger"
	"github.com/mamadbah2/poultryledger/internal/printer"
	"github.com/mamadbah2/poultryledger/internal/service/reporting"
)

// writeError maps domain errors onto HTTP responses.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var rej *ledger.RejectionError
	var verr ledger.ValidationError

	switch {
	case errors.As(err, &rej):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"reason":    rej.Reason,
			"message":   rej.Message,
			"remaining": rej.Remaining,
		})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
	case ledger.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrUnknownAction), errors.Is(err, ledger.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, reporting.ErrAIDisabled), errors.Is(err, reporting.ErrExportDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, printer.ErrDeviceUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no printer available"})
	default:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// respondMutation writes the result of a ledger mutation. A failed snapshot
// does not fail the request: the body carries a warning instead.
func respondMutation(c *gin.Context, logger *zap.Logger, status int, key string, value any, err error) {
	if err != nil && !ledger.IsPersistenceWarning(err) {
		writeError(c, logger, err)
		return
	}

	body := gin.H{}
	if key != "" {
		body[key] = value
	}
	if err != nil {
		body["warning"] = "changes were applied but could not be saved"
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, logger *zap.Logger, err error) {
	logger.Debug("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
}
