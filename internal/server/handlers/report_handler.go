package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Reporter produces AI reports and spreadsheet exports for a provider.
type Reporter interface {
	AIReport(ctx context.Context, providerID string) (string, error)
	ExportProvider(ctx context.Context, providerID string) (int, error)
}

// ReportHandler exposes the reporting collaborators.
type ReportHandler struct {
	svc    Reporter
	logger *zap.Logger
}

// NewReportHandler constructs the HTTP handler adapter.
func NewReportHandler(svc Reporter, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{svc: svc, logger: logger}
}

// AIReport returns the collaborator's prose untouched.
func (h *ReportHandler) AIReport(c *gin.Context) {
	report, err := h.svc.AIReport(c.Request.Context(), c.Param("providerID"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

// Export appends the provider's closed sales to the spreadsheet.
func (h *ReportHandler) Export(c *gin.Context) {
	rows, err := h.svc.ExportProvider(c.Request.Context(), c.Param("providerID"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}
