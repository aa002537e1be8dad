package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/poultryledger/internal/scale"
)

// ScaleHandler serves weight readings and accepts payloads pushed by a
// device gateway.
type ScaleHandler struct {
	reader scale.Reader
	logger *zap.Logger
}

// NewScaleHandler constructs the HTTP handler adapter.
func NewScaleHandler(reader scale.Reader, logger *zap.Logger) *ScaleHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScaleHandler{reader: reader, logger: logger}
}

type readingRequest struct {
	Payload string `json:"payload"`
}

// Weight returns the current reading. It never fails.
func (h *ScaleHandler) Weight(c *gin.Context) {
	mode := scale.ModeSimulation
	connected := false
	if dr, ok := h.reader.(*scale.DeviceReader); ok {
		mode = scale.ModeDevice
		connected = dr.Connected()
	}

	c.JSON(http.StatusOK, gin.H{
		"weight":    h.reader.ReadWeight(c.Request.Context()),
		"mode":      mode,
		"connected": connected,
	})
}

// Observe records a raw payload from the scale. Only device mode accepts
// payloads.
func (h *ScaleHandler) Observe(c *gin.Context) {
	dr, ok := h.reader.(*scale.DeviceReader)
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "scale is in simulation mode"})
		return
	}

	var req readingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	dr.Observe([]byte(req.Payload))
	weight, parsed := scale.ParseWeight([]byte(req.Payload))
	c.JSON(http.StatusAccepted, gin.H{"weight": weight, "parsed": parsed})
}
