package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/poultryledger/internal/domain/models"
	"github.com/mamadbah2/poultryledger/internal/ledger"
	"github.com/mamadbah2/poultryledger/internal/ticket"
)

// Printer delivers an encoded ticket and names the sink that accepted it.
type Printer interface {
	Print(ctx context.Context, preferred models.SinkKind, stream []byte) (string, error)
}

// TicketHandler encodes sale and provider tickets, returns them for preview
// or sends them to the printer.
type TicketHandler struct {
	store   *ledger.Store
	encoder *ticket.Encoder
	printer Printer
	now     func() time.Time
	logger  *zap.Logger
}

// NewTicketHandler constructs the HTTP handler adapter.
func NewTicketHandler(store *ledger.Store, encoder *ticket.Encoder, printer Printer, logger *zap.Logger) *TicketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketHandler{store: store, encoder: encoder, printer: printer, now: time.Now, logger: logger}
}

// SaleTicket returns the client ticket as raw directives or as a preview.
func (h *TicketHandler) SaleTicket(c *gin.Context) {
	stream, err := h.saleStream(c.Param("providerID"), c.Param("saleID"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.render(c, stream)
}

// PrintSaleTicket sends the client ticket to the preferred sink.
func (h *TicketHandler) PrintSaleTicket(c *gin.Context) {
	stream, err := h.saleStream(c.Param("providerID"), c.Param("saleID"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.print(c, stream)
}

// ProviderTicket returns the provider summary ticket.
func (h *TicketHandler) ProviderTicket(c *gin.Context) {
	stream, err := h.providerStream(c.Param("providerID"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.render(c, stream)
}

// PrintProviderTicket sends the provider summary ticket to the preferred sink.
func (h *TicketHandler) PrintProviderTicket(c *gin.Context) {
	stream, err := h.providerStream(c.Param("providerID"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.print(c, stream)
}

func (h *TicketHandler) saleStream(providerID, saleID string) ([]byte, error) {
	p, err := h.store.Provider(providerID)
	if err != nil {
		return nil, err
	}
	sale, perCrate, err := h.store.Sale(providerID, saleID)
	if err != nil {
		return nil, err
	}

	summary := models.SaleSummary{
		SaleID:      sale.ID,
		ClientName:  sale.ClientName,
		IsCompleted: sale.IsCompleted,
		Metrics:     h.store.Calculator().Compute(sale, perCrate),
	}
	return h.encoder.ClientTicket(p.Name, summary, h.now()), nil
}

func (h *TicketHandler) providerStream(providerID string) ([]byte, error) {
	summary, err := h.store.ProviderSummary(providerID)
	if err != nil {
		return nil, err
	}
	return h.encoder.ProviderTicket(summary, h.now()), nil
}

func (h *TicketHandler) render(c *gin.Context, stream []byte) {
	switch c.DefaultQuery("format", "preview") {
	case "raw":
		c.Data(http.StatusOK, "application/octet-stream", stream)
	case "preview":
		c.String(http.StatusOK, h.encoder.Preview(stream))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be raw or preview"})
	}
}

func (h *TicketHandler) print(c *gin.Context, stream []byte) {
	preferred := h.store.Settings().PreferredSink
	sink, err := h.printer.Print(c.Request.Context(), preferred, stream)
	if err != nil {
		h.logger.Warn("ticket not printed", zap.String("sink", sink), zap.Error(err))
		if sink != "" {
			c.JSON(http.StatusBadGateway, gin.H{"error": "printing failed", "sink": sink})
			return
		}
		writeError(c, h.logger, err)
		return
	}

	h.logger.Info("ticket printed", zap.String("sink", sink), zap.Int("bytes", len(stream)))
	c.JSON(http.StatusOK, gin.H{"sink": sink})
}
