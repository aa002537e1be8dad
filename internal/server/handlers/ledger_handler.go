package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/poultryledger/internal/domain/models"
	"github.com/mamadbah2/poultryledger/internal/ledger"
)

// LedgerHandler exposes providers, sales, entries, proposals and settings.
type LedgerHandler struct {
	store  *ledger.Store
	logger *zap.Logger
}

// NewLedgerHandler constructs the HTTP handler adapter.
func NewLedgerHandler(store *ledger.Store, logger *zap.Logger) *LedgerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerHandler{store: store, logger: logger}
}

type entryRequest struct {
	Kind   models.EntryKind `json:"kind" binding:"required"`
	Weight float64          `json:"weight"`
	Count  int              `json:"count"`
}

type saleResponse struct {
	models.SaleLedger
	Metrics models.Metrics `json:"metrics"`
}

// ListProviders returns every provider with its sales.
func (h *LedgerHandler) ListProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": h.store.Providers()})
}

// CreateProvider registers a provider lot.
func (h *LedgerHandler) CreateProvider(c *gin.Context) {
	var req ledger.ProviderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	p, err := h.store.CreateProvider(c.Request.Context(), req)
	respondMutation(c, h.logger, http.StatusCreated, "provider", p, err)
}

// GetProvider returns one provider.
func (h *LedgerHandler) GetProvider(c *gin.Context) {
	p, err := h.store.Provider(c.Param("providerID"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"provider": p})
}

// UpdateProvider edits a provider's definition.
func (h *LedgerHandler) UpdateProvider(c *gin.Context) {
	var req ledger.ProviderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	p, err := h.store.UpdateProvider(c.Request.Context(), c.Param("providerID"), req)
	respondMutation(c, h.logger, http.StatusOK, "provider", p, err)
}

// ProviderSummary returns per-sale metrics, their sum and the stock position.
func (h *LedgerHandler) ProviderSummary(c *gin.Context) {
	summary, err := h.store.ProviderSummary(c.Param("providerID"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// CreateSale opens a client transaction.
func (h *LedgerHandler) CreateSale(c *gin.Context) {
	var req ledger.SaleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	sale, err := h.store.CreateSale(c.Request.Context(), c.Param("providerID"), req)
	respondMutation(c, h.logger, http.StatusCreated, "sale", sale, err)
}

// GetSale returns a sale together with its freshly computed metrics.
func (h *LedgerHandler) GetSale(c *gin.Context) {
	sale, perCrate, err := h.store.Sale(c.Param("providerID"), c.Param("saleID"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sale": saleResponse{
		SaleLedger: sale,
		Metrics:    h.store.Calculator().Compute(sale, perCrate),
	}})
}

// AddEntry records a weighing. Guard rejections answer 422 with the reason
// and the remaining crate headroom.
func (h *LedgerHandler) AddEntry(c *gin.Context) {
	var req entryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	entry, err := h.store.AddEntry(c.Request.Context(), c.Param("providerID"), c.Param("saleID"), req.Kind, req.Weight, req.Count)
	respondMutation(c, h.logger, http.StatusCreated, "entry", entry, err)
}

// Propose describes what committing an action would do.
func (h *LedgerHandler) Propose(c *gin.Context) {
	var req ledger.Proposal
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	proposal, err := h.store.Propose(req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposal": proposal})
}

// Commit applies a proposal the operator confirmed.
func (h *LedgerHandler) Commit(c *gin.Context) {
	var req ledger.Proposal
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	err := h.store.Commit(c.Request.Context(), req)
	if err == nil || ledger.IsPersistenceWarning(err) {
		h.logger.Info("proposal committed",
			zap.String("action", string(req.Action)),
			zap.String("provider_id", req.ProviderID),
			zap.String("sale_id", req.SaleID))
	}
	respondMutation(c, h.logger, http.StatusOK, "committed", req, err)
}

// GetSettings returns the app-level settings.
func (h *LedgerHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": h.store.Settings()})
}

// UpdateSettings replaces the app-level settings.
func (h *LedgerHandler) UpdateSettings(c *gin.Context) {
	var req models.Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	settings, err := h.store.UpdateSettings(c.Request.Context(), req)
	respondMutation(c, h.logger, http.StatusOK, "settings", settings, err)
}
