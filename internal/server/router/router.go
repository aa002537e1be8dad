package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/poultryledger/internal/server/handlers"
)

// Handlers groups the HTTP adapters mounted on the engine.
type Handlers struct {
	Ledger  *handlers.LedgerHandler
	Tickets *handlers.TicketHandler
	Scale   *handlers.ScaleHandler
	Reports *handlers.ReportHandler
	// Webhook is nil when WhatsApp is not configured.
	Webhook *handlers.WebhookHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	providers := r.Group("/providers")
	providers.GET("", h.Ledger.ListProviders)
	providers.POST("", h.Ledger.CreateProvider)
	providers.GET("/:providerID", h.Ledger.GetProvider)
	providers.PUT("/:providerID", h.Ledger.UpdateProvider)
	providers.GET("/:providerID/summary", h.Ledger.ProviderSummary)
	providers.POST("/:providerID/sales", h.Ledger.CreateSale)
	providers.GET("/:providerID/sales/:saleID", h.Ledger.GetSale)
	providers.POST("/:providerID/sales/:saleID/entries", h.Ledger.AddEntry)

	providers.GET("/:providerID/ticket", h.Tickets.ProviderTicket)
	providers.POST("/:providerID/ticket", h.Tickets.PrintProviderTicket)
	providers.GET("/:providerID/sales/:saleID/ticket", h.Tickets.SaleTicket)
	providers.POST("/:providerID/sales/:saleID/ticket", h.Tickets.PrintSaleTicket)

	providers.POST("/:providerID/report", h.Reports.AIReport)
	providers.POST("/:providerID/export", h.Reports.Export)

	r.POST("/proposals", h.Ledger.Propose)
	r.POST("/proposals/commit", h.Ledger.Commit)

	r.GET("/settings", h.Ledger.GetSettings)
	r.PUT("/settings", h.Ledger.UpdateSettings)

	r.GET("/scale/weight", h.Scale.Weight)
	r.POST("/scale/readings", h.Scale.Observe)

	if h.Webhook != nil {
		r.GET("/webhook", h.Webhook.Verify)
		r.POST("/webhook", h.Webhook.Receive)
	}

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
