package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/poultryledger/internal/config"
	"github.com/mamadbah2/poultryledger/internal/device"
	"github.com/mamadbah2/poultryledger/internal/ledger"
	"github.com/mamadbah2/poultryledger/internal/printer"
	"github.com/mamadbah2/poultryledger/internal/repository/memory"
	"github.com/mamadbah2/poultryledger/internal/repository/mongodb"
	"github.com/mamadbah2/poultryledger/internal/repository/sheets"
	"github.com/mamadbah2/poultryledger/internal/scale"
	"github.com/mamadbah2/poultryledger/internal/scheduler"
	"github.com/mamadbah2/poultryledger/internal/server/handlers"
	"github.com/mamadbah2/poultryledger/internal/server/router"
	commandsvc "github.com/mamadbah2/poultryledger/internal/service/commands"
	reportingsvc "github.com/mamadbah2/poultryledger/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/poultryledger/internal/service/whatsapp"
	"github.com/mamadbah2/poultryledger/internal/ticket"
	"github.com/mamadbah2/poultryledger/pkg/clients/anthropic"
	whatsappclient "github.com/mamadbah2/poultryledger/pkg/clients/whatsapp"
	"github.com/mamadbah2/poultryledger/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel, cfg.Server.LogFormat))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	location, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}

	var persistence ledger.Persistence
	switch cfg.Storage.Driver {
	case config.StorageMongo:
		mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.Storage)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		persistence = mongoRepo
	default:
		baseLogger.Warn("memory storage selected, ledger will not survive a restart")
		persistence = memory.NewRepository()
	}

	calc := ledger.NewCalculator(cfg.Ledger.DefaultTareKg)
	store := ledger.NewStore(persistence, calc, logger.Named(baseLogger, "ledger"))
	if err := store.Load(context.Background()); err != nil {
		baseLogger.Fatal("failed to load ledger", zap.Error(err))
	}

	encoder := ticket.NewEncoder(cfg.Ledger.TicketTitle, cfg.Ledger.TicketWidth)
	preview := func(stream []byte) []byte { return []byte(encoder.Preview(stream)) }

	// Unconfigured sinks stay nil and are skipped.
	var deviceSink, systemSink printer.Sink
	if cfg.Printer.Addr != "" {
		deviceSink = printer.NewDeviceSink(device.NewTCPPrinter(cfg.Printer.Addr, cfg.Printer.Timeout))
	}
	if cfg.Printer.SystemCommand != "" {
		systemSink = printer.NewSystemSink(cfg.Printer.SystemCommand, nil, preview)
	}
	printSvc := printer.NewService(deviceSink, systemSink, printer.NewLogSink(preview, logger.Named(baseLogger, "printer.simulated")), logger.Named(baseLogger, "printer"))

	simulator := scale.NewSimulator(cfg.Scale.SimMinKg, cfg.Scale.SimMaxKg, cfg.Scale.SimSeed)
	reader := scale.New(cfg.Scale.Mode, simulator, logger.Named(baseLogger, "scale"))

	var aiClient anthropic.Client
	if cfg.AI.AnthropicKey != "" {
		aiClient = anthropic.NewClient(cfg.AI.AnthropicKey)
		baseLogger.Info("anthropic ai client enabled")
	} else {
		baseLogger.Warn("anthropic api key missing, ai reports disabled")
	}

	var sheetsRepo sheets.Repository
	if cfg.SheetsEnabled() {
		repo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		sheetsRepo = repo
	}

	reportingSvc := reportingsvc.NewService(store, aiClient, sheetsRepo, location, logger.Named(baseLogger, "svc.reporting"))

	var messenger scheduler.Messenger
	var webhookHandler *handlers.WebhookHandler
	if cfg.WhatsAppEnabled() {
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		messenger = whatsClient
		dispatcher := commandsvc.NewService(store, reportingSvc, logger.Named(baseLogger, "svc.commands"))
		messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, dispatcher, logger.Named(baseLogger, "svc.whatsapp"))
		webhookHandler = handlers.NewWebhookHandler(messagingSvc, logger.Named(baseLogger, "handlers.whatsapp"))
	} else {
		baseLogger.Warn("whatsapp not configured, digest delivery and manager queries disabled")
	}
	sched := scheduler.NewScheduler(cfg.Reporting.CronSchedule, location, reportingSvc, messenger, cfg.WhatsApp.ManagerID, logger.Named(baseLogger, "scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	engine := router.New(router.Handlers{
		Ledger:  handlers.NewLedgerHandler(store, logger.Named(baseLogger, "handlers.ledger")),
		Tickets: handlers.NewTicketHandler(store, encoder, printSvc, logger.Named(baseLogger, "handlers.tickets")),
		Scale:   handlers.NewScaleHandler(reader, logger.Named(baseLogger, "handlers.scale")),
		Reports: handlers.NewReportHandler(reportingSvc, logger.Named(baseLogger, "handlers.reports")),
		Webhook: webhookHandler,
	}, logger.Named(baseLogger, "router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver), zap.String("scale_mode", cfg.Scale.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
