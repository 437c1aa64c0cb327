package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/bsic-bank/dataquality-service/internal/api/http"
	"github.com/bsic-bank/dataquality-service/internal/api/http/handlers"
	"github.com/bsic-bank/dataquality-service/internal/auth"
	"github.com/bsic-bank/dataquality-service/internal/automation"
	"github.com/bsic-bank/dataquality-service/internal/cbs"
	"github.com/bsic-bank/dataquality-service/internal/config"
	"github.com/bsic-bank/dataquality-service/internal/events"
	"github.com/bsic-bank/dataquality-service/internal/observability"
	"github.com/bsic-bank/dataquality-service/internal/persistence"
	"github.com/bsic-bank/dataquality-service/internal/repository"
	"github.com/bsic-bank/dataquality-service/internal/service"
	"github.com/bsic-bank/dataquality-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	commentRepo := repository.NewTicketCommentRepository(pool)
	clientRepo := repository.NewClientRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	reconciliationRepo := repository.NewReconciliationRepository(pool)
	kpiRepo := repository.NewKpiRepository(pool)
	sequenceRepo := repository.NewSequenceRepository(redis.Client)
	leaseRepo := repository.NewLeaseRepository(redis.Client)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		CommentRepo: commentRepo,
		ClientRepo:  clientRepo,
		UserRepo:    userRepo,
		Sequence:    sequenceRepo,
		Logger:      logger,
		Dispatcher:  dispatcher,
	})
	reconciliationService := service.NewReconciliationService(service.ReconciliationDependencies{
		Repo:       reconciliationRepo,
		Reader:     cbs.NewHTTPReader(cfg.CBS, logger),
		Logger:     logger,
		Dispatcher: dispatcher,
	})
	kpiService := service.NewKpiService(service.KpiDependencies{
		KpiRepo:    kpiRepo,
		TicketRepo: ticketRepo,
		Leases:     leaseRepo,
		Logger:     logger,
	})
	automationService := service.NewAutomationService(
		ticketService,
		reconciliationService,
		automation.NewHTTPTrigger(cfg.Automation, logger),
		dispatcher,
		cfg.Automation,
		logger,
	)
	notificationService := service.NewNotificationService(dispatcher, logger)

	automationService.RegisterHandlers()
	notificationService.RegisterHandlers()

	scheduler := worker.NewScheduler(ticketService, kpiService, cfg.Scheduler, nil, metrics, logger)
	scheduler.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:            handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:           handlers.NewTicketsHandler(ticketService),
		Reconciliation:    handlers.NewReconciliationHandler(reconciliationService),
		Kpis:              handlers.NewKpiHandler(kpiService),
		Automation:        handlers.NewAutomationHandler(automationService),
		TokenManager:      auth.NewTokenManager(cfg.Auth),
		CallbackTokenHash: cfg.Auth.CallbackTokenHash,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
