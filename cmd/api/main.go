package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/escalation-service/internal/api/http"
	"github.com/spec-kit/escalation-service/internal/api/http/handlers"
	"github.com/spec-kit/escalation-service/internal/config"
	"github.com/spec-kit/escalation-service/internal/directory"
	"github.com/spec-kit/escalation-service/internal/events"
	"github.com/spec-kit/escalation-service/internal/geo"
	"github.com/spec-kit/escalation-service/internal/observability"
	"github.com/spec-kit/escalation-service/internal/persistence"
	"github.com/spec-kit/escalation-service/internal/repository"
	"github.com/spec-kit/escalation-service/internal/score"
	"github.com/spec-kit/escalation-service/internal/service"
	"github.com/spec-kit/escalation-service/internal/sla"
	"github.com/spec-kit/escalation-service/internal/ticketing"
	"github.com/spec-kit/escalation-service/internal/worker"
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

	pool := pg.PoolHandle()
	if pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rdb := persistence.NewRedis(cfg.Redis, logger)
	defer rdb.Close()

	var processRepo repository.ProcessRepository
	var activityRepo repository.ActivityRepository
	var workItemRepo repository.WorkItemRepository
	var auditRepo repository.AuditRepository
	if pool != nil {
		processRepo = repository.NewProcessRepository(pool)
		activityRepo = repository.NewActivityRepository(pool)
		workItemRepo = repository.NewWorkItemRepository(pool)
		auditRepo = repository.NewAuditRepository(pool)
	} else {
		activities := repository.NewMemoryActivityRepository()
		processRepo = repository.NewMemoryProcessRepository()
		activityRepo = activities
		workItemRepo = repository.NewMemoryWorkItemRepository(activities)
		auditRepo = repository.NewMemoryAuditRepository()
	}

	store := service.NewProcessStore(service.StoreDependencies{
		ProcessRepo:  processRepo,
		ActivityRepo: activityRepo,
		WorkItemRepo: workItemRepo,
		AuditRepo:    auditRepo,
		Logger:       logger,
	})

	dir := directory.NewStaticDirectory(directory.ParseParticipants(cfg.Directory.Participants))
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	observability.RegisterEventLogging(dispatcher, logger, metrics)

	client := ticketing.NewHTTPClient(ticketing.HTTPConfig{
		BaseURL:  cfg.Ticketing.BaseURL,
		Token:    cfg.Ticketing.Token,
		Timeout:  cfg.Ticketing.Timeout(),
		PageSize: cfg.Ticketing.PageSize,
	})
	pusher := ticketing.NewRedisPusher(rdb.Client, logger)

	policy := policyFromConfig(cfg.SLA)
	calculator := calculatorFromConfig(cfg.Score)
	resolver := geo.NewResolver(geo.StaticLookup(cfg.Geo.StaticCoords), rdb.Client, logger)

	escalation := service.NewEscalationService(service.EscalationDependencies{
		Store:      store,
		Directory:  dir,
		Pusher:     pusher,
		Dispatcher: dispatcher,
		Policy:     policy,
		Defaults:   cfg.Escalation,
		Logger:     logger,
	})

	syncService := service.NewSyncService(service.SyncDependencies{
		Client:     client,
		Store:      store,
		Escalation: escalation,
		Dispatcher: dispatcher,
		Config:     cfg.Sync,
		Logger:     logger,
	})

	dispatchService := service.NewDispatchService(service.DispatchDependencies{
		Client:         client,
		Calculator:     calculator,
		Policy:         policy,
		Resolver:       resolver,
		RecurrenceDays: cfg.Score.RecurrenceDays,
		Logger:         logger,
	})

	sweeper := worker.NewSweepWorker(escalation, cfg.Escalation.SweepInterval(), metrics, logger)
	go sweeper.Run(ctx)

	pushWorker := worker.NewPushWorker(pusher, client, cfg.Escalation.PushMaxAttempts, dispatcher, metrics, logger)
	go pushWorker.Run(ctx)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(rdb),
		WorkItems: handlers.NewWorkItemsHandler(escalation, store),
		Sync:      handlers.NewSyncHandler(syncService, logger),
		Dispatch:  handlers.NewDispatchHandler(dispatchService),
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

func policyFromConfig(cfg config.SLAConfig) sla.Policy {
	policy := sla.Default()
	if len(cfg.WindowHours) > 0 {
		windows := make(map[int]time.Duration, len(cfg.WindowHours))
		for priority, hours := range cfg.WindowHours {
			windows[priority] = time.Duration(hours) * time.Hour
		}
		policy.Windows = windows
	}
	if cfg.AtRiskHours > 0 {
		policy.AtRiskAfter = time.Duration(cfg.AtRiskHours) * time.Hour
	}
	if cfg.OverdueHours > 0 {
		policy.OverdueAfter = time.Duration(cfg.OverdueHours) * time.Hour
	}
	return policy
}

func calculatorFromConfig(cfg config.ScoreConfig) score.Calculator {
	calc := score.DefaultCalculator()
	if len(cfg.PriorityWeight) > 0 {
		calc.PriorityWeight = cfg.PriorityWeight
	}
	if cfg.OnTimeMultiplier > 0 {
		calc.OnTimeMultiplier = cfg.OnTimeMultiplier
	}
	if cfg.AtRiskMultiplier > 0 {
		calc.AtRiskMultiplier = cfg.AtRiskMultiplier
	}
	if cfg.OverdueMultiplier > 0 {
		calc.OverdueMultiplier = cfg.OverdueMultiplier
	}
	if cfg.RecurrenceWeight > 0 {
		calc.RecurrenceWeight = cfg.RecurrenceWeight
	}
	return calc
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
