package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/order-service/internal/api/http"
	"github.com/spec-kit/order-service/internal/api/http/handlers"
	"github.com/spec-kit/order-service/internal/auth"
	"github.com/spec-kit/order-service/internal/bot"
	"github.com/spec-kit/order-service/internal/config"
	"github.com/spec-kit/order-service/internal/content"
	"github.com/spec-kit/order-service/internal/dispatch"
	"github.com/spec-kit/order-service/internal/intake"
	"github.com/spec-kit/order-service/internal/observability"
	"github.com/spec-kit/order-service/internal/persistence"
	"github.com/spec-kit/order-service/internal/ratelimit"
	"github.com/spec-kit/order-service/internal/repository"
	"github.com/spec-kit/order-service/internal/scheduler"
	"github.com/spec-kit/order-service/internal/service"
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
	userRepo := repository.NewUserRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	reviewRepo := repository.NewReviewRepository(pool)

	metrics := observability.NewMetrics()
	catalog := content.NewCatalog()

	dispatcher := dispatch.New(logger, metrics, dispatch.Options{
		QueueSize:     cfg.Dispatch.QueueSize,
		RetryAttempts: cfg.Dispatch.SendRetryAttempts,
		RetryBackoff:  cfg.Dispatch.SendRetryBackoff(),
	})

	var limiter ratelimit.Limiter = ratelimit.Disabled{}
	if cfg.Intake.SubmitLimitEnabled {
		limiter = ratelimit.NewRedisLimiter(redis.Client, cfg.Intake.SubmitWindow())
	}

	manager := intake.NewManager(intake.Config{
		SessionTTL:         cfg.Intake.SessionTTL(),
		RequireContact:     cfg.Intake.RequireContact,
		SubmitLimitEnabled: cfg.Intake.SubmitLimitEnabled,
	}, intake.Deps{
		Users:        userRepo,
		Orders:       orderRepo,
		Reviews:      reviewRepo,
		Limiter:      limiter,
		Catalog:      catalog,
		Notifier:     dispatcher,
		AdminChatIDs: cfg.Bot.AdminChatIDs,
		Logger:       logger,
		Metrics:      metrics,
	})

	orderService := service.NewOrderService(service.OrderDependencies{
		OrderRepo: orderRepo,
		UserRepo:  userRepo,
		Catalog:   catalog,
		Notifier:  dispatcher,
		Logger:    logger,
	})
	reviewService := service.NewReviewService(reviewRepo)
	statsService := service.NewStatsService(service.StatsDependencies{
		OrderRepo:  orderRepo,
		UserRepo:   userRepo,
		ReviewRepo: reviewRepo,
		Sessions:   manager,
		Metrics:    metrics,
	})
	authService := service.NewAuthService(cfg.Auth)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager())

	jobs := scheduler.New(cfg.Jobs, scheduler.Dependencies{
		Sessions: manager,
		Orders:   orderService,
		Notifier: dispatcher,
		Catalog:  catalog,
		Admins:   cfg.Bot.AdminChatIDs,
		Logger:   logger,
	})
	if err := jobs.Start(ctx); err != nil {
		logger.Fatal("failed to start jobs", zap.Error(err))
	}
	defer jobs.Stop()

	transport := bot.NewConsole(os.Stdin, os.Stdout)
	go transport.Run(ctx)

	loop := bot.NewLoop(transport, manager, dispatcher, bot.NewDecoder(catalog), logger, cfg.Bot.WorkerShards)
	go loop.Run(ctx)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Orders:         handlers.NewOrdersHandler(orderService),
		Broadcast:      handlers.NewBroadcastHandler(orderService, cfg.Dispatch.BroadcastWait()),
		Reviews:        handlers.NewReviewsHandler(reviewService),
		Stats:          handlers.NewStatsHandler(statsService),
		AuthMiddleware: authMiddleware,
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
