package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/grocery-service/internal/api/http"
	"github.com/spec-kit/grocery-service/internal/api/http/handlers"
	"github.com/spec-kit/grocery-service/internal/auth"
	"github.com/spec-kit/grocery-service/internal/config"
	"github.com/spec-kit/grocery-service/internal/events"
	"github.com/spec-kit/grocery-service/internal/observability"
	"github.com/spec-kit/grocery-service/internal/persistence"
	"github.com/spec-kit/grocery-service/internal/repository"
	"github.com/spec-kit/grocery-service/internal/service"
	"github.com/spec-kit/grocery-service/internal/worker"
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
	accountRepo := repository.NewAccountRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	requestRepo := repository.NewRequestRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	historyRepo := repository.NewOrderHistoryRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		AccountRepo:       accountRepo,
		PasswordResetRepo: resetRepo,
		Dispatcher:        dispatcher,
	})
	if err := authService.EnsureAdmin(ctx, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword); err != nil {
		logger.Fatal("failed to bootstrap admin account", zap.Error(err))
	}

	catalogService := service.NewCatalogService(service.CatalogDependencies{
		ProductRepo:  productRepo,
		CategoryRepo: categoryRepo,
		Cache:        redis.ClientHandle(),
		CacheTTL:     cfg.Catalog.CacheTTL(),
		Logger:       logger,
	})
	requestService := service.NewRequestService(service.RequestDependencies{
		RequestRepo:  requestRepo,
		AccountRepo:  accountRepo,
		CategoryRepo: categoryRepo,
		CatalogCache: catalogService,
		Dispatcher:   dispatcher,
	})
	orderService := service.NewOrderService(service.OrderDependencies{
		OrderRepo:   orderRepo,
		ProductRepo: productRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService, logger)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), accountRepo)
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Catalog:        handlers.NewCatalogHandler(catalogService),
		Orders:         handlers.NewOrdersHandler(orderService),
		Requests:       handlers.NewRequestsHandler(requestService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
