package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/data-escrow/backend/internal/config"
	"github.com/data-escrow/backend/internal/db"
	"github.com/data-escrow/backend/internal/events"
	apphttp "github.com/data-escrow/backend/internal/http"
	"github.com/data-escrow/backend/internal/http/dto"
	"github.com/data-escrow/backend/internal/http/handlers"
	"github.com/data-escrow/backend/internal/ledger"
	"github.com/data-escrow/backend/internal/repositories"
	"github.com/data-escrow/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		registry   services.Registry
		audit      services.AuditLogger
		escrowLdgr ledger.Ledger
		depositor  ledger.Depositor
		publisher  events.Publisher
		subscriber events.Subscriber
		rdb        *redis.Client
	)

	switch cfg.StorageDriver {
	case "memory":
		log.Warn("running with in-memory storage, state is not durable")
		registry = repositories.NewMemoryTransactionRepo()
		audit = repositories.NewMemoryAuditRepo()
		memLedger := ledger.NewMemoryLedger()
		escrowLdgr, depositor = memLedger, memLedger
		bus := events.NewMemoryBus()
		publisher, subscriber = bus, bus

		// Memory mode starts from nothing; seed the buyer so transactions
		// can be created out of the box.
		if cfg.DemoDeposit > 0 && cfg.BuyerAddress != "" {
			if err := memLedger.Deposit(ctx, cfg.BuyerAddress, cfg.DemoDeposit); err != nil {
				log.Warn("failed to seed buyer balance", zap.Error(err))
			} else {
				log.Info("seeded buyer balance",
					zap.String("address", cfg.BuyerAddress),
					zap.Int64("amount", cfg.DemoDeposit),
				)
			}
		}
	default:
		pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
		if err != nil {
			log.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()

		if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}

		rdb, err = db.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()

		registry = repositories.NewTransactionRepo(pool)
		audit = repositories.NewAuditRepo(pool)
		pgLedger := ledger.NewPostgresLedger(pool)
		escrowLdgr, depositor = pgLedger, pgLedger
		publisher = events.NewRedisPublisher(rdb, log)
		subscriber = events.NewRedisSubscriber(rdb, log)
	}

	// Services
	escrowService := services.NewEscrowService(registry, escrowLdgr, audit, publisher, cfg.Contract(), log)

	// Handlers
	authHandler := handlers.NewAuthHandler(cfg, log)
	escrowHandler := handlers.NewEscrowHandler(escrowService, log)
	ledgerHandler := handlers.NewLedgerHandler(depositor, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(dto.ErrorResponse{Error: err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, escrowHandler, ledgerHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
