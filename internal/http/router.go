package http

import (
	"time"

	"github.com/data-escrow/backend/internal/config"
	"github.com/data-escrow/backend/internal/http/handlers"
	"github.com/data-escrow/backend/internal/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	escrowHandler *handlers.EscrowHandler,
	ledgerHandler *handlers.LedgerHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Prometheus
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/token", authHandler.IssueToken)

	// Rate-limited public endpoints
	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Quality code (public, no authorization required)
	api.Get("/quality-code", escrowHandler.GetQualityCode)

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Ledger
	protected.Post("/ledger/deposits", ledgerHandler.Deposit)

	// Transactions
	protected.Post("/transactions", escrowHandler.CreateTransaction)
	protected.Get("/transactions", escrowHandler.ListTransactions)
	protected.Get("/transactions/:id", escrowHandler.GetTransaction)
	protected.Post("/transactions/:id/attestations", escrowHandler.SubmitAttestation)
	protected.Post("/transactions/:id/mediate", escrowHandler.MediatorResolve)
	protected.Get("/transactions/:id/events", escrowHandler.GetTransactionEvents)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
