package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/data-escrow/backend/internal/config"
	"github.com/data-escrow/backend/internal/db"
	"github.com/data-escrow/backend/internal/events"
	"github.com/data-escrow/backend/internal/ledger"
	"github.com/data-escrow/backend/internal/metrics"
	"github.com/data-escrow/backend/internal/models"
	"github.com/data-escrow/backend/internal/repositories"
	"github.com/data-escrow/backend/internal/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	registry := repositories.NewTransactionRepo(pool)
	audit := repositories.NewAuditRepo(pool)
	escrowLdgr := ledger.NewPostgresLedger(pool)
	publisher := events.NewRedisPublisher(rdb, log)

	escrowService := services.NewEscrowService(registry, escrowLdgr, audit, publisher, cfg.Contract(), log)

	log.Info("worker started",
		zap.Duration("escalation_interval", cfg.EscalationInterval),
		zap.Duration("gauge_interval", cfg.GaugeInterval),
	)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := ":" + cfg.WorkerPort
		log.Info("worker metrics listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("metrics server error", zap.Error(err))
		}
	}()

	escalationTicker := time.NewTicker(cfg.EscalationInterval)
	gaugeTicker := time.NewTicker(cfg.GaugeInterval)
	defer escalationTicker.Stop()
	defer gaugeTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-escalationTicker.C:
			runEscalations(ctx, escrowService, log)
		case <-gaugeTicker.C:
			refreshGauges(ctx, escrowService, log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

// runEscalations moves overdue disputes into the mediator phase, the same
// transition either party could trigger once the deadline passed.
func runEscalations(ctx context.Context, escrowService *services.EscrowService, log *zap.Logger) {
	txs, err := escrowService.ListOverdueDisputes(ctx, 100)
	if err != nil {
		log.Error("failed to list overdue disputes", zap.Error(err))
		return
	}

	for _, tx := range txs {
		log.Info("escalating overdue dispute", zap.Int64("transaction_id", tx.ID))
		if err := escrowService.Escalate(ctx, tx.ID); err != nil {
			log.Error("failed to escalate dispute", zap.Int64("transaction_id", tx.ID), zap.Error(err))
		}
	}
}

func refreshGauges(ctx context.Context, escrowService *services.EscrowService, log *zap.Logger) {
	counts, err := escrowService.CountByStatus(ctx)
	if err != nil {
		log.Error("failed to count transactions", zap.Error(err))
		return
	}

	for _, status := range []string{models.StatusOpen, models.StatusDisputed, models.StatusAwaitingMediator, models.StatusResolved} {
		metrics.TransactionsCurrent.WithLabelValues(status).Set(float64(counts[status]))
	}
}
