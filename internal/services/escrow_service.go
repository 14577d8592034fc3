// Package services holds the escrow state machine.
//
// Flow:
//  1. Buyer creates a transaction → deposit moved: available → escrowed
//  2. Seller attests (hash, pass/fail), then buyer attests
//  3. Attestations agree → funds released to seller (pass) or buyer (fail)
//  4. Attestations disagree → dispute window opens
//  5. Window elapses unresolved → mediator adjudicates and funds are released
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/data-escrow/backend/internal/config"
	"github.com/data-escrow/backend/internal/events"
	"github.com/data-escrow/backend/internal/ledger"
	"github.com/data-escrow/backend/internal/metrics"
	"github.com/data-escrow/backend/internal/models"
	"github.com/data-escrow/backend/internal/repositories"
	"go.uber.org/zap"
)

var (
	ErrUnauthorized           = errors.New("caller not authorized for this operation")
	ErrInsufficientAmount     = errors.New("deposit below minimum amount")
	ErrAlreadyResolved        = errors.New("transaction already resolved")
	ErrAwaitingMediatorBlock  = errors.New("transaction is awaiting the mediator")
	ErrTooEarly               = errors.New("dispute deadline has not passed")
	ErrIncompleteAttestations = errors.New("both parties must attest before escalation")
	ErrSellerMustGoFirst      = errors.New("seller must attest before the buyer")
	ErrNoMediatorMatch        = errors.New("mediator submission matches neither attestation")
)

// Registry is the transaction table: fresh id issuance plus record access.
// Implemented by repositories.TransactionRepo and
// repositories.MemoryTransactionRepo.
type Registry interface {
	Allocate(ctx context.Context) (int64, error)
	Create(ctx context.Context, t *models.Transaction) error
	Get(ctx context.Context, id int64) (*models.Transaction, error)
	Update(ctx context.Context, t *models.Transaction) error
	List(ctx context.Context, f repositories.TransactionFilter) ([]models.Transaction, error)
	ListOverdueDisputes(ctx context.Context, now time.Time, limit int) ([]models.Transaction, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// AuditLogger records transition history. Best-effort: a logging failure
// never fails the transition.
type AuditLogger interface {
	Log(ctx context.Context, entry models.AuditLog) error
	GetByEntity(ctx context.Context, entityType string, entityID int64, limit, offset int) ([]models.AuditLog, error)
}

// EscrowService implements the transaction lifecycle state machine.
type EscrowService struct {
	registry  Registry
	ledger    ledger.Ledger
	audit     AuditLogger
	publisher events.Publisher
	contract  config.Contract
	log       *zap.Logger
	now       func() time.Time
	locks     sync.Map // per-transaction locks: operations on one id are serialized
}

func NewEscrowService(
	registry Registry,
	l ledger.Ledger,
	audit AuditLogger,
	publisher events.Publisher,
	contract config.Contract,
	log *zap.Logger,
) *EscrowService {
	return &EscrowService{
		registry:  registry,
		ledger:    l,
		audit:     audit,
		publisher: publisher,
		contract:  contract,
		log:       log,
		now:       time.Now,
	}
}

// WithClock overrides the time source shared by all transactions.
func (s *EscrowService) WithClock(now func() time.Time) *EscrowService {
	s.now = now
	return s
}

// QualityCode returns the configured quality-code label. No authorization
// required.
func (s *EscrowService) QualityCode() string {
	return s.contract.QualityCode
}

func (s *EscrowService) txLock(id int64) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func escrowReference(id int64) string {
	return fmt.Sprintf("tx:%d", id)
}

// Create opens a new escrow transaction funded by the buyer's deposit.
// Only the configured buyer may create, and the deposit must meet the
// configured minimum.
func (s *EscrowService) Create(ctx context.Context, caller string, amount int64) (*models.Transaction, error) {
	if caller != s.contract.Buyer {
		return nil, ErrUnauthorized
	}
	if amount < s.contract.MinAmount {
		return nil, ErrInsufficientAmount
	}

	id, err := s.registry.Allocate(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.EscrowLock(ctx, s.contract.Buyer, amount, escrowReference(id)); err != nil {
		return nil, fmt.Errorf("failed to lock escrow funds: %w", err)
	}

	tx := &models.Transaction{
		ID:       id,
		Buyer:    s.contract.Buyer,
		Seller:   s.contract.Seller,
		Mediator: s.contract.Mediator,
		Amount:   amount,
		Status:   models.StatusOpen,
	}
	if err := s.registry.Create(ctx, tx); err != nil {
		// Best-effort refund if the registry write fails
		_ = s.ledger.RefundEscrow(ctx, s.contract.Buyer, amount, escrowReference(id))
		return nil, fmt.Errorf("failed to create transaction record: %w", err)
	}

	metrics.TransactionsCreated.Inc()
	_ = s.audit.Log(ctx, models.AuditLog{
		ActorAddr:  &caller,
		ActorType:  "party",
		Action:     "transaction_created",
		EntityType: "transaction",
		EntityID:   &tx.ID,
		Meta:       map[string]any{"amount": amount},
	})
	s.publish(ctx, events.EventTransactionCreated, tx.ID, map[string]any{"amount": amount})

	return tx, nil
}

// SubmitAttestation records a party's (hash, pass) claim, or, once a dispute
// deadline has elapsed, escalates the transaction to the mediator. No
// attestation value is written on an escalating call.
func (s *EscrowService) SubmitAttestation(ctx context.Context, caller string, id int64, hash string, pass bool) (*models.Transaction, error) {
	mu := s.txLock(id)
	mu.Lock()
	defer mu.Unlock()

	tx, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.IsTerminal() {
		return nil, ErrAlreadyResolved
	}
	if !tx.IsParty(caller) {
		return nil, ErrUnauthorized
	}
	if tx.Status == models.StatusAwaitingMediator {
		return nil, ErrAwaitingMediatorBlock
	}

	if tx.Status == models.StatusDisputed {
		// Deadline branch: the only legal move is escalation.
		if !tx.BothAttested() {
			return nil, ErrIncompleteAttestations
		}
		if s.now().Before(*tx.DisputeDeadline) {
			return nil, ErrTooEarly
		}
		if err := s.escalate(ctx, tx, &caller, "party"); err != nil {
			return nil, err
		}
		return tx, nil
	}

	att := &models.Attestation{Hash: hash, Pass: pass}
	if caller == tx.Buyer {
		if tx.SellerAttestation == nil {
			return nil, ErrSellerMustGoFirst
		}
		tx.BuyerAttestation = att
	} else {
		// First submission, or resubmission before the buyer's first.
		tx.SellerAttestation = att
	}
	metrics.AttestationsSubmitted.Inc()

	switch {
	case tx.BothAttested() && tx.SellerAttestation.Equal(tx.BuyerAttestation):
		if err := s.resolve(ctx, tx, tx.SellerAttestation.Pass, &caller, "party"); err != nil {
			return nil, err
		}
	case tx.BothAttested():
		// First mismatch starts the dispute clock; it is set exactly once.
		deadline := s.now().Add(s.contract.DisputeWindow)
		tx.DisputeDeadline = &deadline
		if err := s.transition(ctx, tx, models.StatusDisputed, &caller, "party"); err != nil {
			return nil, err
		}
		metrics.DisputesOpened.Inc()
		s.publish(ctx, events.EventConflictDetected, tx.ID, map[string]any{
			"dispute_deadline": deadline,
		})
	default:
		if err := s.registry.Update(ctx, tx); err != nil {
			return nil, err
		}
		_ = s.audit.Log(ctx, models.AuditLog{
			ActorAddr:  &caller,
			ActorType:  "party",
			Action:     "attestation_submitted",
			EntityType: "transaction",
			EntityID:   &tx.ID,
			Meta:       map[string]any{"hash": hash, "pass": pass},
		})
	}

	s.publish(ctx, events.EventAttestationsUpdated, tx.ID, nil)
	return tx, nil
}

// MediatorResolve adjudicates a transaction that reached the mediator phase.
// The mediator's (hash, pass) must match one of the stored attestations
// exactly; the matched verdict decides who is paid.
func (s *EscrowService) MediatorResolve(ctx context.Context, caller string, id int64, hash string, pass bool) (*models.Transaction, error) {
	mu := s.txLock(id)
	mu.Lock()
	defer mu.Unlock()

	tx, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.IsTerminal() {
		return nil, ErrAlreadyResolved
	}
	if caller != tx.Mediator {
		return nil, ErrUnauthorized
	}
	if tx.Status != models.StatusAwaitingMediator {
		return nil, ErrTooEarly
	}

	submitted := &models.Attestation{Hash: hash, Pass: pass}
	if !submitted.Equal(tx.SellerAttestation) && !submitted.Equal(tx.BuyerAttestation) {
		// No state change, no events; the mediator may retry with a
		// corrected value.
		return nil, ErrNoMediatorMatch
	}

	if err := s.resolve(ctx, tx, pass, &caller, "mediator"); err != nil {
		return nil, err
	}
	return tx, nil
}

// Escalate moves an overdue dispute into the mediator phase. The worker uses
// it to perform the same deadline-triggered transition a party call would.
func (s *EscrowService) Escalate(ctx context.Context, id int64) error {
	mu := s.txLock(id)
	mu.Lock()
	defer mu.Unlock()

	tx, err := s.registry.Get(ctx, id)
	if err != nil {
		return err
	}
	if tx.IsTerminal() {
		return ErrAlreadyResolved
	}
	if tx.Status != models.StatusDisputed {
		return ErrAwaitingMediatorBlock
	}
	if !tx.BothAttested() {
		return ErrIncompleteAttestations
	}
	if s.now().Before(*tx.DisputeDeadline) {
		return ErrTooEarly
	}
	return s.escalate(ctx, tx, nil, "system")
}

func (s *EscrowService) escalate(ctx context.Context, tx *models.Transaction, actor *string, actorType string) error {
	if err := s.transition(ctx, tx, models.StatusAwaitingMediator, actor, actorType); err != nil {
		return err
	}
	metrics.Escalations.Inc()
	s.publish(ctx, events.EventMediatorNeeded, tx.ID, nil)
	return nil
}

// resolve settles the escrowed amount and commits the terminal transition.
// The transfer runs first: if it fails the whole operation aborts and the
// stored record is left untouched.
func (s *EscrowService) resolve(ctx context.Context, tx *models.Transaction, pass bool, actor *string, actorType string) error {
	winner := tx.Buyer
	if pass {
		winner = tx.Seller
	}

	ref := escrowReference(tx.ID)
	var transferErr error
	if pass {
		transferErr = s.ledger.ReleaseEscrow(ctx, tx.Buyer, tx.Seller, tx.Amount, ref)
	} else {
		transferErr = s.ledger.RefundEscrow(ctx, tx.Buyer, tx.Amount, ref)
	}
	if transferErr != nil {
		metrics.SettlementFailures.Inc()
		return fmt.Errorf("failed to settle escrow funds: %w", transferErr)
	}

	now := s.now()
	tx.Winner = &winner
	tx.ResolvedAt = &now
	if err := s.transition(ctx, tx, models.StatusResolved, actor, actorType); err != nil {
		// Funds already moved; the record must reflect it. transition rolled
		// the status back on failure, so re-assert it before the retry.
		// Retry once, then log for manual resolution — there is no inverse
		// transfer.
		tx.Status = models.StatusResolved
		if retryErr := s.registry.Update(ctx, tx); retryErr != nil {
			s.log.Error("CRITICAL: escrow settled but transaction update failed",
				zap.Int64("transaction_id", tx.ID),
				zap.String("winner", winner),
				zap.Error(retryErr),
			)
			return fmt.Errorf("failed to update transaction after settlement (requires manual resolution): %w", err)
		}
	}

	metrics.TransactionsResolved.WithLabelValues(actorType).Inc()
	s.publish(ctx, events.EventTransactionResolved, tx.ID, map[string]any{
		"winner": winner,
		"pass":   pass,
	})
	return nil
}

// transition validates and persists a status change with audit logging.
func (s *EscrowService) transition(ctx context.Context, tx *models.Transaction, newStatus string, actor *string, actorType string) error {
	if !models.IsValidTransition(tx.Status, newStatus) {
		return fmt.Errorf("invalid transition from %s to %s", tx.Status, newStatus)
	}

	oldStatus := tx.Status
	tx.Status = newStatus
	if err := s.registry.Update(ctx, tx); err != nil {
		tx.Status = oldStatus
		return err
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorAddr:  actor,
		ActorType:  actorType,
		Action:     fmt.Sprintf("transaction_%s_to_%s", oldStatus, newStatus),
		EntityType: "transaction",
		EntityID:   &tx.ID,
		Meta:       map[string]any{"old_status": oldStatus, "new_status": newStatus},
	})
	return nil
}

// publish emits a lifecycle notification. Fire-and-forget: delivery failures
// are logged, never surfaced.
func (s *EscrowService) publish(ctx context.Context, kind string, id int64, extra map[string]any) {
	payload := map[string]any{"transaction_id": id}
	for k, v := range extra {
		payload[k] = v
	}
	if err := s.publisher.Publish(ctx, events.StreamEscrow, events.Event{Type: kind, Payload: payload}); err != nil {
		s.log.Warn("failed to publish event", zap.String("type", kind), zap.Int64("transaction_id", id), zap.Error(err))
	}
}

// Get returns a transaction by id.
func (s *EscrowService) Get(ctx context.Context, id int64) (*models.Transaction, error) {
	return s.registry.Get(ctx, id)
}

// List returns transactions matching the filter.
func (s *EscrowService) List(ctx context.Context, f repositories.TransactionFilter) ([]models.Transaction, error) {
	return s.registry.List(ctx, f)
}

// GetEvents returns the audit trail for a transaction.
func (s *EscrowService) GetEvents(ctx context.Context, id int64) ([]models.AuditLog, error) {
	return s.audit.GetByEntity(ctx, "transaction", id, 100, 0)
}

// ListOverdueDisputes returns disputed transactions whose deadline has
// elapsed, for the worker's escalation sweep.
func (s *EscrowService) ListOverdueDisputes(ctx context.Context, limit int) ([]models.Transaction, error) {
	return s.registry.ListOverdueDisputes(ctx, s.now(), limit)
}

// CountByStatus exposes registry counts for the worker's gauge refresh.
func (s *EscrowService) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return s.registry.CountByStatus(ctx)
}
