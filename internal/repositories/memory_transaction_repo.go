package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/data-escrow/backend/internal/models"
)

// MemoryTransactionRepo is an in-memory transaction registry for
// demo/development mode and hermetic tests. Ids are issued from a counter
// starting at 0, matching the postgres sequence.
type MemoryTransactionRepo struct {
	mu     sync.RWMutex
	nextID int64
	txs    map[int64]*models.Transaction
}

func NewMemoryTransactionRepo() *MemoryTransactionRepo {
	return &MemoryTransactionRepo{txs: make(map[int64]*models.Transaction)}
}

func (m *MemoryTransactionRepo) Allocate(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	return id, nil
}

func (m *MemoryTransactionRepo) Create(ctx context.Context, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	m.txs[t.ID] = copyTransaction(t)
	return nil
}

func (m *MemoryTransactionRepo) Get(ctx context.Context, id int64) (*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.txs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTransaction(t), nil
}

func (m *MemoryTransactionRepo) Update(ctx context.Context, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.txs[t.ID]; !ok {
		return ErrNotFound
	}
	t.UpdatedAt = time.Now()
	m.txs[t.ID] = copyTransaction(t)
	return nil
}

func (m *MemoryTransactionRepo) List(ctx context.Context, f TransactionFilter) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var txs []models.Transaction
	for _, t := range m.txs {
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.Party != nil && !t.IsParty(*f.Party) {
			continue
		}
		txs = append(txs, *copyTransaction(t))
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].ID > txs[j].ID })

	if f.Offset >= len(txs) {
		return nil, nil
	}
	txs = txs[f.Offset:]
	if len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

func (m *MemoryTransactionRepo) ListOverdueDisputes(ctx context.Context, now time.Time, limit int) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	var txs []models.Transaction
	for _, t := range m.txs {
		if t.Status != models.StatusDisputed || t.DisputeDeadline == nil {
			continue
		}
		if t.DisputeDeadline.After(now) {
			continue
		}
		txs = append(txs, *copyTransaction(t))
		if len(txs) >= limit {
			break
		}
	}
	return txs, nil
}

func (m *MemoryTransactionRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int64)
	for _, t := range m.txs {
		counts[t.Status]++
	}
	return counts, nil
}

// copyTransaction returns a deep copy so callers never share pointers with
// the stored record.
func copyTransaction(t *models.Transaction) *models.Transaction {
	cp := *t
	if t.DisputeDeadline != nil {
		d := *t.DisputeDeadline
		cp.DisputeDeadline = &d
	}
	if t.SellerAttestation != nil {
		a := *t.SellerAttestation
		cp.SellerAttestation = &a
	}
	if t.BuyerAttestation != nil {
		a := *t.BuyerAttestation
		cp.BuyerAttestation = &a
	}
	if t.Winner != nil {
		w := *t.Winner
		cp.Winner = &w
	}
	if t.ResolvedAt != nil {
		r := *t.ResolvedAt
		cp.ResolvedAt = &r
	}
	return &cp
}
