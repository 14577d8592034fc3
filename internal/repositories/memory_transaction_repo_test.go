package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/data-escrow/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTx(t *testing.T, repo *MemoryTransactionRepo, status string) *models.Transaction {
	t.Helper()
	ctx := context.Background()
	id, err := repo.Allocate(ctx)
	require.NoError(t, err)
	tx := &models.Transaction{
		ID:       id,
		Buyer:    "0xbuyer",
		Seller:   "0xseller",
		Mediator: "0xmediator",
		Amount:   100,
		Status:   status,
	}
	require.NoError(t, repo.Create(ctx, tx))
	return tx
}

func TestAllocateIsMonotonicFromZero(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTransactionRepo()

	for want := int64(0); want < 5; want++ {
		id, err := repo.Allocate(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
}

func TestGetReturnsNotFound(t *testing.T) {
	repo := NewMemoryTransactionRepo()
	_, err := repo.Get(context.Background(), 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTransactionRepo()
	tx := seedTx(t, repo, models.StatusOpen)

	tx.Status = models.StatusDisputed
	deadline := time.Now().Add(time.Hour)
	tx.DisputeDeadline = &deadline
	tx.SellerAttestation = &models.Attestation{Hash: "H", Pass: true}
	require.NoError(t, repo.Update(ctx, tx))

	stored, err := repo.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDisputed, stored.Status)
	require.NotNil(t, stored.SellerAttestation)
	assert.Equal(t, "H", stored.SellerAttestation.Hash)

	// Stored record must not alias the caller's pointers.
	tx.SellerAttestation.Hash = "tampered"
	stored, err = repo.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "H", stored.SellerAttestation.Hash)

	missing := &models.Transaction{ID: 999}
	assert.ErrorIs(t, repo.Update(ctx, missing), ErrNotFound)
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTransactionRepo()
	seedTx(t, repo, models.StatusOpen)
	seedTx(t, repo, models.StatusDisputed)
	seedTx(t, repo, models.StatusResolved)

	all, err := repo.List(ctx, TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first.
	assert.Equal(t, int64(2), all[0].ID)

	disputed := models.StatusDisputed
	filtered, err := repo.List(ctx, TransactionFilter{Status: &disputed})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, int64(1), filtered[0].ID)

	stranger := "0xstranger"
	none, err := repo.List(ctx, TransactionFilter{Party: &stranger})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListOverdueDisputes(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTransactionRepo()
	now := time.Now()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	overdueTx := seedTx(t, repo, models.StatusDisputed)
	overdueTx.DisputeDeadline = &past
	require.NoError(t, repo.Update(ctx, overdueTx))

	pendingTx := seedTx(t, repo, models.StatusDisputed)
	pendingTx.DisputeDeadline = &future
	require.NoError(t, repo.Update(ctx, pendingTx))

	seedTx(t, repo, models.StatusOpen)

	overdue, err := repo.ListOverdueDisputes(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, overdueTx.ID, overdue[0].ID)
}

func TestCountByStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTransactionRepo()
	seedTx(t, repo, models.StatusOpen)
	seedTx(t, repo, models.StatusOpen)
	seedTx(t, repo, models.StatusResolved)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[models.StatusOpen])
	assert.Equal(t, int64(1), counts[models.StatusResolved])
}
