package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscrowLockAndRelease(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	require.NoError(t, l.Deposit(ctx, "buyer", 500))

	require.NoError(t, l.EscrowLock(ctx, "buyer", 200, "tx:0"))
	available, escrowed := l.Balances("buyer")
	assert.Equal(t, int64(300), available)
	assert.Equal(t, int64(200), escrowed)

	require.NoError(t, l.ReleaseEscrow(ctx, "buyer", "seller", 200, "tx:0"))
	available, escrowed = l.Balances("buyer")
	assert.Equal(t, int64(300), available)
	assert.Equal(t, int64(0), escrowed)
	sellerAvailable, _ := l.Balances("seller")
	assert.Equal(t, int64(200), sellerAvailable)
}

func TestEscrowRefund(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	require.NoError(t, l.Deposit(ctx, "buyer", 500))
	require.NoError(t, l.EscrowLock(ctx, "buyer", 200, "tx:0"))

	require.NoError(t, l.RefundEscrow(ctx, "buyer", 200, "tx:0"))
	available, escrowed := l.Balances("buyer")
	assert.Equal(t, int64(500), available)
	assert.Equal(t, int64(0), escrowed)
}

func TestInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	require.NoError(t, l.Deposit(ctx, "buyer", 100))

	assert.ErrorIs(t, l.EscrowLock(ctx, "buyer", 200, "tx:0"), ErrInsufficientFunds)
	assert.ErrorIs(t, l.EscrowLock(ctx, "stranger", 1, "tx:0"), ErrInsufficientFunds)

	// Nothing escrowed yet.
	assert.ErrorIs(t, l.ReleaseEscrow(ctx, "buyer", "seller", 100, "tx:0"), ErrInsufficientEscrow)
	assert.ErrorIs(t, l.RefundEscrow(ctx, "buyer", 100, "tx:0"), ErrInsufficientEscrow)
}

func TestDepositRejectsNonPositive(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	assert.Error(t, l.Deposit(ctx, "buyer", 0))
	assert.Error(t, l.Deposit(ctx, "buyer", -5))
}
