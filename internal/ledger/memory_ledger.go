package ledger

import (
	"context"
	"fmt"
	"sync"
)

type account struct {
	available int64
	escrowed  int64
}

// MemoryLedger is an in-memory ledger for demo/development mode and tests.
type MemoryLedger struct {
	mu       sync.Mutex
	accounts map[string]*account
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{accounts: make(map[string]*account)}
}

func (l *MemoryLedger) account(addr string) *account {
	a, ok := l.accounts[addr]
	if !ok {
		a = &account{}
		l.accounts[addr] = a
	}
	return a
}

func (l *MemoryLedger) Deposit(ctx context.Context, addr string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("deposit amount must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.account(addr).available += amount
	return nil
}

func (l *MemoryLedger) EscrowLock(ctx context.Context, buyerAddr string, amount int64, reference string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	buyer := l.account(buyerAddr)
	if buyer.available < amount {
		return ErrInsufficientFunds
	}
	buyer.available -= amount
	buyer.escrowed += amount
	return nil
}

func (l *MemoryLedger) ReleaseEscrow(ctx context.Context, buyerAddr, sellerAddr string, amount int64, reference string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	buyer := l.account(buyerAddr)
	if buyer.escrowed < amount {
		return ErrInsufficientEscrow
	}
	buyer.escrowed -= amount
	l.account(sellerAddr).available += amount
	return nil
}

func (l *MemoryLedger) RefundEscrow(ctx context.Context, buyerAddr string, amount int64, reference string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	buyer := l.account(buyerAddr)
	if buyer.escrowed < amount {
		return ErrInsufficientEscrow
	}
	buyer.escrowed -= amount
	buyer.available += amount
	return nil
}

// Balances returns the available/escrowed pair for an address.
func (l *MemoryLedger) Balances(addr string) (available, escrowed int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.account(addr)
	return a.available, a.escrowed
}
