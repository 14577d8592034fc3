// Package ledger abstracts the host environment's value-transfer primitives.
//
// The escrow engine never holds balances itself: it locks the buyer's funds
// when a transaction is created and later moves the full amount to exactly
// one party. How balances are custodied and made durable is the host's
// concern; implementations here provide a postgres-backed ledger and an
// in-memory one for demo/development mode.
package ledger

import (
	"context"
	"errors"
)

var (
	ErrInsufficientFunds  = errors.New("insufficient available funds")
	ErrInsufficientEscrow = errors.New("insufficient escrowed funds")
)

// Entry kinds recorded in the transfer journal.
const (
	KindLock    = "escrow_lock"
	KindRelease = "escrow_release"
	KindRefund  = "escrow_refund"
	KindDeposit = "deposit"
)

// Depositor credits an account's available balance. It stands in for the
// host environment's funding rail: the deposit endpoint and demo-mode
// seeding go through it.
type Depositor interface {
	Deposit(ctx context.Context, addr string, amount int64) error
}

// Ledger moves value between accounts. Every operation is atomic: it either
// completes fully or leaves balances unchanged.
type Ledger interface {
	// EscrowLock moves amount from the buyer's available balance into escrow.
	EscrowLock(ctx context.Context, buyerAddr string, amount int64, reference string) error
	// ReleaseEscrow moves the escrowed amount to the seller's available balance.
	ReleaseEscrow(ctx context.Context, buyerAddr, sellerAddr string, amount int64, reference string) error
	// RefundEscrow returns the escrowed amount to the buyer's available balance.
	RefundEscrow(ctx context.Context, buyerAddr string, amount int64, reference string) error
}
