package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger keeps per-address available/escrowed balances plus an
// append-only journal. Each operation runs in a single transaction with the
// touched account rows locked, so a transfer either commits fully or not at
// all.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

func (l *PostgresLedger) Deposit(ctx context.Context, addr string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("deposit amount must be positive")
	}
	return l.inTx(ctx, func(tx pgx.Tx) error {
		if err := ensureAccount(ctx, tx, addr); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE accounts SET available = available + $1 WHERE address = $2`, amount, addr); err != nil {
			return err
		}
		return journal(ctx, tx, KindDeposit, "", addr, amount, "")
	})
}

func (l *PostgresLedger) EscrowLock(ctx context.Context, buyerAddr string, amount int64, reference string) error {
	return l.inTx(ctx, func(tx pgx.Tx) error {
		available, _, err := lockAccount(ctx, tx, buyerAddr)
		if err != nil {
			return err
		}
		if available < amount {
			return ErrInsufficientFunds
		}
		if _, err := tx.Exec(ctx, `
			UPDATE accounts SET available = available - $1, escrowed = escrowed + $1
			WHERE address = $2
		`, amount, buyerAddr); err != nil {
			return err
		}
		return journal(ctx, tx, KindLock, buyerAddr, buyerAddr, amount, reference)
	})
}

func (l *PostgresLedger) ReleaseEscrow(ctx context.Context, buyerAddr, sellerAddr string, amount int64, reference string) error {
	return l.inTx(ctx, func(tx pgx.Tx) error {
		_, escrowed, err := lockAccount(ctx, tx, buyerAddr)
		if err != nil {
			return err
		}
		if escrowed < amount {
			return ErrInsufficientEscrow
		}
		if err := ensureAccount(ctx, tx, sellerAddr); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE accounts SET escrowed = escrowed - $1 WHERE address = $2`, amount, buyerAddr); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE accounts SET available = available + $1 WHERE address = $2`, amount, sellerAddr); err != nil {
			return err
		}
		return journal(ctx, tx, KindRelease, buyerAddr, sellerAddr, amount, reference)
	})
}

func (l *PostgresLedger) RefundEscrow(ctx context.Context, buyerAddr string, amount int64, reference string) error {
	return l.inTx(ctx, func(tx pgx.Tx) error {
		_, escrowed, err := lockAccount(ctx, tx, buyerAddr)
		if err != nil {
			return err
		}
		if escrowed < amount {
			return ErrInsufficientEscrow
		}
		if _, err := tx.Exec(ctx, `
			UPDATE accounts SET escrowed = escrowed - $1, available = available + $1
			WHERE address = $2
		`, amount, buyerAddr); err != nil {
			return err
		}
		return journal(ctx, tx, KindRefund, buyerAddr, buyerAddr, amount, reference)
	})
}

func (l *PostgresLedger) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func ensureAccount(ctx context.Context, tx pgx.Tx, addr string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO accounts (address, available, escrowed) VALUES ($1, 0, 0)
		ON CONFLICT (address) DO NOTHING
	`, addr)
	return err
}

func lockAccount(ctx context.Context, tx pgx.Tx, addr string) (available, escrowed int64, err error) {
	if err = ensureAccount(ctx, tx, addr); err != nil {
		return 0, 0, err
	}
	err = tx.QueryRow(ctx,
		`SELECT available, escrowed FROM accounts WHERE address = $1 FOR UPDATE`, addr,
	).Scan(&available, &escrowed)
	return available, escrowed, err
}

func journal(ctx context.Context, tx pgx.Tx, kind, fromAddr, toAddr string, amount int64, reference string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ledger_entries (kind, from_addr, to_addr, amount, reference)
		VALUES ($1, $2, $3, $4, $5)
	`, kind, fromAddr, toAddr, amount, reference)
	return err
}
