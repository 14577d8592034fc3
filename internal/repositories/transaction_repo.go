package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/data-escrow/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a transaction id was never allocated.
var ErrNotFound = errors.New("transaction not found")

type TransactionFilter struct {
	Status *string
	Party  *string // matches buyer or seller
	Limit  int
	Offset int
}

// TransactionRepo is the postgres-backed transaction registry. Ids come from
// a dedicated sequence starting at 0 and are never reused.
type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

func (r *TransactionRepo) Allocate(ctx context.Context) (int64, error) {
	var id int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('transactions_id_seq')`).Scan(&id); err != nil {
		return 0, fmt.Errorf("allocate transaction id: %w", err)
	}
	return id, nil
}

func (r *TransactionRepo) Create(ctx context.Context, t *models.Transaction) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO transactions (id, buyer, seller, mediator, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, t.ID, t.Buyer, t.Seller, t.Mediator, t.Amount, t.Status,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

const transactionColumns = `
	id, buyer, seller, mediator, amount, status, dispute_deadline,
	seller_attest_hash, seller_attest_pass,
	buyer_attest_hash, buyer_attest_pass,
	winner, resolved_at, created_at, updated_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	var sellerHash, buyerHash *string
	var sellerPass, buyerPass *bool
	err := row.Scan(&t.ID, &t.Buyer, &t.Seller, &t.Mediator, &t.Amount, &t.Status, &t.DisputeDeadline,
		&sellerHash, &sellerPass,
		&buyerHash, &buyerPass,
		&t.Winner, &t.ResolvedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if sellerHash != nil && sellerPass != nil {
		t.SellerAttestation = &models.Attestation{Hash: *sellerHash, Pass: *sellerPass}
	}
	if buyerHash != nil && buyerPass != nil {
		t.BuyerAttestation = &models.Attestation{Hash: *buyerHash, Pass: *buyerPass}
	}
	return &t, nil
}

func (r *TransactionRepo) Get(ctx context.Context, id int64) (*models.Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

func (r *TransactionRepo) Update(ctx context.Context, t *models.Transaction) error {
	var sellerHash, buyerHash *string
	var sellerPass, buyerPass *bool
	if t.SellerAttestation != nil {
		sellerHash, sellerPass = &t.SellerAttestation.Hash, &t.SellerAttestation.Pass
	}
	if t.BuyerAttestation != nil {
		buyerHash, buyerPass = &t.BuyerAttestation.Hash, &t.BuyerAttestation.Pass
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE transactions SET
			status = $1, dispute_deadline = $2,
			seller_attest_hash = $3, seller_attest_pass = $4,
			buyer_attest_hash = $5, buyer_attest_pass = $6,
			winner = $7, resolved_at = $8, updated_at = now()
		WHERE id = $9
	`, t.Status, t.DisputeDeadline, sellerHash, sellerPass, buyerHash, buyerPass,
		t.Winner, t.ResolvedAt, t.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TransactionRepo) List(ctx context.Context, f TransactionFilter) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *f.Status)
		argIdx++
	}
	if f.Party != nil {
		where = append(where, fmt.Sprintf("(buyer = $%d OR seller = $%d)", argIdx, argIdx))
		args = append(args, *f.Party)
		argIdx++
	}

	if len(where) > 0 {
		query += " WHERE "
		for i, w := range where {
			if i > 0 {
				query += " AND "
			}
			query += w
		}
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *TransactionRepo) ListOverdueDisputes(ctx context.Context, now time.Time, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE status = $1 AND dispute_deadline <= $2
		ORDER BY dispute_deadline ASC LIMIT $3
	`, models.StatusDisputed, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *TransactionRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM transactions GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func collectTransactions(rows pgx.Rows) ([]models.Transaction, error) {
	var txs []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}
