package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/errandsexpress/backend/internal/models"
)

const txnColumns = `id, runner_id, customer_id, post_id, message_id, original_amount, service_fee,
	platform_commission, total_amount, type, status, payment_method, proof_image,
	payment_verified, payment_verified_at, approved_at, approved_by, notes, rejection_reason,
	created_at, updated_at`

type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

func scanTransaction(row pgx.Row) (*models.BalanceTransaction, error) {
	var t models.BalanceTransaction
	err := row.Scan(&t.ID, &t.RunnerID, &t.CustomerID, &t.PostID, &t.MessageID,
		&t.OriginalAmount, &t.ServiceFee, &t.PlatformCommission, &t.TotalAmount,
		&t.Type, &t.Status, &t.PaymentMethod, &t.ProofImage,
		&t.PaymentVerified, &t.PaymentVerifiedAt, &t.ApprovedAt, &t.ApprovedBy,
		&t.Notes, &t.RejectionReason, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTx inserts a transaction inside the given database transaction.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx pgx.Tx, t *models.BalanceTransaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO balance_transactions
			(id, runner_id, customer_id, post_id, message_id, original_amount, service_fee,
			 platform_commission, total_amount, type, status, payment_method, proof_image, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at
	`, t.ID, t.RunnerID, t.CustomerID, t.PostID, t.MessageID, t.OriginalAmount, t.ServiceFee,
		t.PlatformCommission, t.TotalAmount, t.Type, t.Status, t.PaymentMethod, t.ProofImage, t.Notes).
		Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.BalanceTransaction, error) {
	return scanTransaction(r.pool.QueryRow(ctx, `SELECT `+txnColumns+` FROM balance_transactions WHERE id = $1`, id))
}

// GetByIDForUpdate locks the transaction row. NOWAIT: contention is reported,
// not waited out.
func (r *TransactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.BalanceTransaction, error) {
	return scanTransaction(tx.QueryRow(ctx, `SELECT `+txnColumns+` FROM balance_transactions WHERE id = $1 FOR UPDATE NOWAIT`, id))
}

// UpdateTx writes status-transition mutations. Amount fields are immutable
// after creation and deliberately absent here.
func (r *TransactionRepo) UpdateTx(ctx context.Context, tx pgx.Tx, t *models.BalanceTransaction) error {
	_, err := tx.Exec(ctx, `
		UPDATE balance_transactions
		SET status = $2, payment_verified = $3, payment_verified_at = $4,
			approved_at = $5, approved_by = $6, notes = $7, rejection_reason = $8, updated_at = now()
		WHERE id = $1
	`, t.ID, t.Status, t.PaymentVerified, t.PaymentVerifiedAt, t.ApprovedAt, t.ApprovedBy, t.Notes, t.RejectionReason)
	return err
}

// GetUnresolvedErrandPaymentForUpdate locks the post's open errand_payment.
// The partial unique index guarantees at most one such row.
func (r *TransactionRepo) GetUnresolvedErrandPaymentForUpdate(ctx context.Context, tx pgx.Tx, postID uuid.UUID) (*models.BalanceTransaction, error) {
	return scanTransaction(tx.QueryRow(ctx, `
		SELECT `+txnColumns+` FROM balance_transactions
		WHERE post_id = $1 AND type = 'errand_payment' AND status IN ('pending', 'customer_verified')
		FOR UPDATE NOWAIT
	`, postID))
}

// HasErrandPayment reports whether any errand_payment exists for the post,
// resolved or not.
func (r *TransactionRepo) HasErrandPayment(ctx context.Context, tx pgx.Tx, postID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM balance_transactions WHERE post_id = $1 AND type = 'errand_payment'
		)
	`, postID).Scan(&exists)
	return exists, err
}

// HasUnresolvedErrandPayment reports whether a pending or customer_verified
// errand_payment already exists for the post.
func (r *TransactionRepo) HasUnresolvedErrandPayment(ctx context.Context, tx pgx.Tx, postID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM balance_transactions
			WHERE post_id = $1 AND type = 'errand_payment' AND status IN ('pending', 'customer_verified')
		)
	`, postID).Scan(&exists)
	return exists, err
}

// HasUnresolvedBalancePayment reports whether the runner has an outstanding
// balance_payment (one withdrawal at a time).
func (r *TransactionRepo) HasUnresolvedBalancePayment(ctx context.Context, tx pgx.Tx, runnerID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM balance_transactions
			WHERE runner_id = $1 AND type = 'balance_payment' AND status = 'pending'
		)
	`, runnerID).Scan(&exists)
	return exists, err
}

func (r *TransactionRepo) listQuery(ctx context.Context, query string, args ...any) ([]*models.BalanceTransaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.BalanceTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *TransactionRepo) ListByPostID(ctx context.Context, postID uuid.UUID) ([]*models.BalanceTransaction, error) {
	return r.listQuery(ctx, `SELECT `+txnColumns+` FROM balance_transactions WHERE post_id = $1 ORDER BY created_at DESC`, postID)
}

func (r *TransactionRepo) ListByRunnerID(ctx context.Context, runnerID uuid.UUID) ([]*models.BalanceTransaction, error) {
	return r.listQuery(ctx, `SELECT `+txnColumns+` FROM balance_transactions WHERE runner_id = $1 ORDER BY created_at DESC`, runnerID)
}

// ListPendingByType returns the admin review queue for a transaction type:
// every unresolved transaction, oldest first.
func (r *TransactionRepo) ListPendingByType(ctx context.Context, txType models.TransactionType) ([]*models.BalanceTransaction, error) {
	return r.listQuery(ctx, `
		SELECT `+txnColumns+` FROM balance_transactions
		WHERE type = $1 AND status IN ('pending', 'customer_verified')
		ORDER BY created_at ASC
	`, txType)
}
