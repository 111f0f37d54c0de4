package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/errandsexpress/backend/internal/models"
)

const balanceColumns = `id, runner_id, current_balance, total_earned, total_paid, last_payment_date,
	balance_started_at, status, reminder_sent, warning_sent, created_at, updated_at`

type BalanceRepo struct {
	pool *pgxpool.Pool
}

func NewBalanceRepo(pool *pgxpool.Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

func scanBalance(row pgx.Row) (*models.RunnerBalance, error) {
	var b models.RunnerBalance
	err := row.Scan(&b.ID, &b.RunnerID, &b.CurrentBalance, &b.TotalEarned, &b.TotalPaid,
		&b.LastPaymentDate, &b.BalanceStartedAt, &b.Status, &b.ReminderSent, &b.WarningSent,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BalanceRepo) GetByRunnerID(ctx context.Context, runnerID uuid.UUID) (*models.RunnerBalance, error) {
	return scanBalance(r.pool.QueryRow(ctx, `SELECT `+balanceColumns+` FROM runner_balances WHERE runner_id = $1`, runnerID))
}

// GetByRunnerIDForUpdate locks the runner's balance row. NOWAIT so concurrent
// settlement attempts on the same runner fail fast instead of queueing.
func (r *BalanceRepo) GetByRunnerIDForUpdate(ctx context.Context, tx pgx.Tx, runnerID uuid.UUID) (*models.RunnerBalance, error) {
	return scanBalance(tx.QueryRow(ctx, `SELECT `+balanceColumns+` FROM runner_balances WHERE runner_id = $1 FOR UPDATE NOWAIT`, runnerID))
}

// CreateTx inserts a balance aggregate (lazy creation on first commission).
func (r *BalanceRepo) CreateTx(ctx context.Context, tx pgx.Tx, b *models.RunnerBalance) error {
	return tx.QueryRow(ctx, `
		INSERT INTO runner_balances (id, runner_id, current_balance, total_earned, total_paid, balance_started_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, b.ID, b.RunnerID, b.CurrentBalance, b.TotalEarned, b.TotalPaid, b.BalanceStartedAt, b.Status).
		Scan(&b.CreatedAt, &b.UpdatedAt)
}

// UpdateTx persists balance mutations inside the given transaction.
func (r *BalanceRepo) UpdateTx(ctx context.Context, tx pgx.Tx, b *models.RunnerBalance) error {
	_, err := tx.Exec(ctx, `
		UPDATE runner_balances
		SET current_balance = $2, total_earned = $3, total_paid = $4, last_payment_date = $5,
			balance_started_at = $6, status = $7, reminder_sent = $8, warning_sent = $9, updated_at = now()
		WHERE id = $1
	`, b.ID, b.CurrentBalance, b.TotalEarned, b.TotalPaid, b.LastPaymentDate,
		b.BalanceStartedAt, b.Status, b.ReminderSent, b.WarningSent)
	return err
}

// ListAll returns every runner balance, for the periodic status sweep.
func (r *BalanceRepo) ListAll(ctx context.Context) ([]*models.RunnerBalance, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+balanceColumns+` FROM runner_balances ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.RunnerBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}
