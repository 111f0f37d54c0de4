package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/errandsexpress/backend/internal/models"
)

type EntryRepo struct {
	pool *pgxpool.Pool
}

func NewEntryRepo(pool *pgxpool.Pool) *EntryRepo {
	return &EntryRepo{pool: pool}
}

// CreateTx inserts an applied-transaction entry. The unique constraint on
// transaction_id rejects a second application of the same transaction.
func (r *EntryRepo) CreateTx(ctx context.Context, tx pgx.Tx, e *models.BalanceEntry) error {
	return tx.QueryRow(ctx, `
		INSERT INTO balance_entries (id, runner_id, transaction_id, direction, amount, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, e.ID, e.RunnerID, e.TransactionID, e.Direction, e.Amount, e.BalanceAfter).Scan(&e.CreatedAt)
}

func (r *EntryRepo) ListByRunnerID(ctx context.Context, runnerID uuid.UUID) ([]*models.BalanceEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, runner_id, transaction_id, direction, amount, balance_after, created_at
		FROM balance_entries WHERE runner_id = $1 ORDER BY created_at DESC
	`, runnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.BalanceEntry
	for rows.Next() {
		var e models.BalanceEntry
		if err := rows.Scan(&e.ID, &e.RunnerID, &e.TransactionID, &e.Direction, &e.Amount, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
