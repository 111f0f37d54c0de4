package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/errandsexpress/backend/internal/models"
)

const postColumns = `id, customer_id, runner_id, title, description, status, payment_verified, payment_verified_at, completed_at, archived, created_at, updated_at`

type PostRepo struct {
	pool *pgxpool.Pool
}

func NewPostRepo(pool *pgxpool.Pool) *PostRepo {
	return &PostRepo{pool: pool}
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.CustomerID, &p.RunnerID, &p.Title, &p.Description, &p.Status,
		&p.PaymentVerified, &p.PaymentVerifiedAt, &p.CompletedAt, &p.Archived, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostRepo) Create(ctx context.Context, p *models.Post) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO posts (id, customer_id, runner_id, title, description, status, payment_verified, archived)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, p.ID, p.CustomerID, p.RunnerID, p.Title, p.Description, p.Status, p.PaymentVerified, p.Archived).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *PostRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return scanPost(r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
}

func (r *PostRepo) Update(ctx context.Context, p *models.Post) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE posts SET runner_id = $2, title = $3, description = $4, status = $5,
			payment_verified = $6, payment_verified_at = $7, completed_at = $8, archived = $9, updated_at = now()
		WHERE id = $1
	`, p.ID, p.RunnerID, p.Title, p.Description, p.Status, p.PaymentVerified, p.PaymentVerifiedAt, p.CompletedAt, p.Archived)
	return err
}

// Accept claims a pending post for a runner. The status predicate makes the
// claim atomic; a post that is no longer pending updates zero rows and the
// scan reports pgx.ErrNoRows.
func (r *PostRepo) Accept(ctx context.Context, id, runnerID uuid.UUID) (*models.Post, error) {
	return scanPost(r.pool.QueryRow(ctx, `
		UPDATE posts SET runner_id = $2, status = 'accepted', updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+postColumns+`
	`, id, runnerID))
}

// GetByIDForUpdate locks the post row until the transaction ends. NOWAIT so a
// contended lock surfaces as a retryable error instead of blocking.
func (r *PostRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Post, error) {
	return scanPost(tx.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1 FOR UPDATE NOWAIT`, id))
}

// UpdateTx writes post mutations inside the given transaction.
func (r *PostRepo) UpdateTx(ctx context.Context, tx pgx.Tx, p *models.Post) error {
	_, err := tx.Exec(ctx, `
		UPDATE posts SET runner_id = $2, status = $3, payment_verified = $4, payment_verified_at = $5,
			completed_at = $6, archived = $7, updated_at = now()
		WHERE id = $1
	`, p.ID, p.RunnerID, p.Status, p.PaymentVerified, p.PaymentVerifiedAt, p.CompletedAt, p.Archived)
	return err
}

func (r *PostRepo) ListByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*models.Post, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+postColumns+` FROM posts WHERE customer_id = $1 ORDER BY created_at DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
