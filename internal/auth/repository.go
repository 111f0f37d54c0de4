package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/errandsexpress/backend/internal/models"
)

// UserRepo is the user persistence interface the auth service needs.
type UserRepo interface {
	Create(ctx context.Context, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// getByEmail returns (nil, nil) for an unknown email so the service can
// answer with a uniform invalid-credentials error.
func getByEmail(ctx context.Context, repo UserRepo, email string) (*models.User, error) {
	u, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}
