package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/errandsexpress/backend/internal/models"
)

// ErrDuplicateEmail is returned when registering with an email that already exists.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrInvalidCredentials is returned on a failed login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidRole is returned when registering with a role outside the public set.
var ErrInvalidRole = errors.New("invalid role")

type Service interface {
	Register(ctx context.Context, email, password, displayName string, role models.Role) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (models.Actor, error)
}

type service struct {
	repo   UserRepo
	secret []byte
	ttl    time.Duration
}

func NewService(repo UserRepo, secret string) *service {
	return &service{repo: repo, secret: []byte(secret), ttl: 24 * time.Hour}
}

var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Role models.Role `json:"role"`
}

func (s *service) Register(ctx context.Context, email, password, displayName string, role models.Role) (*models.User, error) {
	// Admins are provisioned out of band, never via public registration.
	if role != models.RoleCustomer && role != models.RoleRunner {
		return nil, ErrInvalidRole
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	u, err := getByEmail(ctx, s.repo, email)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(u.ID, u.Role)
}

func (s *service) issueToken(userID uuid.UUID, role models.Role) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(ctx context.Context, token string) (models.Actor, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return models.Actor{}, err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid || !c.Role.Valid() {
		return models.Actor{}, errors.New("invalid token")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return models.Actor{}, err
	}
	return models.Actor{ID: id, Role: c.Role}, nil
}
