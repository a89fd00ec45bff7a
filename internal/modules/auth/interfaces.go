package auth

import (
	"context"
	"time"

	"songmail/internal/domain"
)

// UserRepositoryInterface is the slice of the user repository auth needs.
type UserRepositoryInterface interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

type jwtService interface {
	GenerateTokenWithTTL(userID int64, username string, ttl time.Duration) (string, error)
	TTL() time.Duration
}
