package friend

import (
	"context"

	"songmail/internal/domain"
)

type Repository interface {
	FindOrCreate(ctx context.Context, userID int64, name, email string) (*domain.Friend, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Friend, error)
	GetByID(ctx context.Context, userID, id int64) (*domain.Friend, error)
}
