package share

import (
	"context"

	"songmail/internal/domain"
)

type Catalog interface {
	FindOrCreateSong(ctx context.Context, title, artistName, albumName string) (*domain.Song, error)
}

type Friends interface {
	GetFriend(ctx context.Context, ownerID, friendID int64) (*domain.Friend, error)
	FindOrCreateFriend(ctx context.Context, ownerID int64, name, email string) (*domain.Friend, error)
}
