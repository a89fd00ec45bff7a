package catalog

import (
	"context"

	"songmail/internal/domain"
)

// Store is the subset of repository.CatalogRepository the service drives.
type Store interface {
	FindOrCreateArtist(ctx context.Context, name string) (*domain.Artist, error)
	FindOrCreateAlbum(ctx context.Context, name string, artistNames []string) (*domain.Album, error)
	FindOrCreateSong(ctx context.Context, title, artistName, albumName string) (*domain.Song, error)
	FindSongByTitle(ctx context.Context, title string) (*domain.Song, error)
	GetSong(ctx context.Context, id int64) (*domain.Song, error)
	ListSongs(ctx context.Context, limit, offset int) ([]domain.Song, int64, error)
	ListAlbumArtists(ctx context.Context, albumID int64) ([]domain.Artist, error)
}
