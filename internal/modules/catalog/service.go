package catalog

import (
	"context"
	"errors"
	"strings"

	"songmail/internal/domain"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
)

// MaxNameLength is the column size for titles and names, counted in runes.
const MaxNameLength = 255

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func nameRules() []validation.Rule {
	return []validation.Rule{
		validation.By(func(v interface{}) error {
			if strings.TrimSpace(v.(string)) == "" {
				return validation.ErrRequired
			}
			return nil
		}),
		validation.RuneLength(0, MaxNameLength),
	}
}

func validateNames(fields map[string]string) error {
	errs := validation.Errors{}
	for field, value := range fields {
		errs[field] = validation.Validate(value, nameRules()...)
	}
	return errs.Filter()
}

// storageErr keeps "no such row" apart from real persistence failures.
func storageErr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFound(op)
	}
	return domain.Storage(op, err)
}

func (s *Service) FindOrCreateArtist(ctx context.Context, name string) (*domain.Artist, error) {
	const op = "catalog.FindOrCreateArtist"
	if err := validateNames(map[string]string{"artist": name}); err != nil {
		return nil, domain.Validation(op, err)
	}

	artist, err := s.store.FindOrCreateArtist(ctx, name)
	if err != nil {
		return nil, domain.Storage(op, err)
	}
	return artist, nil
}

// FindOrCreateAlbum matches the album by name and makes sure every listed
// artist is attached to it.
func (s *Service) FindOrCreateAlbum(ctx context.Context, name string, artistNames []string) (*domain.Album, error) {
	const op = "catalog.FindOrCreateAlbum"
	if err := validateNames(map[string]string{"album": name}); err != nil {
		return nil, domain.Validation(op, err)
	}
	for _, artist := range artistNames {
		if err := validateNames(map[string]string{"artist": artist}); err != nil {
			return nil, domain.Validation(op, err)
		}
	}

	album, err := s.store.FindOrCreateAlbum(ctx, name, artistNames)
	if err != nil {
		return nil, domain.Storage(op, err)
	}
	return album, nil
}

// FindOrCreateSong saves a search result. albumName may be blank, in which
// case the song is stored without an album.
func (s *Service) FindOrCreateSong(ctx context.Context, title, artistName, albumName string) (*domain.Song, error) {
	const op = "catalog.FindOrCreateSong"
	fields := map[string]string{"title": title, "artist": artistName}
	if strings.TrimSpace(albumName) == "" {
		albumName = ""
	} else {
		fields["album"] = albumName
	}
	if err := validateNames(fields); err != nil {
		return nil, domain.Validation(op, err)
	}

	song, err := s.store.FindOrCreateSong(ctx, title, artistName, albumName)
	if err != nil {
		return nil, domain.Storage(op, err)
	}
	return song, nil
}

func (s *Service) FindSongByTitle(ctx context.Context, title string) (*domain.Song, error) {
	const op = "catalog.FindSongByTitle"
	if err := validateNames(map[string]string{"title": title}); err != nil {
		return nil, domain.Validation(op, err)
	}

	song, err := s.store.FindSongByTitle(ctx, title)
	if err != nil {
		return nil, storageErr(op, err)
	}
	return song, nil
}

func (s *Service) GetSong(ctx context.Context, id int64) (*domain.Song, error) {
	const op = "catalog.GetSong"
	if id <= 0 {
		return nil, domain.NotFound(op)
	}

	song, err := s.store.GetSong(ctx, id)
	if err != nil {
		return nil, storageErr(op, err)
	}
	if song.AlbumID != nil && song.Album != nil {
		artists, err := s.store.ListAlbumArtists(ctx, *song.AlbumID)
		if err != nil {
			return nil, domain.Storage(op, err)
		}
		song.Album.Artists = artists
	}
	return song, nil
}

func (s *Service) ListSongs(ctx context.Context, limit, offset int) (*SongListResponse, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	songs, total, err := s.store.ListSongs(ctx, limit, offset)
	if err != nil {
		return nil, domain.Storage("catalog.ListSongs", err)
	}
	if songs == nil {
		songs = []domain.Song{}
	}
	return &SongListResponse{Songs: songs, Total: total, Limit: limit, Offset: offset}, nil
}

// ListAlbumArtists lists everyone credited on an album, oldest first.
func (s *Service) ListAlbumArtists(ctx context.Context, albumID int64) ([]domain.Artist, error) {
	const op = "catalog.ListAlbumArtists"
	if albumID <= 0 {
		return nil, domain.NotFound(op)
	}

	artists, err := s.store.ListAlbumArtists(ctx, albumID)
	if err != nil {
		return nil, storageErr(op, err)
	}
	return artists, nil
}
