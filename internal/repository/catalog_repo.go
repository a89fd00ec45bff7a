package repository

import (
	"context"
	"errors"

	"songmail/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type artistModel struct {
	ID   int64  `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name;size:255;not null;uniqueIndex:idx_artists_name"`
}

func (artistModel) TableName() string { return "artists" }

type albumModel struct {
	ID   int64  `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name;size:255;not null;uniqueIndex:idx_albums_name"`
}

func (albumModel) TableName() string { return "albums" }

// collectionModel is the album <-> artist join row.
type collectionModel struct {
	AlbumID  int64 `gorm:"column:album_id;primaryKey;autoIncrement:false"`
	ArtistID int64 `gorm:"column:artist_id;primaryKey;autoIncrement:false;index"`
}

func (collectionModel) TableName() string { return "collections" }

type songModel struct {
	ID       int64  `gorm:"column:id;primaryKey"`
	Title    string `gorm:"column:title;size:255;not null;uniqueIndex:idx_songs_title_artist,priority:1"`
	ArtistID int64  `gorm:"column:artist_id;not null;uniqueIndex:idx_songs_title_artist,priority:2;index"`
	AlbumID  *int64 `gorm:"column:album_id;index"`
}

func (songModel) TableName() string { return "songs" }

func toDomainArtist(m artistModel) domain.Artist {
	return domain.Artist{ID: m.ID, Name: m.Name}
}

func toDomainAlbum(m albumModel) domain.Album {
	return domain.Album{ID: m.ID, Name: m.Name}
}

// CatalogRepository stores artists, albums and songs. Every find-or-create
// runs in its own transaction; rows are never updated or deleted here.
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// firstOrInsert loads the row matching query into dst. When there is none it
// inserts dst as given; if a concurrent writer got there first the insert is
// a no-op and the winner's row is read back instead.
func firstOrInsert[M any](tx *gorm.DB, dst *M, query string, args ...any) error {
	insert := *dst
	err := tx.Where(query, args...).First(dst).Error
	if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	*dst = insert
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(dst)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var fresh M
	*dst = fresh
	return tx.Where(query, args...).First(dst).Error
}

func findOrCreateArtist(tx *gorm.DB, name string) (artistModel, error) {
	m := artistModel{Name: name}
	err := firstOrInsert(tx, &m, "name = ?", name)
	return m, err
}

func findOrCreateAlbum(tx *gorm.DB, name string) (albumModel, error) {
	m := albumModel{Name: name}
	err := firstOrInsert(tx, &m, "name = ?", name)
	return m, err
}

func attachArtist(tx *gorm.DB, albumID, artistID int64) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&collectionModel{AlbumID: albumID, ArtistID: artistID}).Error
}

func albumArtists(tx *gorm.DB, albumID int64) ([]domain.Artist, error) {
	var rows []artistModel
	err := tx.Model(&artistModel{}).
		Joins("JOIN collections ON collections.artist_id = artists.id").
		Where("collections.album_id = ?", albumID).
		Order("artists.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	artists := make([]domain.Artist, len(rows))
	for i, row := range rows {
		artists[i] = toDomainArtist(row)
	}
	return artists, nil
}

func (r *CatalogRepository) FindOrCreateArtist(ctx context.Context, name string) (*domain.Artist, error) {
	var m artistModel
	err := inTx(r.db.WithContext(ctx), func(tx *gorm.DB) error {
		var err error
		m, err = findOrCreateArtist(tx, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	a := toDomainArtist(m)
	return &a, nil
}

// FindOrCreateAlbum matches by name only and attaches every listed artist,
// whether the album was found or created.
func (r *CatalogRepository) FindOrCreateAlbum(ctx context.Context, name string, artistNames []string) (*domain.Album, error) {
	var album domain.Album
	err := inTx(r.db.WithContext(ctx), func(tx *gorm.DB) error {
		m, err := findOrCreateAlbum(tx, name)
		if err != nil {
			return err
		}
		for _, artistName := range artistNames {
			artist, err := findOrCreateArtist(tx, artistName)
			if err != nil {
				return err
			}
			if err := attachArtist(tx, m.ID, artist.ID); err != nil {
				return err
			}
		}

		album = toDomainAlbum(m)
		album.Artists, err = albumArtists(tx, m.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &album, nil
}

// FindOrCreateSong resolves the artist, the album (when albumName is not
// empty) and finally the song keyed by (title, artist). A new song is linked
// to the resolved album; an existing song is returned untouched.
func (r *CatalogRepository) FindOrCreateSong(ctx context.Context, title, artistName, albumName string) (*domain.Song, error) {
	var song *domain.Song
	err := inTx(r.db.WithContext(ctx), func(tx *gorm.DB) error {
		artist, err := findOrCreateArtist(tx, artistName)
		if err != nil {
			return err
		}

		var albumID *int64
		if albumName != "" {
			album, err := findOrCreateAlbum(tx, albumName)
			if err != nil {
				return err
			}
			if err := attachArtist(tx, album.ID, artist.ID); err != nil {
				return err
			}
			albumID = &album.ID
		}

		m := songModel{Title: title, ArtistID: artist.ID, AlbumID: albumID}
		if err := firstOrInsert(tx, &m, "title = ? AND artist_id = ?", title, artist.ID); err != nil {
			return err
		}

		song, err = hydrateSong(tx, m)
		return err
	})
	if err != nil {
		return nil, err
	}
	return song, nil
}

// FindSongByTitle returns the oldest song with this exact title.
func (r *CatalogRepository) FindSongByTitle(ctx context.Context, title string) (*domain.Song, error) {
	db := r.db.WithContext(ctx)
	var m songModel
	if err := db.Where("title = ?", title).Order("id ASC").First(&m).Error; err != nil {
		return nil, err
	}
	return hydrateSong(db, m)
}

func (r *CatalogRepository) GetSong(ctx context.Context, id int64) (*domain.Song, error) {
	db := r.db.WithContext(ctx)
	var m songModel
	if err := db.First(&m, id).Error; err != nil {
		return nil, err
	}
	return hydrateSong(db, m)
}

func (r *CatalogRepository) ListSongs(ctx context.Context, limit, offset int) ([]domain.Song, int64, error) {
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&songModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []songModel
	query := db.Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	songs := make([]domain.Song, 0, len(rows))
	for _, row := range rows {
		s, err := hydrateSong(db, row)
		if err != nil {
			return nil, 0, err
		}
		songs = append(songs, *s)
	}
	return songs, total, nil
}

// ListAlbumArtists returns gorm.ErrRecordNotFound for an unknown album.
func (r *CatalogRepository) ListAlbumArtists(ctx context.Context, albumID int64) ([]domain.Artist, error) {
	db := r.db.WithContext(ctx)
	if err := db.Select("id").First(&albumModel{}, albumID).Error; err != nil {
		return nil, err
	}
	return albumArtists(db, albumID)
}

func hydrateSong(db *gorm.DB, m songModel) (*domain.Song, error) {
	s := &domain.Song{
		ID:       m.ID,
		Title:    m.Title,
		ArtistID: m.ArtistID,
		AlbumID:  m.AlbumID,
	}

	var artist artistModel
	if err := db.First(&artist, m.ArtistID).Error; err != nil {
		return nil, err
	}
	a := toDomainArtist(artist)
	s.Artist = &a

	if m.AlbumID != nil {
		var album albumModel
		if err := db.First(&album, *m.AlbumID).Error; err != nil {
			return nil, err
		}
		al := toDomainAlbum(album)
		s.Album = &al
	}
	return s, nil
}
