package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"songmail/internal/database"
	"songmail/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func countRows(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table(table).Count(&n).Error)
	return n
}

func TestFindOrCreateArtist_Idempotent(t *testing.T) {
	db := testDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	first, err := repo.FindOrCreateArtist(ctx, "The Beatles")
	require.NoError(t, err)
	second, err := repo.FindOrCreateArtist(ctx, "The Beatles")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(1), countRows(t, db, "artists"))
}

func TestFindOrCreateArtist_ExactMatch(t *testing.T) {
	db := testDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	a, err := repo.FindOrCreateArtist(ctx, "Queen")
	require.NoError(t, err)
	b, err := repo.FindOrCreateArtist(ctx, "queen")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, int64(2), countRows(t, db, "artists"))
}

func TestFindOrCreateArtist_Concurrent(t *testing.T) {
	db := testDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	const workers = 8
	ids := make([]int64, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := repo.FindOrCreateArtist(ctx, "Radiohead")
			errs[i] = err
			if a != nil {
				ids[i] = a.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, int64(1), countRows(t, db, "artists"))
}

func TestFindOrCreateAlbum_AttachesArtists(t *testing.T) {
	db := testDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	album, err := repo.FindOrCreateAlbum(ctx, "Help!", []string{"The Beatles"})
	require.NoError(t, err)
	require.Len(t, album.Artists, 1)
	assert.Equal(t, "The Beatles", album.Artists[0].Name)

	again, err := repo.FindOrCreateAlbum(ctx, "Help!", []string{"The Beatles", "Billy Preston"})
	require.NoError(t, err)
	assert.Equal(t, album.ID, again.ID)
	assert.Len(t, again.Artists, 2)

	assert.Equal(t, int64(1), countRows(t, db, "albums"))
	assert.Equal(t, int64(2), countRows(t, db, "collections"))
}

func TestFindOrCreateSong_Scenario(t *testing.T) {
	db := testDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	song, err := repo.FindOrCreateSong(ctx, "Yesterday", "The Beatles", "Help!")
	require.NoError(t, err)
	require.NotNil(t, song.Artist)
	require.NotNil(t, song.Album)
	assert.Equal(t, "The Beatles", song.Artist.Name)
	assert.Equal(t, "Help!", song.Album.Name)
	require.NotNil(t, song.AlbumID)
	assert.Equal(t, song.Album.ID, *song.AlbumID)

	again, err := repo.FindOrCreateSong(ctx, "Yesterday", "The Beatles", "Help!")
	require.NoError(t, err)
	assert.Equal(t, song.ID, again.ID)

	assert.Equal(t, int64(1), countRows(t, db, "songs"))
	assert.Equal(t, int64(1), countRows(t, db, "artists"))
	assert.Equal(t, int64(1), countRows(t, db, "albums"))

	artists, err := repo.ListAlbumArtists(ctx, song.Album.ID)
	require.NoError(t, err)
	require.Len(t, artists, 1)
	assert.Equal(t, song.ArtistID, artists[0].ID)
}

func TestFindOrCreateSong_SameTitleDifferentArtist(t *testing.T) {
	db := testDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	a, err := repo.FindOrCreateSong(ctx, "Yesterday", "The Beatles", "")
	require.NoError(t, err)
	b, err := repo.FindOrCreateSong(ctx, "Yesterday", "Ray Charles", "")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Nil(t, a.AlbumID)
	assert.Nil(t, a.Album)

	found, err := repo.FindSongByTitle(ctx, "Yesterday")
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)
}

func TestFindSongByTitle_NotFound(t *testing.T) {
	repo := NewCatalogRepository(testDB(t))

	_, err := repo.FindSongByTitle(context.Background(), "Nope")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListSongs(t *testing.T) {
	repo := NewCatalogRepository(testDB(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.FindOrCreateSong(ctx, fmt.Sprintf("Track %d", i), "Artist", "Album")
		require.NoError(t, err)
	}

	songs, total, err := repo.ListSongs(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, songs, 2)
	assert.Equal(t, "Track 1", songs[0].Title)
	assert.Equal(t, "Artist", songs[0].Artist.Name)
}

func TestFriendRepository_FirstWriteWins(t *testing.T) {
	db := testDB(t)
	repo := NewFriendRepository(db)
	ctx := context.Background()

	first, err := repo.FindOrCreate(ctx, 1, "Alex", "alex@example.com")
	require.NoError(t, err)
	second, err := repo.FindOrCreate(ctx, 1, "Alex", "other@example.com")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "alex@example.com", second.Email)

	friends, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, "alex@example.com", friends[0].Email)
}

func TestFriendRepository_OwnerIsolation(t *testing.T) {
	repo := NewFriendRepository(testDB(t))
	ctx := context.Background()

	a, err := repo.FindOrCreate(ctx, 1, "Alex", "alex@example.com")
	require.NoError(t, err)
	b, err := repo.FindOrCreate(ctx, 2, "Alex", "alex.b@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	friends, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, int64(1), friends[0].UserID)

	_, err = repo.GetByID(ctx, 1, b.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	got, err := repo.GetByID(ctx, 2, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "alex.b@example.com", got.Email)
}

func TestUserRepository_Duplicate(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	u := &domain.User{Username: "marie", Email: "Marie@Example.com", PasswordHash: "x"}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotZero(t, u.ID)
	assert.Equal(t, "marie@example.com", u.Email)

	err := repo.Create(ctx, &domain.User{Username: "marie", Email: "other@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrDuplicate)

	exists, err := repo.ExistsByEmail(ctx, "MARIE@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := repo.GetByEmail(ctx, "marie@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, isUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: artists.name (2067)")))
	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(gorm.ErrRecordNotFound))
}

func TestInTx_RetriesOnConflict(t *testing.T) {
	db := testDB(t)

	calls := 0
	err := inTx(db, func(tx *gorm.DB) error {
		calls++
		if calls < 2 {
			return &pgconn.PgError{Code: pgUniqueViolation}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = inTx(db, func(tx *gorm.DB) error {
		calls++
		return ErrDuplicate
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, maxConflictAttempts, calls)
}
