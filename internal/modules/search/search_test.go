package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"songmail/internal/config"
	"songmail/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *ITunesClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewITunesClient(config.SearchConfig{
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	})
}

func TestITunesClient_Search(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "yesterday beatles", r.URL.Query().Get("term"))
		assert.Equal(t, "song", r.URL.Query().Get("entity"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"resultCount":2,"results":[
			{"trackName":"Yesterday","artistName":"The Beatles","collectionName":"Help!"},
			{"trackName":"Yesterday (Remastered)","artistName":"The Beatles","collectionName":"1"}
		]}`)
	})

	got, err := client.Search(context.Background(), "yesterday beatles", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.Candidate{Title: "Yesterday", Artist: "The Beatles", Album: "Help!"}, got[0])
	assert.Contains(t, gotQuery, "term=yesterday+beatles")
}

func TestITunesClient_LimitIsCapped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"results":[{"trackName":"a","artistName":"b"}]}`)
	})

	_, err := client.Search(context.Background(), "x", 50)
	require.NoError(t, err)
}

func TestITunesClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"empty results", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"resultCount":0,"results":[]}`)
		}},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"results":`)
		}},
		{"unusable results", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"results":[{"trackName":"","artistName":"x"}]}`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)

			_, err := client.Search(context.Background(), "anything", 5)
			assert.ErrorIs(t, err, domain.ErrAdapter)
		})
	}
}

func TestITunesClient_RetriesWhenThrottled(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"results":[{"trackName":"Yesterday","artistName":"The Beatles"}]}`)
	})

	got, err := client.Search(context.Background(), "yesterday", 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestITunesClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewITunesClient(config.SearchConfig{BaseURL: srv.URL, Timeout: time.Second})

	_, err := client.Search(context.Background(), "yesterday", 5)
	assert.ErrorIs(t, err, domain.ErrAdapter)
}

type countingAdapter struct {
	calls int
	err   error
}

func (a *countingAdapter) Search(_ context.Context, query string, limit int) ([]domain.Candidate, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return []domain.Candidate{{Title: query, Artist: "Artist", Album: "Album"}}, nil
}

func TestCachedAdapter_ServesRepeatsFromCache(t *testing.T) {
	upstream := &countingAdapter{}
	cached := NewCachedAdapter(upstream, NewMemoryCache(), time.Minute)
	ctx := context.Background()

	first, err := cached.Search(ctx, "Yesterday", 5)
	require.NoError(t, err)
	second, err := cached.Search(ctx, "  yesterday ", 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, upstream.calls)

	_, err = cached.Search(ctx, "Yesterday", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.calls)
}

func TestCachedAdapter_DoesNotCacheFailures(t *testing.T) {
	upstream := &countingAdapter{err: domain.Adapter("test", errors.New("down"))}
	cached := NewCachedAdapter(upstream, NewMemoryCache(), time.Minute)

	for i := 0; i < 2; i++ {
		_, err := cached.Search(context.Background(), "Yesterday", 5)
		assert.ErrorIs(t, err, domain.ErrAdapter)
	}
	assert.Equal(t, 2, upstream.calls)
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func TestCachedAdapter_BrokenCacheFallsThrough(t *testing.T) {
	upstream := &countingAdapter{}
	cached := NewCachedAdapter(upstream, brokenCache{}, time.Minute)

	got, err := cached.Search(context.Background(), "Yesterday", 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMemoryCache_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	data, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)

	now = now.Add(2 * time.Minute)
	data, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestMemoryCache_StaysBounded(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.maxEntries = 3
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "old-1", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "old-2", []byte("2"), time.Minute))
	now = now.Add(2 * time.Minute)

	// both expired entries are swept once the cache is full
	require.NoError(t, c.Set(ctx, "a", []byte("a"), 10*time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("b"), 5*time.Minute))
	assert.Len(t, c.entries, 2)

	require.NoError(t, c.Set(ctx, "c", []byte("c"), 20*time.Minute))
	require.NoError(t, c.Set(ctx, "d", []byte("d"), 30*time.Minute))
	assert.Len(t, c.entries, 3)

	data, err := c.Get(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, data, "entry closest to expiry is evicted first")

	for i := 0; i < 100; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("q%d", i), []byte("x"), time.Minute))
	}
	assert.Len(t, c.entries, 3)
}
