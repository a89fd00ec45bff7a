package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"songmail/internal/config"
	"songmail/internal/domain"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const maxAttempts = 2

// ITunesClient queries the public iTunes Search API.
type ITunesClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewITunesClient(cfg config.SearchConfig) *ITunesClient {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60), cfg.RatePerMinute)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ITunesClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
		limiter: limiter,
	}
}

type itunesResponse struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		TrackName      string `json:"trackName"`
		ArtistName     string `json:"artistName"`
		CollectionName string `json:"collectionName"`
	} `json:"results"`
}

func (c *ITunesClient) Search(ctx context.Context, query string, limit int) ([]domain.Candidate, error) {
	const op = "search.ITunes"
	limit = clampLimit(limit)

	params := url.Values{
		"term":   {query},
		"entity": {"song"},
		"limit":  {strconv.Itoa(limit)},
	}
	endpoint := c.baseURL + "/search?" + params.Encode()

	body, err := c.fetch(ctx, endpoint)
	if err != nil {
		return nil, domain.Adapter(op, err)
	}

	candidates := make([]domain.Candidate, 0, len(body.Results))
	for _, r := range body.Results {
		// entity=song should always fill these, but a result the catalog
		// cannot store is useless to offer
		if strings.TrimSpace(r.TrackName) == "" || strings.TrimSpace(r.ArtistName) == "" {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			Title:  r.TrackName,
			Artist: r.ArtistName,
			Album:  r.CollectionName,
		})
		if len(candidates) == limit {
			break
		}
	}

	if len(candidates) == 0 {
		return nil, domain.Adapter(op, ErrNoResults)
	}
	return candidates, nil
}

// fetch retries once on throttling or a transport error.
func (c *ITunesClient) fetch(ctx context.Context, endpoint string) (*itunesResponse, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			log.Warn().Err(err).Int("attempt", attempt+1).Msg("itunes request failed")
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("itunes search: %s", resp.Status)
			log.Warn().Int("status", resp.StatusCode).Int("attempt", attempt+1).Msg("itunes throttled")
			continue
		}

		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("itunes search: %s", resp.Status)
		}

		var body itunesResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("decode itunes response: %w", err)
		}
		return &body, nil
	}
	return nil, lastErr
}
