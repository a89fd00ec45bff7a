// Package search talks to the third-party song search service.
package search

import (
	"context"
	"errors"

	"songmail/internal/domain"
)

// MaxResults caps every search, whatever the caller asks for.
const MaxResults = 10

var ErrNoResults = errors.New("no results")

// Adapter returns up to limit candidates for a free-text query. Every failure,
// including an empty result, is a domain.ErrAdapter.
type Adapter interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Candidate, error)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxResults {
		return MaxResults
	}
	return limit
}
