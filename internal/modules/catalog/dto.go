package catalog

import "songmail/internal/domain"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type SongListResponse struct {
	Songs  []domain.Song `json:"songs"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}
