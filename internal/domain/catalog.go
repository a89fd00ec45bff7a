package domain

// Artist is created on first reference and never updated.
type Artist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Album is matched by name only; two artists with same-titled albums share a row.
type Album struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Artists []Artist `json:"artists,omitempty"`
}

// Song is unique by (Title, ArtistID).
type Song struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	ArtistID int64  `json:"artist_id"`
	AlbumID  *int64 `json:"album_id,omitempty"`

	Artist *Artist `json:"artist,omitempty"`
	Album  *Album  `json:"album,omitempty"`
}

// Candidate is one search hit: what the user may pick and save.
type Candidate struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
}
