package domain

import "time"

// Friend is a contact saved by one user. Unique by (UserID, Name).
type Friend struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
