package share

import "songmail/internal/domain"

// Actor is the authenticated user driving the workflow.
type Actor struct {
	UserID   int64
	Username string
}

type CandidateView struct {
	domain.Candidate
	Token string `json:"token"`
}

type SearchResult struct {
	Stage      Stage           `json:"stage"`
	Query      string          `json:"query"`
	Candidates []CandidateView `json:"candidates"`
}

type SelectResult struct {
	Stage     Stage            `json:"stage"`
	Candidate domain.Candidate `json:"candidate"`
	Token     string           `json:"token"`
}

type ConfirmResult struct {
	Stage      Stage        `json:"stage"`
	Song       *domain.Song `json:"song"`
	SavedToken string       `json:"saved_token"`
}

// RecipientInput must name exactly one recipient: a saved friend, a new
// friend (name and email) or a bare email address.
type RecipientInput struct {
	FriendID int64
	Name     string
	Email    string
}

type Recipient struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	FriendID int64  `json:"friend_id,omitempty"`
}

type DispatchResult struct {
	Stage     Stage     `json:"stage"`
	Song      Selection `json:"song"`
	Recipient Recipient `json:"recipient"`
}

type ConfirmRequest struct {
	Token string `json:"token" binding:"required"`
}

type SendRequest struct {
	SavedToken string `json:"saved_token" binding:"required"`
	FriendID   int64  `json:"friend_id"`
	Name       string `json:"name" binding:"max=64"`
	Email      string `json:"email" binding:"omitempty,email,max=64"`
}
