package share

import (
	"context"
	"errors"
	"strings"

	"songmail/internal/config"
	"songmail/internal/domain"
	"songmail/internal/modules/friend"
	"songmail/internal/modules/search"
	"songmail/internal/notification"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	ErrRecipientRequired  = errors.New("choose a friend or enter an email address")
	ErrAmbiguousRecipient = errors.New("choose either a saved friend or a new recipient, not both")
)

type Options struct {
	DefaultLimit  int
	MailSender    string
	SubjectPrefix string
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DefaultLimit:  cfg.Search.Limit,
		MailSender:    cfg.Mail.Sender,
		SubjectPrefix: cfg.Mail.SubjectPrefix,
	}
}

// Service runs the share workflow. It holds no per-user state: every step
// after the search is driven by a signed token from the previous one, and
// the token's kind is what orders the steps. Select and Confirm accept only
// candidate tokens, Dispatch and Send only saved ones. Session applies the
// transition table when one caller walks the steps in sequence.
type Service struct {
	search     search.Adapter
	catalog    Catalog
	friends    Friends
	dispatcher notification.Dispatcher
	tokens     *Tokens
	opts       Options
}

func NewService(adapter search.Adapter, catalog Catalog, friends Friends, dispatcher notification.Dispatcher, tokens *Tokens, opts Options) *Service {
	if opts.DefaultLimit <= 0 || opts.DefaultLimit > search.MaxResults {
		opts.DefaultLimit = search.MaxResults
	}
	return &Service{
		search:     adapter,
		catalog:    catalog,
		friends:    friends,
		dispatcher: dispatcher,
		tokens:     tokens,
		opts:       opts,
	}
}

func tokenErr(op string, err error) error {
	return domain.Validation(op, err)
}

// Search asks the search service for candidates and signs each one. On
// failure nothing is written and the workflow stays in searching.
func (s *Service) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	const op = "share.Search"

	query = strings.TrimSpace(query)
	if err := validation.Validate(query, validation.Required, validation.RuneLength(1, 255)); err != nil {
		return nil, domain.Validation(op, validation.Errors{"q": err})
	}
	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}
	if limit > search.MaxResults {
		limit = search.MaxResults
	}

	candidates, err := s.search.Search(ctx, query, limit)
	if err != nil {
		if domain.KindOf(err) == nil {
			err = domain.Adapter(op, err)
		}
		return nil, err
	}

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	views := make([]CandidateView, 0, len(candidates))
	for _, c := range candidates {
		token, err := s.tokens.Issue(TokenCandidate, Selection{Title: c.Title, Artist: c.Artist, Album: c.Album})
		if err != nil {
			return nil, err
		}
		views = append(views, CandidateView{Candidate: c, Token: token})
	}

	return &SearchResult{Stage: StageResultsShown, Query: query, Candidates: views}, nil
}

// Select decodes a candidate token. Nothing is stored yet.
func (s *Service) Select(ctx context.Context, candidateToken string) (*SelectResult, error) {
	const op = "share.Select"

	sel, err := s.tokens.Parse(candidateToken, TokenCandidate)
	if err != nil {
		return nil, tokenErr(op, err)
	}

	return &SelectResult{
		Stage:     StageCandidateSelected,
		Candidate: domain.Candidate{Title: sel.Title, Artist: sel.Artist, Album: sel.Album},
		Token:     candidateToken,
	}, nil
}

// Confirm saves the selected candidate into the catalog. Confirming the same
// candidate again returns the same song.
func (s *Service) Confirm(ctx context.Context, candidateToken string) (*ConfirmResult, error) {
	const op = "share.Confirm"

	sel, err := s.tokens.Parse(candidateToken, TokenCandidate)
	if err != nil {
		return nil, tokenErr(op, err)
	}

	song, err := s.catalog.FindOrCreateSong(ctx, sel.Title, sel.Artist, sel.Album)
	if err != nil {
		return nil, err
	}

	saved := Selection{Title: sel.Title, Artist: sel.Artist, Album: sel.Album, SongID: song.ID}
	token, err := s.tokens.Issue(TokenSaved, saved)
	if err != nil {
		return nil, err
	}

	return &ConfirmResult{Stage: StageSaved, Song: song, SavedToken: token}, nil
}

// ChooseRecipient resolves who gets the email. Friend lookups and new
// friends are scoped to userID and need one; a bare email is only validated
// and works without a user.
func (s *Service) ChooseRecipient(ctx context.Context, userID int64, in RecipientInput) (*Recipient, error) {
	const op = "share.ChooseRecipient"

	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)

	if userID <= 0 && (in.FriendID != 0 || name != "") {
		return nil, domain.Auth(op)
	}

	switch {
	case in.FriendID != 0 && (name != "" || email != ""):
		return nil, domain.Validation(op, ErrAmbiguousRecipient)

	case in.FriendID != 0:
		f, err := s.friends.GetFriend(ctx, userID, in.FriendID)
		if err != nil {
			return nil, err
		}
		return &Recipient{Email: f.Email, Name: f.Name, FriendID: f.ID}, nil

	case name != "":
		f, err := s.friends.FindOrCreateFriend(ctx, userID, name, email)
		if err != nil {
			return nil, err
		}
		return &Recipient{Email: f.Email, Name: f.Name, FriendID: f.ID}, nil

	case email != "":
		if err := friend.ValidateEmail(email); err != nil {
			return nil, domain.Validation(op, err)
		}
		return &Recipient{Email: email}, nil

	default:
		return nil, domain.Validation(op, ErrRecipientRequired)
	}
}

// Dispatch queues the notification and returns without waiting for delivery.
// A queue that refuses the job is reported as an adapter failure.
func (s *Service) Dispatch(ctx context.Context, actor Actor, savedToken string, recipient Recipient) (*DispatchResult, error) {
	const op = "share.Dispatch"

	sel, err := s.tokens.Parse(savedToken, TokenSaved)
	if err != nil {
		return nil, tokenErr(op, err)
	}
	if recipient.Email == "" {
		return nil, domain.Validation(op, ErrRecipientRequired)
	}

	job := notification.NewSongJob(s.opts.SubjectPrefix, s.opts.MailSender, recipient.Email, recipient.Name, sel.Title, sel.Artist, sel.Album)
	job.SharedBy = actor.Username

	if err := s.dispatcher.Submit(ctx, job); err != nil {
		return nil, domain.Adapter(op, err)
	}

	return &DispatchResult{Stage: StageNotified, Song: *sel, Recipient: recipient}, nil
}

// Send is ChooseRecipient followed by Dispatch. The saved token is checked
// first so a bad token never creates a friend. An anonymous actor may only
// mail a bare address.
func (s *Service) Send(ctx context.Context, actor Actor, savedToken string, in RecipientInput) (*DispatchResult, error) {
	const op = "share.Send"

	if _, err := s.tokens.Parse(savedToken, TokenSaved); err != nil {
		return nil, tokenErr(op, err)
	}

	recipient, err := s.ChooseRecipient(ctx, actor.UserID, in)
	if err != nil {
		return nil, err
	}
	return s.Dispatch(ctx, actor, savedToken, *recipient)
}
