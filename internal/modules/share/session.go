package share

import (
	"context"
	"fmt"

	"songmail/internal/domain"
)

// Session walks one user through the workflow step by step, remembering the
// tokens between steps. The HTTP surface is stateless and uses Service
// directly; the admin CLI drives a Session.
type Session struct {
	svc   *Service
	actor Actor
	stage Stage

	candidates     []CandidateView
	candidateToken string
	savedToken     string
	recipient      *Recipient
}

func (s *Service) NewSession(actor Actor) *Session {
	return &Session{svc: s, actor: actor, stage: StageSearching}
}

func (s *Session) Stage() Stage { return s.stage }

func (s *Session) advance(to Stage) error {
	if err := checkTransition(s.stage, to); err != nil {
		return err
	}
	s.stage = to
	return nil
}

// Search starts over. A failed search leaves the session in searching.
func (s *Session) Search(ctx context.Context, query string, limit int) ([]CandidateView, error) {
	if !CanTransition(s.stage, StageSearching) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.stage, StageSearching)
	}
	s.stage = StageSearching
	s.candidates, s.candidateToken, s.savedToken, s.recipient = nil, "", "", nil

	res, err := s.svc.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	s.candidates = res.Candidates
	return res.Candidates, s.advance(StageResultsShown)
}

// Select picks a candidate by its position in the last search.
func (s *Session) Select(ctx context.Context, index int) (*domain.Candidate, error) {
	if err := checkTransition(s.stage, StageCandidateSelected); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(s.candidates) {
		return nil, domain.Validation("share.Session.Select", fmt.Errorf("no candidate #%d", index+1))
	}

	res, err := s.svc.Select(ctx, s.candidates[index].Token)
	if err != nil {
		return nil, err
	}
	s.candidateToken = res.Token
	return &res.Candidate, s.advance(StageCandidateSelected)
}

func (s *Session) Confirm(ctx context.Context) (*domain.Song, error) {
	if err := checkTransition(s.stage, StageSaved); err != nil {
		return nil, err
	}

	res, err := s.svc.Confirm(ctx, s.candidateToken)
	if err != nil {
		return nil, err
	}
	s.savedToken = res.SavedToken
	return res.Song, s.advance(StageSaved)
}

func (s *Session) ChooseRecipient(ctx context.Context, in RecipientInput) (*Recipient, error) {
	if err := checkTransition(s.stage, StageRecipientChosen); err != nil {
		return nil, err
	}

	r, err := s.svc.ChooseRecipient(ctx, s.actor.UserID, in)
	if err != nil {
		return nil, err
	}
	s.recipient = r
	return r, s.advance(StageRecipientChosen)
}

func (s *Session) Dispatch(ctx context.Context) (*DispatchResult, error) {
	if err := checkTransition(s.stage, StageNotified); err != nil {
		return nil, err
	}

	res, err := s.svc.Dispatch(ctx, s.actor, s.savedToken, *s.recipient)
	if err != nil {
		return nil, err
	}
	return res, s.advance(StageNotified)
}
