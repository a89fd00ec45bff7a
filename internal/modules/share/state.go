package share

import (
	"errors"
	"fmt"
)

// Stage is a step of the share workflow.
type Stage string

const (
	StageSearching         Stage = "searching"
	StageResultsShown      Stage = "results_shown"
	StageCandidateSelected Stage = "candidate_selected"
	StageSaved             Stage = "saved"
	StageRecipientChosen   Stage = "recipient_chosen"
	StageNotified          Stage = "notified"
)

var (
	ErrInvalidTransition = errors.New("invalid workflow transition")
	ErrWrongStage        = errors.New("token belongs to another workflow stage")
)

// transitions lists, per stage, the stages it may move to. A failed search
// goes back to searching; a new search may start from any non-terminal stage.
// Notified is terminal.
var transitions = map[Stage][]Stage{
	StageSearching:         {StageResultsShown, StageSearching},
	StageResultsShown:      {StageCandidateSelected, StageSearching},
	StageCandidateSelected: {StageCandidateSelected, StageSaved, StageSearching},
	StageSaved:             {StageSaved, StageRecipientChosen, StageSearching},
	StageRecipientChosen:   {StageNotified, StageSearching},
	StageNotified:          {},
}

func CanTransition(from, to Stage) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to Stage) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Terminal reports whether no transition leaves s.
func (s Stage) Terminal() bool {
	return len(transitions[s]) == 0
}
