package engine

import (
	"fmt"
	"slices"
)

type Phase string

const (
	PhaseLobby         Phase = "lobby"
	PhaseRoundIntro    Phase = "round_intro"
	PhaseCardSelection Phase = "card_selection"
	PhaseJudge         Phase = "judge_phase"
	PhaseResults       Phase = "results"
	PhaseCompleted     Phase = "completed"
)

// phaseTable is the full set of legal transitions. Anything not listed
// here is rejected; PhaseCompleted is terminal.
var phaseTable = map[Phase][]Phase{
	PhaseLobby:         {PhaseRoundIntro},
	PhaseRoundIntro:    {PhaseCardSelection},
	PhaseCardSelection: {PhaseJudge},
	PhaseJudge:         {PhaseResults},
	PhaseResults:       {PhaseRoundIntro, PhaseCompleted},
	PhaseCompleted:     {},
}

func CanTransition(from, to Phase) bool {
	return slices.Contains(phaseTable[from], to)
}

// Transition moves the session to the target phase, or fails with
// ErrInvalidTransition naming both ends. State is untouched on failure.
func (s *State) Transition(to Phase) error {
	if !CanTransition(s.Phase, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Phase, to)
	}
	s.Phase = to
	return nil
}
