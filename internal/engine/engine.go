package engine

import (
	"errors"
	"math/rand"
	"time"
)

var ErrInvalidConfig = errors.New("invalid session config")
var ErrInvalidTransition = errors.New("invalid phase transition")
var ErrSessionFull = errors.New("session full")
var ErrAlreadyStarted = errors.New("session already started")
var ErrNotEnoughPlayers = errors.New("not enough players")
var ErrPlayerNotFound = errors.New("player not found")
var ErrPlayerNotInSession = errors.New("player not in session")
var ErrJudgeCannotSubmit = errors.New("judge cannot submit cards")
var ErrInvalidSelectionShape = errors.New("selection does not match blank count")
var ErrNotReady = errors.New("images still loading")
var ErrUnknownCandidate = errors.New("unknown candidate")
var ErrDuplicateAssignment = errors.New("player already holds the other rank")
var ErrIncompleteRanking = errors.New("both rank slots must be filled")
var ErrAlreadyFinalized = errors.New("ranking already finalized")
var ErrNotJudge = errors.New("only the judge may do this")
var ErrWrongPhase = errors.New("operation not valid in current phase")
var ErrNotHost = errors.New("only the host may do this")

const (
	MinRounds  = 1
	MaxRounds  = 20
	MinPlayers = 2
	MaxPlayers = 20
)

type Player struct {
	ID        string
	Name      string
	Avatar    string
	Score     int
	Connected bool
	IsHost    bool
}

// State is one session's entire game state. It is a plain value with no
// locking: the session actor owns it and serializes every mutation.
type State struct {
	Code       string
	HostID     string
	Players    []*Player
	Phase      Phase
	Round      int
	MaxRounds  int
	MaxPlayers int
	JudgeID    string
	Judged     map[string]bool
	Sentence   Sentence
	Selections map[string]Selection
	Ranking    *Ranking
}

func NewState(code, hostID string, maxRounds, maxPlayers int) (State, error) {
	if maxRounds < MinRounds || maxRounds > MaxRounds {
		return State{}, ErrInvalidConfig
	}
	if maxPlayers < MinPlayers || maxPlayers > MaxPlayers {
		return State{}, ErrInvalidConfig
	}
	return State{
		Code:       code,
		HostID:     hostID,
		Phase:      PhaseLobby,
		MaxRounds:  maxRounds,
		MaxPlayers: maxPlayers,
		Judged:     map[string]bool{},
		Selections: map[string]Selection{},
	}, nil
}

func (s *State) FindPlayer(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// AddPlayer admits a player while the session is still in the lobby.
// Re-joining with an ID already present is idempotent.
func (s *State) AddPlayer(p Player) error {
	if existing := s.FindPlayer(p.ID); existing != nil {
		existing.Connected = true
		return nil
	}
	if s.Phase != PhaseLobby {
		return ErrAlreadyStarted
	}
	if len(s.Players) >= s.MaxPlayers {
		return ErrSessionFull
	}
	p.IsHost = p.ID == s.HostID
	s.Players = append(s.Players, &p)
	return nil
}

func (s *State) RemovePlayer(id string) error {
	for i, p := range s.Players {
		if p.ID == id {
			s.Players = append(s.Players[:i], s.Players[i+1:]...)
			delete(s.Judged, id)
			delete(s.Selections, id)
			return nil
		}
	}
	return ErrPlayerNotFound
}

// NextJudge picks uniformly among players who have not judged in the
// current cycle. Once everyone has judged the cycle resets. With no
// players left there is nobody to pick; the judge seat stays empty.
func (s *State) NextJudge(rng *rand.Rand) string {
	if len(s.Players) == 0 {
		s.JudgeID = ""
		return ""
	}
	eligible := make([]*Player, 0, len(s.Players))
	for _, p := range s.Players {
		if !s.Judged[p.ID] {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) == 0 {
		s.Judged = map[string]bool{}
		eligible = s.Players
	}
	judge := eligible[rng.Intn(len(eligible))]
	s.JudgeID = judge.ID
	s.Judged[judge.ID] = true
	return judge.ID
}

// Contributors are the non-judge players of the current round.
func (s *State) Contributors() []*Player {
	out := make([]*Player, 0, len(s.Players))
	for _, p := range s.Players {
		if p.ID != s.JudgeID {
			out = append(out, p)
		}
	}
	return out
}

// BeginRound resets per-round state for the round about to start. The
// caller has already checked the round bound and transitioned the phase.
func (s *State) BeginRound(rng *rand.Rand, sentence Sentence) {
	s.Round++
	s.NextJudge(rng)
	s.Sentence = sentence
	s.Selections = map[string]Selection{}
	s.Ranking = nil
}

type Selection struct {
	Cards       []string
	SubmittedAt time.Time
}

// RecordSelection stores (or overwrites) a contributor's card picks for
// the active round. One card per blank, judge excluded by construction.
func (s *State) RecordSelection(playerID string, cards []string, now time.Time) error {
	if s.FindPlayer(playerID) == nil {
		return ErrPlayerNotInSession
	}
	if playerID == s.JudgeID {
		return ErrJudgeCannotSubmit
	}
	if len(cards) != s.Sentence.Blanks {
		return ErrInvalidSelectionShape
	}
	s.Selections[playerID] = Selection{Cards: cards, SubmittedAt: now}
	return nil
}

// SelectionsComplete reports whether every non-judge player has submitted.
func (s *State) SelectionsComplete() bool {
	return len(s.Selections) == len(s.Contributors())
}

func (s *State) SubmittedCount() int {
	return len(s.Selections)
}
