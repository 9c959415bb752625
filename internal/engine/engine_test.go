package engine

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

func newTestState(t *testing.T, playerCount int) State {
	t.Helper()
	s, err := NewState("ABC123", "p0", 3, 8)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	for i := 0; i < playerCount; i++ {
		p := Player{ID: playerID(i), Name: "player", Connected: true}
		if err := s.AddPlayer(p); err != nil {
			t.Fatalf("AddPlayer: %v", err)
		}
	}
	return s
}

func playerID(i int) string {
	return string(rune('a'+i)) + "1"
}

func TestNewState_RejectsBadBounds(t *testing.T) {
	cases := []struct {
		name       string
		maxRounds  int
		maxPlayers int
		wantErr    bool
	}{
		{name: "valid", maxRounds: 3, maxPlayers: 6, wantErr: false},
		{name: "zero rounds", maxRounds: 0, maxPlayers: 6, wantErr: true},
		{name: "too many rounds", maxRounds: 21, maxPlayers: 6, wantErr: true},
		{name: "one player", maxRounds: 3, maxPlayers: 1, wantErr: true},
		{name: "too many players", maxRounds: 3, maxPlayers: 21, wantErr: true},
		{name: "bounds inclusive", maxRounds: 20, maxPlayers: 20, wantErr: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewState("ABC123", "h1", tc.maxRounds, tc.maxPlayers)
			if tc.wantErr && !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("want ErrInvalidConfig, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
		})
	}
}

func TestAddPlayer_DuplicateJoinIsIdempotent(t *testing.T) {
	s := newTestState(t, 3)
	if err := s.AddPlayer(Player{ID: playerID(1)}); err != nil {
		t.Fatalf("duplicate join should be a no-op, got %v", err)
	}
	if len(s.Players) != 3 {
		t.Fatalf("want 3 players, got %d", len(s.Players))
	}
}

func TestAddPlayer_RejectsAfterLobby(t *testing.T) {
	s := newTestState(t, 2)
	if err := s.Transition(PhaseRoundIntro); err != nil {
		t.Fatalf("transition: %v", err)
	}
	err := s.AddPlayer(Player{ID: "new"})
	if !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("want ErrAlreadyStarted, got %v", err)
	}
}

func TestAddPlayer_RejectsWhenFull(t *testing.T) {
	s, _ := NewState("ABC123", "p0", 3, 2)
	_ = s.AddPlayer(Player{ID: "p0"})
	_ = s.AddPlayer(Player{ID: "p1"})
	err := s.AddPlayer(Player{ID: "p2"})
	if !errors.Is(err, ErrSessionFull) {
		t.Fatalf("want ErrSessionFull, got %v", err)
	}
}

func TestNextJudge_NoRepeatWithinCycle(t *testing.T) {
	s := newTestState(t, 5)
	rng := rand.New(rand.NewSource(7))

	for cycle := 0; cycle < 4; cycle++ {
		seen := map[string]bool{}
		for i := 0; i < len(s.Players); i++ {
			id := s.NextJudge(rng)
			if seen[id] {
				t.Fatalf("cycle %d: judge %s repeated before everyone judged", cycle, id)
			}
			seen[id] = true
		}
		if len(seen) != len(s.Players) {
			t.Fatalf("cycle %d: %d distinct judges, want %d", cycle, len(seen), len(s.Players))
		}
	}
}

func TestNextJudge_CycleResetsAfterAllJudged(t *testing.T) {
	s := newTestState(t, 3)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 3; i++ {
		s.NextJudge(rng)
	}
	// All judged; the next pick must still succeed.
	id := s.NextJudge(rng)
	if s.FindPlayer(id) == nil {
		t.Fatalf("judge %s not a player", id)
	}
	if len(s.Judged) != 1 {
		t.Fatalf("cycle should reset to the new judge only, got %d judged", len(s.Judged))
	}
}

func TestNextJudge_EmptyRosterLeavesSeatVacant(t *testing.T) {
	s := newTestState(t, 2)
	rng := rand.New(rand.NewSource(1))
	s.NextJudge(rng)
	for _, id := range []string{playerID(0), playerID(1)} {
		if err := s.RemovePlayer(id); err != nil {
			t.Fatalf("RemovePlayer: %v", err)
		}
	}
	if id := s.NextJudge(rng); id != "" {
		t.Fatalf("judge %q picked from empty roster", id)
	}
	if s.JudgeID != "" {
		t.Fatalf("stale judge %q", s.JudgeID)
	}
}

func TestRecordSelection(t *testing.T) {
	cases := []struct {
		name     string
		playerID string
		cards    []string
		wantErr  error
	}{
		{name: "valid", playerID: playerID(1), cards: []string{"a rubber duck", "the moon"}},
		{name: "unknown player", playerID: "nope", cards: []string{"x", "y"}, wantErr: ErrPlayerNotInSession},
		{name: "judge excluded", playerID: playerID(0), cards: []string{"x", "y"}, wantErr: ErrJudgeCannotSubmit},
		{name: "too few cards", playerID: playerID(1), cards: []string{"x"}, wantErr: ErrInvalidSelectionShape},
		{name: "too many cards", playerID: playerID(1), cards: []string{"x", "y", "z"}, wantErr: ErrInvalidSelectionShape},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestState(t, 4)
			s.JudgeID = playerID(0)
			s.Sentence = NewSentence("I saw ____ riding ____ downtown")

			err := s.RecordSelection(tc.playerID, tc.cards, time.Now())
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestRecordSelection_ResubmitOverwrites(t *testing.T) {
	s := newTestState(t, 3)
	s.JudgeID = playerID(0)
	s.Sentence = NewSentence("behold ____")

	_ = s.RecordSelection(playerID(1), []string{"a haunted toaster"}, time.Now())
	_ = s.RecordSelection(playerID(1), []string{"the void"}, time.Now())

	if s.SubmittedCount() != 1 {
		t.Fatalf("resubmission duplicated: count=%d", s.SubmittedCount())
	}
	if got := s.Selections[playerID(1)].Cards[0]; got != "the void" {
		t.Fatalf("want overwrite, got %q", got)
	}
}

func TestSelectionsComplete(t *testing.T) {
	s := newTestState(t, 4)
	s.JudgeID = playerID(0)
	s.Sentence = NewSentence("behold ____")

	for i := 1; i < 4; i++ {
		if s.SelectionsComplete() {
			t.Fatalf("complete before all %d contributors submitted", 3)
		}
		_ = s.RecordSelection(playerID(i), []string{"card"}, time.Now())
	}
	if !s.SelectionsComplete() {
		t.Fatalf("expected complete after all contributors submitted")
	}
}

func TestBeginRound_ClearsPriorRoundState(t *testing.T) {
	s := newTestState(t, 3)
	rng := rand.New(rand.NewSource(2))
	s.BeginRound(rng, NewSentence("first ____"))
	_ = s.RecordSelection(s.Contributors()[0].ID, []string{"card"}, time.Now())
	s.Ranking = NewRanking([]GeneratedImage{{PlayerID: "x"}})

	s.BeginRound(rng, NewSentence("second ____ and ____"))

	if s.Round != 2 {
		t.Fatalf("round = %d, want 2", s.Round)
	}
	if s.SubmittedCount() != 0 {
		t.Fatalf("selections not cleared")
	}
	if s.Ranking != nil {
		t.Fatalf("ranking not cleared")
	}
	if s.Sentence.Blanks != 2 {
		t.Fatalf("sentence not replaced, blanks=%d", s.Sentence.Blanks)
	}
}

func TestScoreRound_AppliesPointsAndRanksStandings(t *testing.T) {
	s := newTestState(t, 4)
	res := s.ScoreRound(playerID(1), playerID(2), "")

	if s.FindPlayer(playerID(1)).Score != FirstPlacePoints {
		t.Fatalf("first place score = %d", s.FindPlayer(playerID(1)).Score)
	}
	if s.FindPlayer(playerID(2)).Score != SecondPlacePoints {
		t.Fatalf("second place score = %d", s.FindPlayer(playerID(2)).Score)
	}
	if res.Standings[0].PlayerID != playerID(1) || res.Standings[0].Position != 1 {
		t.Fatalf("standings head = %+v", res.Standings[0])
	}
}

func TestScoreRound_AudienceFavoriteIsOptional(t *testing.T) {
	s := newTestState(t, 3)
	s.ScoreRound(playerID(1), playerID(2), playerID(0))
	if s.FindPlayer(playerID(0)).Score != AudienceFavoritePoints {
		t.Fatalf("audience favorite not applied")
	}
}

func TestSentence_BlankArithmetic(t *testing.T) {
	cases := []struct {
		text   string
		blanks int
		cards  []string
		filled string
	}{
		{"no blanks here", 0, nil, "no blanks here"},
		{"I found ____ in my shoe", 1, []string{"a tiny senate"}, "I found a tiny senate in my shoe"},
		{"____ vs ____", 2, []string{"gravity", "a pigeon"}, "gravity vs a pigeon"},
	}

	for _, tc := range cases {
		sn := NewSentence(tc.text)
		if sn.Blanks != tc.blanks {
			t.Fatalf("%q: blanks=%d, want %d", tc.text, sn.Blanks, tc.blanks)
		}
		if got := sn.Filled(tc.cards); got != tc.filled {
			t.Fatalf("%q: filled=%q, want %q", tc.text, got, tc.filled)
		}
	}
}
