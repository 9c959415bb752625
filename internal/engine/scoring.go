package engine

import "slices"

const (
	FirstPlacePoints  = 5
	SecondPlacePoints = 2
	// Audience favorite is an additive extension channel; nothing in the
	// judge ranking produces it yet.
	AudienceFavoritePoints = 1
)

type Standing struct {
	PlayerID string
	Name     string
	Score    int
	Position int
}

type RoundResult struct {
	Round     int
	FirstID   string
	SecondID  string
	Standings []Standing
}

// ScoreRound applies round points and returns the updated standings.
// audienceID may be empty; when set that player earns the audience bonus.
func (s *State) ScoreRound(firstID, secondID, audienceID string) RoundResult {
	if p := s.FindPlayer(firstID); p != nil {
		p.Score += FirstPlacePoints
	}
	if p := s.FindPlayer(secondID); p != nil {
		p.Score += SecondPlacePoints
	}
	if p := s.FindPlayer(audienceID); audienceID != "" && p != nil {
		p.Score += AudienceFavoritePoints
	}
	return RoundResult{
		Round:     s.Round,
		FirstID:   firstID,
		SecondID:  secondID,
		Standings: s.Standings(),
	}
}

// Standings returns players ordered by score descending, join order as
// the tie break.
func (s *State) Standings() []Standing {
	out := make([]Standing, 0, len(s.Players))
	for _, p := range s.Players {
		out = append(out, Standing{PlayerID: p.ID, Name: p.Name, Score: p.Score})
	}
	slices.SortStableFunc(out, func(a, b Standing) int {
		return b.Score - a.Score
	})
	for i := range out {
		out[i].Position = i + 1
	}
	return out
}
