package types

import "time"

type PlayerInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar,omitempty"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
	IsHost    bool   `json:"is_host"`
}

type CandidateInfo struct {
	PlayerID    string `json:"player_id"`
	ImageRef    string `json:"image_ref"`
	Placeholder bool   `json:"placeholder"`
	Reason      string `json:"reason,omitempty"`
}

type Standing struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Position int    `json:"position"`
}

// SessionSnapshot is the full client-facing view of one session, sent to
// late joiners and returned by the snapshot endpoint.
type SessionSnapshot struct {
	Code       string          `json:"code"`
	Phase      string          `json:"phase"`
	Round      int             `json:"round"`
	MaxRounds  int             `json:"max_rounds"`
	MaxPlayers int             `json:"max_players"`
	HostID     string          `json:"host_id"`
	JudgeID    string          `json:"judge_id,omitempty"`
	Sentence   string          `json:"sentence,omitempty"`
	Blanks     int             `json:"blanks,omitempty"`
	Players    []PlayerInfo    `json:"players"`
	Submitted  []string        `json:"submitted,omitempty"`
	Candidates []CandidateInfo `json:"candidates,omitempty"`
	CardPool   []string        `json:"card_pool,omitempty"`
	TakenAt    time.Time       `json:"taken_at"`
}
