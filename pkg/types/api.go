package types

// Request/response bodies for the HTTP operations.

type CreateSessionRequest struct {
	HostName   string `json:"host_name"`
	Avatar     string `json:"avatar,omitempty"`
	MaxRounds  int    `json:"max_rounds"`
	MaxPlayers int    `json:"max_players"`
}

type CreateSessionResponse struct {
	Code     string `json:"code"`
	PlayerID string `json:"player_id"`
}

type JoinRequest struct {
	// PlayerID is optional; supplying a previous one makes the join
	// idempotent on reconnect.
	PlayerID string `json:"player_id,omitempty"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
}

type JoinResponse struct {
	PlayerID string          `json:"player_id"`
	Snapshot SessionSnapshot `json:"snapshot"`
}

type StartRequest struct {
	PlayerID string `json:"player_id"`
}

type SubmitSelectionRequest struct {
	PlayerID string   `json:"player_id"`
	Cards    []string `json:"cards"`
}

type MarkLoadedRequest struct {
	PlayerID    string `json:"player_id"`
	CandidateID string `json:"candidate_id"`
}

type RankRequest struct {
	PlayerID    string `json:"player_id"`
	Slot        string `json:"slot"` // "first" | "second"
	CandidateID string `json:"candidate_id"`
}

type FinalizeRequest struct {
	PlayerID string `json:"player_id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
