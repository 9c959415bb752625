package types

type EventKind string

const (
	EventSnapshot           EventKind = "snapshot"
	EventPlayerCountChanged EventKind = "player_count_changed"
	EventHostDisconnected   EventKind = "host_disconnected"
	EventPhaseChanged       EventKind = "phase_changed"
	EventSubmissionProgress EventKind = "submission_progress"
	EventGenerationStarted  EventKind = "generation_started"
	EventGenerationReady    EventKind = "generation_ready"
	EventRoundResults       EventKind = "round_results"
	EventGameCompleted      EventKind = "game_completed"
)

type PhasePayload struct {
	Phase      string   `json:"phase"`
	Round      int      `json:"round"`
	JudgeID    string   `json:"judge_id,omitempty"`
	Sentence   string   `json:"sentence,omitempty"`
	Blanks     int      `json:"blanks,omitempty"`
	CardPool   []string `json:"card_pool,omitempty"`
	DeadlineMs int64    `json:"deadline_ms,omitempty"`
}

type ProgressPayload struct {
	Submitted int `json:"submitted"`
	Expected  int `json:"expected"`
}

type PlayersPayload struct {
	Count   int          `json:"count"`
	Players []PlayerInfo `json:"players"`
}

type ImagesPayload struct {
	Round      int             `json:"round"`
	Candidates []CandidateInfo `json:"candidates,omitempty"`
	Pending    int             `json:"pending,omitempty"`
}

type ResultsPayload struct {
	Round     int        `json:"round"`
	FirstID   string     `json:"first_id"`
	SecondID  string     `json:"second_id"`
	Voided    bool       `json:"voided,omitempty"`
	Standings []Standing `json:"standings"`
}

// Event is the envelope for every outbound notification. Kind selects
// which payload pointer is set.
type Event struct {
	Kind     EventKind        `json:"kind"`
	Snapshot *SessionSnapshot `json:"snapshot,omitempty"`
	Players  *PlayersPayload  `json:"players,omitempty"`
	Phase    *PhasePayload    `json:"phase,omitempty"`
	Progress *ProgressPayload `json:"progress,omitempty"`
	Images   *ImagesPayload   `json:"images,omitempty"`
	Results  *ResultsPayload  `json:"results,omitempty"`
}
