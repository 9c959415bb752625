package session

import (
	"github.com/promptparty/promptparty-backend/internal/engine"
	"github.com/promptparty/promptparty-backend/pkg/types"
)

// Msg is the tagged union of everything that can enter a session's inbox.
// Every message is handled as one discrete, non-preemptible step against
// the session state.
type Msg interface{ isSessionMsg() }

type JoinReply struct {
	Snapshot types.SessionSnapshot
	Err      error
}

type Join struct {
	Player engine.Player
	Reply  chan JoinReply
}

type Leave struct {
	PlayerID string
	Reply    chan error
}

// SetConnected flips a player's liveness flag without removing them; the
// websocket layer sends it on attach/detach.
type SetConnected struct {
	PlayerID  string
	Connected bool
}

type Start struct {
	PlayerID string
	Reply    chan error
}

type Submit struct {
	PlayerID string
	Cards    []string
	Reply    chan error
}

type MarkLoaded struct {
	PlayerID    string
	CandidateID string
	Reply       chan error
}

type Rank struct {
	PlayerID    string
	Slot        engine.RankSlot
	CandidateID string
	Reply       chan error
}

type Finalize struct {
	PlayerID string
	Reply    chan error
}

type Subscribe struct {
	ClientID string
	Outbox   chan types.Event
}

type Unsubscribe struct{ ClientID string }

type GetSnapshot struct {
	Reply chan types.SessionSnapshot
}

type Shutdown struct{}

// timerFired re-enters the loop when the phase countdown expires. The
// epoch pins it to the phase that armed it; a stale fire is ignored.
type timerFired struct{ epoch uint64 }

// generationDone delivers a settled image batch back into the loop.
type generationDone struct {
	round   int
	results []engine.GeneratedImage
}

func (Join) isSessionMsg()           {}
func (Leave) isSessionMsg()          {}
func (SetConnected) isSessionMsg()   {}
func (Start) isSessionMsg()          {}
func (Submit) isSessionMsg()         {}
func (MarkLoaded) isSessionMsg()     {}
func (Rank) isSessionMsg()           {}
func (Finalize) isSessionMsg()       {}
func (Subscribe) isSessionMsg()      {}
func (Unsubscribe) isSessionMsg()    {}
func (GetSnapshot) isSessionMsg()    {}
func (Shutdown) isSessionMsg()       {}
func (timerFired) isSessionMsg()     {}
func (generationDone) isSessionMsg() {}
