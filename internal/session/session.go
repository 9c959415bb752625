// Package session runs one game session as an actor: a buffered inbox of
// typed messages drained by a single goroutine that owns all mutable
// state. Timer expiries and image-batch completions re-enter the loop as
// messages, so no two mutations of the same session are ever in flight.
package session

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/promptparty/promptparty-backend/internal/engine"
	"github.com/promptparty/promptparty-backend/internal/imagegen"
	"github.com/promptparty/promptparty-backend/internal/timer"
	"github.com/promptparty/promptparty-backend/pkg/types"
)

var ErrSessionClosed = errors.New("session closed")

type Config struct {
	IntroDelay      time.Duration
	SelectionWindow time.Duration
	ResultsDelay    time.Duration
	ArtStyle        string
}

func DefaultConfig() Config {
	return Config{
		IntroDelay:      5 * time.Second,
		SelectionWindow: 35 * time.Second,
		ResultsDelay:    4 * time.Second,
		ArtStyle:        "vivid cartoon",
	}
}

// Generator is the slice of the image pipeline the session needs.
type Generator interface {
	Enqueue(ctx context.Context, reqs []imagegen.Request, done func([]engine.GeneratedImage))
}

// ContentProvider supplies the round's sentence template and card pool.
type ContentProvider interface {
	DrawTemplate() engine.Sentence
	DealCards(n int) []string
}

type Session struct {
	inbox      chan Msg
	state      engine.State
	epoch      uint64
	subs       map[string]chan types.Event
	cardPool   []string
	timers     *timer.Scheduler
	gen        Generator
	deck       ContentProvider
	cfg        Config
	rng        *rand.Rand
	log        *zap.Logger
	lastActive atomic.Int64
	ctx        context.Context
	cancel     context.CancelFunc
}

type Deps struct {
	Timers *timer.Scheduler
	Gen    Generator
	Deck   ContentProvider
	Config Config
	Logger *zap.Logger
	Seed   int64
}

func New(parent context.Context, code, hostID string, maxRounds, maxPlayers int, deps Deps) (*Session, error) {
	state, err := engine.NewState(code, hostID, maxRounds, maxPlayers)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(parent)

	seed := deps.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &Session{
		inbox:  make(chan Msg, 64),
		state:  state,
		subs:   map[string]chan types.Event{},
		timers: deps.Timers,
		gen:    deps.Gen,
		deck:   deps.Deck,
		cfg:    deps.Config,
		rng:    rand.New(rand.NewSource(seed)),
		log:    deps.Logger.With(zap.String("session", code)),
		ctx:    ctx,
		cancel: cancel,
	}
	s.touch()

	go s.loop()
	return s, nil
}

func (s *Session) Code() string      { return s.state.Code }
func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Done is closed once the session's loop has stopped; senders use it to
// avoid blocking on a dead inbox.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// LastActive is read by the registry sweep without entering the loop.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				err := s.handleJoin(msg.Player)
				msg.Reply <- JoinReply{Snapshot: s.snapshot(), Err: err}

			case Leave:
				msg.Reply <- s.handleLeave(msg.PlayerID)

			case SetConnected:
				s.handleSetConnected(msg.PlayerID, msg.Connected)

			case Start:
				msg.Reply <- s.handleStart(msg.PlayerID)

			case Submit:
				msg.Reply <- s.handleSubmit(msg.PlayerID, msg.Cards)

			case MarkLoaded:
				msg.Reply <- s.handleMarkLoaded(msg.PlayerID, msg.CandidateID)

			case Rank:
				msg.Reply <- s.handleRank(msg.PlayerID, msg.Slot, msg.CandidateID)

			case Finalize:
				msg.Reply <- s.handleFinalize(msg.PlayerID)

			case Subscribe:
				s.subs[msg.ClientID] = msg.Outbox
				s.send(msg.ClientID, msg.Outbox, types.Event{Kind: types.EventSnapshot, Snapshot: snapPtr(s.snapshot())})

			case Unsubscribe:
				delete(s.subs, msg.ClientID)

			case GetSnapshot:
				msg.Reply <- s.snapshot()

			case timerFired:
				s.handleTimerFired(msg.epoch)

			case generationDone:
				s.handleGenerationDone(msg.round, msg.results)

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) shutdown() {
	s.timers.Cancel(s.state.Code)
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.cancel()
}

// Shutdown stops the loop; safe to call more than once.
func (s *Session) Shutdown() { s.cancel() }

func (s *Session) broadcast(ev types.Event) {
	for id, ch := range s.subs {
		s.send(id, ch, ev)
	}
}

func (s *Session) send(id string, ch chan types.Event, ev types.Event) {
	select {
	case ch <- ev:
	default:
		// Slow or dead subscriber; drop it rather than stall the loop.
		close(ch)
		delete(s.subs, id)
		s.log.Warn("dropped slow subscriber", zap.String("client", id))
	}
}

func snapPtr(s types.SessionSnapshot) *types.SessionSnapshot { return &s }

func (s *Session) snapshot() types.SessionSnapshot {
	snap := types.SessionSnapshot{
		Code:       s.state.Code,
		Phase:      string(s.state.Phase),
		Round:      s.state.Round,
		MaxRounds:  s.state.MaxRounds,
		MaxPlayers: s.state.MaxPlayers,
		HostID:     s.state.HostID,
		JudgeID:    s.state.JudgeID,
		Sentence:   s.state.Sentence.Text,
		Blanks:     s.state.Sentence.Blanks,
		CardPool:   s.cardPool,
		TakenAt:    time.Now(),
	}
	for _, p := range s.state.Players {
		snap.Players = append(snap.Players, types.PlayerInfo{
			ID: p.ID, Name: p.Name, Avatar: p.Avatar,
			Score: p.Score, Connected: p.Connected, IsHost: p.IsHost,
		})
	}
	for id := range s.state.Selections {
		snap.Submitted = append(snap.Submitted, id)
	}
	if s.state.Ranking != nil {
		snap.Candidates = candidateInfos(s.state.Ranking.Candidates())
	}
	return snap
}

func candidateInfos(images []engine.GeneratedImage) []types.CandidateInfo {
	out := make([]types.CandidateInfo, 0, len(images))
	for _, img := range images {
		out = append(out, types.CandidateInfo{
			PlayerID:    img.PlayerID,
			ImageRef:    img.ImageRef,
			Placeholder: img.Placeholder,
			Reason:      img.Reason,
		})
	}
	return out
}

// --- request/reply wrappers used by the transport layer and tests ---

func (s *Session) request(ctx context.Context, m Msg, reply <-chan error) error {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) Join(ctx context.Context, p engine.Player) (types.SessionSnapshot, error) {
	reply := make(chan JoinReply, 1)
	select {
	case s.inbox <- Join{Player: p, Reply: reply}:
	case <-s.ctx.Done():
		return types.SessionSnapshot{}, ErrSessionClosed
	case <-ctx.Done():
		return types.SessionSnapshot{}, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.Snapshot, r.Err
	case <-ctx.Done():
		return types.SessionSnapshot{}, ctx.Err()
	}
}

func (s *Session) Leave(ctx context.Context, playerID string) error {
	reply := make(chan error, 1)
	return s.request(ctx, Leave{PlayerID: playerID, Reply: reply}, reply)
}

func (s *Session) Start(ctx context.Context, playerID string) error {
	reply := make(chan error, 1)
	return s.request(ctx, Start{PlayerID: playerID, Reply: reply}, reply)
}

func (s *Session) SubmitSelection(ctx context.Context, playerID string, cards []string) error {
	reply := make(chan error, 1)
	return s.request(ctx, Submit{PlayerID: playerID, Cards: cards, Reply: reply}, reply)
}

func (s *Session) MarkLoaded(ctx context.Context, playerID, candidateID string) error {
	reply := make(chan error, 1)
	return s.request(ctx, MarkLoaded{PlayerID: playerID, CandidateID: candidateID, Reply: reply}, reply)
}

func (s *Session) Rank(ctx context.Context, playerID string, slot engine.RankSlot, candidateID string) error {
	reply := make(chan error, 1)
	return s.request(ctx, Rank{PlayerID: playerID, Slot: slot, CandidateID: candidateID, Reply: reply}, reply)
}

func (s *Session) FinalizeRanking(ctx context.Context, playerID string) error {
	reply := make(chan error, 1)
	return s.request(ctx, Finalize{PlayerID: playerID, Reply: reply}, reply)
}

func (s *Session) Snapshot(ctx context.Context) (types.SessionSnapshot, error) {
	reply := make(chan types.SessionSnapshot, 1)
	select {
	case s.inbox <- GetSnapshot{Reply: reply}:
	case <-s.ctx.Done():
		return types.SessionSnapshot{}, ErrSessionClosed
	case <-ctx.Done():
		return types.SessionSnapshot{}, ctx.Err()
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return types.SessionSnapshot{}, ctx.Err()
	}
}
