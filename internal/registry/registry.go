// Package registry owns the table of live sessions. A single actor
// goroutine serializes creation, lookup, and removal, and a background
// sweep evicts sessions idle past the configured timeout. Evictions are
// observable on an event channel so an archiver can persist a final
// snapshot before the session is gone.
package registry

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/promptparty/promptparty-backend/internal/session"
	"github.com/promptparty/promptparty-backend/pkg/types"
)

var ErrSessionNotFound = errors.New("session not found")
var ErrCodeExhausted = errors.New("could not generate a unique session code")

const codeLen = 6
const codeAttempts = 10
const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type EventKind string

const (
	EventCreated EventKind = "created"
	EventEnded   EventKind = "ended"
	EventEvicted EventKind = "evicted"
)

// Event is the registry's lifecycle notification. Evicted and Ended carry
// the session's final snapshot for archival.
type Event struct {
	Kind     EventKind
	Code     string
	Snapshot *types.SessionSnapshot
	At       time.Time
}

type Msg interface{ isRegistryMsg() }

type CreateReply struct {
	Sess *session.Session
	Err  error
}

type Create struct {
	HostID     string
	MaxRounds  int
	MaxPlayers int
	Reply      chan CreateReply
}

type Get struct {
	Code  string
	Reply chan *session.Session
}

type Remove struct {
	Code  string
	Kind  EventKind
	Reply chan error
}

type ShutdownAll struct{}

type sweepNow struct{}

func (Create) isRegistryMsg()      {}
func (Get) isRegistryMsg()         {}
func (Remove) isRegistryMsg()      {}
func (ShutdownAll) isRegistryMsg() {}
func (sweepNow) isRegistryMsg()    {}

type Config struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	Session       session.Config
}

func DefaultConfig() Config {
	return Config{
		IdleTimeout:   30 * time.Minute,
		SweepInterval: 1 * time.Minute,
		Session:       session.DefaultConfig(),
	}
}

type Registry struct {
	inbox    chan Msg
	sessions map[string]*session.Session
	events   chan Event
	cfg      Config
	deps     session.Deps
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(parent context.Context, cfg Config, deps session.Deps, log *zap.Logger) *Registry {
	ctx, cancel := context.WithCancel(parent)
	deps.Config = cfg.Session
	deps.Logger = log
	r := &Registry{
		inbox:    make(chan Msg, 64),
		sessions: map[string]*session.Session{},
		events:   make(chan Event, 64),
		cfg:      cfg,
		deps:     deps,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go r.loop()
	go r.sweeper()
	return r
}

func (r *Registry) Inbox() chan<- Msg    { return r.inbox }
func (r *Registry) Events() <-chan Event { return r.events }

func (r *Registry) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Create:
				sess, err := r.create(msg.HostID, msg.MaxRounds, msg.MaxPlayers)
				msg.Reply <- CreateReply{Sess: sess, Err: err}

			case Get:
				msg.Reply <- r.sessions[msg.Code] // may be nil

			case Remove:
				msg.Reply <- r.remove(msg.Code, msg.Kind)

			case sweepNow:
				r.sweep()

			case ShutdownAll:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Registry) shutdown() {
	for code, sess := range r.sessions {
		sess.Shutdown()
		delete(r.sessions, code)
	}
	r.cancel()
}

func (r *Registry) create(hostID string, maxRounds, maxPlayers int) (*session.Session, error) {
	code, err := r.uniqueCode()
	if err != nil {
		return nil, err
	}
	sess, err := session.New(r.ctx, code, hostID, maxRounds, maxPlayers, r.deps)
	if err != nil {
		return nil, err
	}
	r.sessions[code] = sess
	r.log.Info("session created",
		zap.String("session", code),
		zap.Int("max_rounds", maxRounds),
		zap.Int("max_players", maxPlayers))
	r.emit(Event{Kind: EventCreated, Code: code, At: time.Now()})
	return sess, nil
}

func (r *Registry) remove(code string, kind EventKind) error {
	sess, ok := r.sessions[code]
	if !ok {
		return ErrSessionNotFound
	}
	snap := r.finalSnapshot(sess)
	sess.Shutdown()
	delete(r.sessions, code)
	r.log.Info("session removed", zap.String("session", code), zap.String("reason", string(kind)))
	r.emit(Event{Kind: kind, Code: code, Snapshot: snap, At: time.Now()})
	return nil
}

func (r *Registry) sweeper() {
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			select {
			case r.inbox <- sweepNow{}:
			case <-r.ctx.Done():
				return
			}
		}
	}
}

func (r *Registry) sweep() {
	cutoff := time.Now().Add(-r.cfg.IdleTimeout)
	for code, sess := range r.sessions {
		if sess.LastActive().Before(cutoff) {
			r.log.Info("evicting idle session", zap.String("session", code))
			_ = r.remove(code, EventEvicted)
		}
	}
}

// finalSnapshot grabs the session's last state for the eviction event. A
// wedged session just loses its snapshot; removal proceeds regardless.
func (r *Registry) finalSnapshot(sess *session.Session) *types.SessionSnapshot {
	ctx, cancel := context.WithTimeout(r.ctx, 500*time.Millisecond)
	defer cancel()
	snap, err := sess.Snapshot(ctx)
	if err != nil {
		r.log.Warn("no final snapshot", zap.String("session", sess.Code()), zap.Error(err))
		return nil
	}
	return &snap
}

func (r *Registry) emit(ev Event) {
	select {
	case r.events <- ev:
	default:
		r.log.Warn("event channel full, dropping", zap.String("kind", string(ev.Kind)))
	}
}

func (r *Registry) uniqueCode() (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := generateCode()
		if err != nil {
			return "", err
		}
		if _, taken := r.sessions[code]; !taken {
			return code, nil
		}
		r.log.Warn("session code collision, regenerating", zap.String("code", code))
	}
	return "", ErrCodeExhausted
}

func generateCode() (string, error) {
	code := make([]byte, codeLen)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[n.Int64()]
	}
	return string(code), nil
}

// --- request/reply wrappers ---

func (r *Registry) CreateSession(ctx context.Context, hostID string, maxRounds, maxPlayers int) (*session.Session, error) {
	reply := make(chan CreateReply, 1)
	select {
	case r.inbox <- Create{HostID: hostID, MaxRounds: maxRounds, MaxPlayers: maxPlayers, Reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-reply:
		return res.Sess, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetSession looks up a live session by join code.
func (r *Registry) GetSession(ctx context.Context, code string) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	select {
	case r.inbox <- Get{Code: code, Reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case sess := <-reply:
		if sess == nil {
			return nil, ErrSessionNotFound
		}
		return sess, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RemoveSession ends a session explicitly, emitting its final snapshot.
func (r *Registry) RemoveSession(ctx context.Context, code string, kind EventKind) error {
	reply := make(chan error, 1)
	select {
	case r.inbox <- Remove{Code: code, Kind: kind, Reply: reply}:
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

func (r *Registry) Shutdown() { r.cancel() }
