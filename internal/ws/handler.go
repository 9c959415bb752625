// Package ws serves the outbound notification feed: each connected
// client subscribes to its session's event stream and receives every
// lifecycle broadcast as a JSON envelope.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/promptparty/promptparty-backend/internal/registry"
	"github.com/promptparty/promptparty-backend/internal/session"
	"github.com/promptparty/promptparty-backend/pkg/types"
)

func Handler(reg *registry.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		playerID := r.URL.Query().Get("player")

		sess, err := reg.GetSession(r.Context(), code)
		if err != nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan types.Event, 32)
		clientID := uuid.NewString()

		// post drops the message if the session's loop has stopped.
		post := func(m session.Msg) {
			select {
			case sess.Inbox() <- m:
			case <-sess.Done():
			}
		}

		post(session.Subscribe{ClientID: clientID, Outbox: out})
		if playerID != "" {
			post(session.SetConnected{PlayerID: playerID, Connected: true})
		}
		defer func() {
			post(session.Unsubscribe{ClientID: clientID})
			if playerID != "" {
				post(session.SetConnected{PlayerID: playerID, Connected: false})
			}
		}()

		// Writer goroutine: drain the event feed until the session
		// closes it or the connection dies.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				var ev types.Event
				select {
				case e, ok := <-out:
					if !ok {
						return
					}
					ev = e
				case <-sess.Done():
					return
				}
				payload, err := json.Marshal(ev)
				if err != nil {
					log.Error("marshal event", zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				werr := conn.Write(ctx, websocket.MessageText, payload)
				cancel()
				if werr != nil {
					return
				}
			}
		}()

		// Reader loop: game commands travel over HTTP, so reads exist
		// only to notice disconnects and absorb keep-alives.
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}
		}
	}
}
