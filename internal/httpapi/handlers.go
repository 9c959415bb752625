package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/promptparty/promptparty-backend/internal/engine"
	"github.com/promptparty/promptparty-backend/internal/registry"
	"github.com/promptparty/promptparty-backend/pkg/types"
)

// statusFor maps the core's typed failures onto HTTP status codes. This
// is the only place the transport interprets error identity.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrSessionNotFound),
		errors.Is(err, engine.ErrPlayerNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidConfig):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrInvalidSelectionShape):
		return http.StatusBadRequest
	case errors.Is(err, registry.ErrCodeExhausted):
		return http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrSessionFull),
		errors.Is(err, engine.ErrAlreadyStarted),
		errors.Is(err, engine.ErrNotEnoughPlayers),
		errors.Is(err, engine.ErrPlayerNotInSession),
		errors.Is(err, engine.ErrJudgeCannotSubmit),
		errors.Is(err, engine.ErrNotReady),
		errors.Is(err, engine.ErrUnknownCandidate),
		errors.Is(err, engine.ErrDuplicateAssignment),
		errors.Is(err, engine.ErrIncompleteRanking),
		errors.Is(err, engine.ErrAlreadyFinalized),
		errors.Is(err, engine.ErrNotJudge),
		errors.Is(err, engine.ErrNotHost),
		errors.Is(err, engine.ErrWrongPhase),
		errors.Is(err, engine.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), types.ErrorResponse{Error: err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "bad json"})
		return false
	}
	return true
}

func CreateSession(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateSessionRequest
		if !decode(w, r, &req) {
			return
		}
		hostID := uuid.NewString()
		sess, err := reg.CreateSession(r.Context(), hostID, req.MaxRounds, req.MaxPlayers)
		if err != nil {
			writeErr(w, err)
			return
		}
		if _, err := sess.Join(r.Context(), engine.Player{
			ID: hostID, Name: req.HostName, Avatar: req.Avatar, Connected: true,
		}); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, types.CreateSessionResponse{
			Code:     sess.Code(),
			PlayerID: hostID,
		})
	}
}

func JoinSession(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.JoinRequest
		if !decode(w, r, &req) {
			return
		}
		sess, err := reg.GetSession(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeErr(w, err)
			return
		}
		playerID := req.PlayerID
		if playerID == "" {
			playerID = uuid.NewString()
		}
		snap, err := sess.Join(r.Context(), engine.Player{
			ID: playerID, Name: req.Name, Avatar: req.Avatar, Connected: true,
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.JoinResponse{PlayerID: playerID, Snapshot: snap})
	}
}

func StartGame(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.StartRequest
		if !decode(w, r, &req) {
			return
		}
		sess, err := reg.GetSession(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeErr(w, err)
			return
		}
		if err := sess.Start(r.Context(), req.PlayerID); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func SubmitSelection(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.SubmitSelectionRequest
		if !decode(w, r, &req) {
			return
		}
		sess, err := reg.GetSession(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeErr(w, err)
			return
		}
		if err := sess.SubmitSelection(r.Context(), req.PlayerID, req.Cards); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func MarkLoaded(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.MarkLoadedRequest
		if !decode(w, r, &req) {
			return
		}
		sess, err := reg.GetSession(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeErr(w, err)
			return
		}
		if err := sess.MarkLoaded(r.Context(), req.PlayerID, req.CandidateID); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func SubmitRanking(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.RankRequest
		if !decode(w, r, &req) {
			return
		}
		slot, ok := parseSlot(req.Slot)
		if !ok {
			writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "slot must be first or second"})
			return
		}
		sess, err := reg.GetSession(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeErr(w, err)
			return
		}
		if err := sess.Rank(r.Context(), req.PlayerID, slot, req.CandidateID); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func FinalizeRanking(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.FinalizeRequest
		if !decode(w, r, &req) {
			return
		}
		sess, err := reg.GetSession(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeErr(w, err)
			return
		}
		if err := sess.FinalizeRanking(r.Context(), req.PlayerID); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func GetSnapshot(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := reg.GetSession(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeErr(w, err)
			return
		}
		snap, err := sess.Snapshot(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// EndSession tears a session down on the host's request; the final
// snapshot still flows to the registry's event channel.
func EndSession(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		sess, err := reg.GetSession(r.Context(), code)
		if err != nil {
			writeErr(w, err)
			return
		}
		snap, err := sess.Snapshot(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		if snap.HostID != r.URL.Query().Get("player") {
			writeErr(w, engine.ErrNotHost)
			return
		}
		if err := reg.RemoveSession(r.Context(), code, registry.EventEnded); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func parseSlot(s string) (engine.RankSlot, bool) {
	switch s {
	case "first":
		return engine.SlotFirst, true
	case "second":
		return engine.SlotSecond, true
	default:
		return "", false
	}
}
