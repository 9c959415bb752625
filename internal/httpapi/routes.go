package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/promptparty/promptparty-backend/internal/registry"
	"github.com/promptparty/promptparty-backend/internal/ws"
)

func SetupRoutes(reg *registry.Registry, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Post("/sessions", CreateSession(reg))
	r.Get("/sessions/{code}", GetSnapshot(reg))
	r.Delete("/sessions/{code}", EndSession(reg))
	r.Post("/sessions/{code}/join", JoinSession(reg))
	r.Post("/sessions/{code}/start", StartGame(reg))
	r.Post("/sessions/{code}/selections", SubmitSelection(reg))
	r.Post("/sessions/{code}/ranking/loaded", MarkLoaded(reg))
	r.Post("/sessions/{code}/ranking", SubmitRanking(reg))
	r.Post("/sessions/{code}/ranking/finalize", FinalizeRanking(reg))
	r.Get("/ws", ws.Handler(reg, log))
	r.Get("/healthz", Healthz)
	return r
}
