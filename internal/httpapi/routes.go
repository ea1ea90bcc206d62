package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/showdown-bot/internal/feed"
	"github.com/DoyleJ11/showdown-bot/internal/ws"
)

func SetupRoutes(f *feed.Feed, stop ws.Stopper, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/status", Status(f))
	r.Post("/stop", Stop(stop))
	r.Get("/ws", ws.Handler(f, stop, log))
	return r
}
