package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/DoyleJ11/showdown-bot/internal/feed"
	"github.com/DoyleJ11/showdown-bot/internal/types"
	"github.com/DoyleJ11/showdown-bot/internal/ws"
)

func Status(f *feed.Feed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := f.View(r.Context())
		if err != nil {
			http.Error(w, "feed unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(types.FromView(v))
	}
}

// Stop asks the runner to finish after the current decision cycle.
func Stop(s ws.Stopper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.RequestStop()
		w.WriteHeader(http.StatusAccepted)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
