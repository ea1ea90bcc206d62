package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/showdown-bot/internal/feed"
	"github.com/DoyleJ11/showdown-bot/internal/types"
)

// Stopper is told when an observer asks the bot to stop.
type Stopper interface {
	RequestStop()
}

// Handler streams feed snapshots to one observer per connection and accepts
// Stop and GetStatus messages from it.
func Handler(f *feed.Feed, stop Stopper, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan feed.Snapshot, 8)
		clientID := uuid.NewString()
		log := log.With(zap.String("observer", clientID))

		f.Inbox() <- feed.Join{ClientID: clientID, Outbox: out}
		defer func() { f.Inbox() <- feed.Leave{ClientID: clientID} }()
		log.Debug("observer joined")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				write(writeCtx, conn, types.FromSnapshot(snap))
			}
			// the feed dropped us
			writeCancel()
			conn.Close(websocket.StatusGoingAway, "feed closed")
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(writeCtx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Debug("observer left")
				default:
					log.Debug("observer read failed", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				write(r.Context(), conn, types.ErrorMessage("bad json"))
				continue
			}

			switch cm.Type {
			case "Stop":
				log.Info("stop requested by observer")
				stop.RequestStop()
			case "GetStatus":
				v, err := f.View(r.Context())
				if err != nil {
					write(r.Context(), conn, types.ErrorMessage("feed unavailable"))
					continue
				}
				write(r.Context(), conn, types.FromView(v))
			default:
				write(r.Context(), conn, types.ErrorMessage("unknown type"))
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) {
	payload, _ := json.Marshal(msg)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = conn.Write(ctx, websocket.MessageText, payload)
}
