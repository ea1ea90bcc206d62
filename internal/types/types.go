package types

import "github.com/DoyleJ11/showdown-bot/internal/feed"

// ClientMessage is what an observer may send over the websocket.
type ClientMessage struct {
	Type string `json:"type"` // "Stop" | "GetStatus"
}

type ServerMessage struct {
	Type    string       `json:"type"` // "Snapshot" | "Status" | "Error"
	Version int          `json:"version,omitempty"`
	Status  *feed.Status `json:"status,omitempty"`
	Event   *feed.Event  `json:"event,omitempty"`
	Clients int          `json:"clients,omitempty"`
	Error   string       `json:"error,omitempty"`
}

func FromSnapshot(s feed.Snapshot) ServerMessage {
	return ServerMessage{Type: "Snapshot", Version: s.Version, Status: &s.Status, Event: s.Event}
}

func FromView(v feed.View) ServerMessage {
	return ServerMessage{Type: "Status", Version: v.Version, Status: &v.Status, Clients: v.NumClients}
}

func ErrorMessage(msg string) ServerMessage {
	return ServerMessage{Type: "Error", Error: msg}
}
