// Package feed broadcasts what the bot is doing to any attached observers.
package feed

import (
	"context"
	"time"
)

type EventType string

const (
	EvtSessionChanged EventType = "SessionChanged"
	EvtMatchStarted   EventType = "MatchStarted"
	EvtDecision       EventType = "Decision"
	EvtMatchFinished  EventType = "MatchFinished"
)

// Outcome values carried by MatchFinished events.
const (
	OutcomeCompleted    = "completed"
	OutcomeStartTimeout = "start_timeout"
	OutcomeStopped      = "stopped"
)

type Matchup struct {
	Self           string  `json:"self"`
	SelfHealth     float64 `json:"self_health"`
	Opponent       string  `json:"opponent"`
	OpponentHealth float64 `json:"opponent_health"`

	SelfRemaining     int `json:"self_remaining"`
	OpponentRemaining int `json:"opponent_remaining"`
}

type Event struct {
	Type        EventType `json:"type"`
	At          time.Time `json:"at"`
	MatchID     string    `json:"match_id,omitempty"`
	Session     string    `json:"session,omitempty"`
	Turn        int       `json:"turn,omitempty"`
	Initial     bool      `json:"initial,omitempty"`
	Action      string    `json:"action,omitempty"`
	Probability float64   `json:"probability,omitempty"`
	Legal       []string  `json:"legal,omitempty"`
	Matchup     *Matchup  `json:"matchup,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Status is the running summary folded from every published event.
type Status struct {
	Session   string `json:"session"`
	MatchID   string `json:"match_id,omitempty"`
	Turn      int    `json:"turn"`
	Played    int    `json:"played"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	// StartTimeouts and Stopped count matches that ended early without
	// failing.
	StartTimeouts int    `json:"start_timeouts"`
	Stopped       int    `json:"stopped"`
	LastError     string `json:"last_error,omitempty"`
}

func (s Status) apply(ev Event) Status {
	switch ev.Type {
	case EvtSessionChanged:
		s.Session = ev.Session
	case EvtMatchStarted:
		s.MatchID = ev.MatchID
		s.Turn = 0
	case EvtDecision:
		s.Turn = ev.Turn
	case EvtMatchFinished:
		s.Played++
		switch ev.Outcome {
		case OutcomeCompleted:
			s.Completed++
		case OutcomeStartTimeout:
			s.StartTimeouts++
		case OutcomeStopped:
			s.Stopped++
		default:
			s.Failed++
			s.LastError = ev.Error
		}
		s.MatchID = ""
	}
	return s
}

type Msg interface{ isFeedMsg() }

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this observer wants to receive snapshots
}

func (Join) isFeedMsg() {}

type Leave struct{ ClientID string }

func (Leave) isFeedMsg() {}

type Publish struct{ Event Event }

func (Publish) isFeedMsg() {}

type Shutdown struct{}

func (Shutdown) isFeedMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isFeedMsg() {}

type Snapshot struct {
	Version int
	Status  Status
	Event   *Event // nil on the snapshot sent at join
}

type View struct {
	Version    int
	NumClients int
	Status     Status
}

type Feed struct {
	inbox   chan Msg
	status  Status
	version int
	clients map[string]chan Snapshot
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context) *Feed {
	ctx, cancel := context.WithCancel(parent)

	f := &Feed{
		inbox:   make(chan Msg, 64),
		clients: make(map[string]chan Snapshot),
		ctx:     ctx,
		cancel:  cancel,
	}

	go f.loop()
	return f
}

func (f *Feed) loop() {
	for {
		select {
		case <-f.ctx.Done():
			f.shutdown()
			return

		case m := <-f.inbox:
			switch msg := m.(type) {
			case Join:
				f.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- Snapshot{Version: f.version, Status: f.status}

			case Leave:
				if ch, ok := f.clients[msg.ClientID]; ok {
					close(ch)
					delete(f.clients, msg.ClientID)
				}

			case Publish:
				ev := msg.Event
				f.status = f.status.apply(ev)
				f.version++
				f.broadcast(Snapshot{Version: f.version, Status: f.status, Event: &ev})

			case GetState:
				msg.Reply <- View{
					Version:    f.version,
					NumClients: len(f.clients),
					Status:     f.status,
				}

			case Shutdown:
				f.shutdown()
				return
			}
		}
	}
}

func (f *Feed) shutdown() {
	for id, ch := range f.clients {
		close(ch)
		delete(f.clients, id)
	}
	f.cancel()
}

func (f *Feed) broadcast(snap Snapshot) {
	for id, ch := range f.clients {
		select {
		case ch <- snap:
		default:
			// slow observer
			close(ch)
			delete(f.clients, id)
		}
	}
}

func (f *Feed) Inbox() chan<- Msg { return f.inbox }

// Publish never blocks the caller. Events are dropped when the feed is
// backed up or gone.
func (f *Feed) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case f.inbox <- Publish{Event: ev}:
	case <-f.ctx.Done():
	default:
	}
}

// View asks the feed loop for its current state.
func (f *Feed) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case f.inbox <- GetState{Reply: reply}:
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-f.ctx.Done():
		return View{}, f.ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-f.ctx.Done():
		return View{}, f.ctx.Err()
	}
}
