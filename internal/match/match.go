package match

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/showdown-bot/internal/feed"
)

var ErrMatchStartTimeout = errors.New("no opponent found before search timeout")
var ErrSearchUnavailable = errors.New("search button not rendered")
var ErrStopRequested = errors.New("stop requested")

type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseSearching     Phase = "searching"
	PhaseLeadSelection Phase = "lead_selection"
	PhaseTurnLoop      Phase = "turn_loop"
	PhaseCompleting    Phase = "completing"
	PhaseDone          Phase = "done"
)

type Outcome string

const (
	OutcomeCompleted    Outcome = feed.OutcomeCompleted
	OutcomeStartTimeout Outcome = feed.OutcomeStartTimeout
	OutcomeStopped      Outcome = feed.OutcomeStopped
	OutcomeFailed       Outcome = "failed"
)

func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeCompleted
	case errors.Is(err, ErrMatchStartTimeout):
		return OutcomeStartTimeout
	case errors.Is(err, ErrStopRequested):
		return OutcomeStopped
	default:
		return OutcomeFailed
	}
}

type Result struct {
	MatchID   string
	Outcome   Outcome
	Decisions int
	Skipped   int // cycles that ended without executing an action
	// descriptors read during this match that matched no known shape
	ParseFallbacks int
	URL            string
	Started        time.Time
	Finished       time.Time
}

// Timing bounds every wait the controller makes.
type Timing struct {
	SearchButton  time.Duration
	Search        time.Duration
	TurnPoll      time.Duration
	Effect        time.Duration
	Overlay       time.Duration
	PollInterval  time.Duration
	MaxDismissals int
}

func DefaultTiming() Timing {
	return Timing{
		SearchButton:  5 * time.Second,
		Search:        60 * time.Second,
		TurnPoll:      time.Second,
		Effect:        10 * time.Second,
		Overlay:       60 * time.Second,
		PollInterval:  250 * time.Millisecond,
		MaxDismissals: 20,
	}
}

// Publisher receives controller events. feed.Feed satisfies it.
type Publisher interface {
	Publish(ev feed.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(feed.Event) {}

type Option func(*Controller)

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

func WithTiming(t Timing) Option {
	return func(c *Controller) { c.timing = t }
}

func WithPublisher(p Publisher) Option {
	return func(c *Controller) {
		if p != nil {
			c.feed = p
		}
	}
}
