package match

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/showdown-bot/internal/battle"
	"github.com/DoyleJ11/showdown-bot/internal/executor"
	"github.com/DoyleJ11/showdown-bot/internal/feed"
	"github.com/DoyleJ11/showdown-bot/internal/parser"
	"github.com/DoyleJ11/showdown-bot/internal/scanner"
	"github.com/DoyleJ11/showdown-bot/internal/session"
	"github.com/DoyleJ11/showdown-bot/internal/ui"
)

// Controller plays one match at a time against the rendered client.
type Controller struct {
	ui      ui.Adapter
	session *session.Machine
	parser  *parser.Parser
	reader  *parser.SnapshotReader
	scanner *scanner.Scanner
	exec    *executor.Executor
	policy  battle.Policy
	timing  Timing
	log     *zap.Logger
	feed    Publisher
	stop    atomic.Bool

	// reset at the start of every match
	matchID    string
	phase      Phase
	clockArmed bool
	res        *Result
}

func NewController(a ui.Adapter, sess *session.Machine, p *parser.Parser, policy battle.Policy, opts ...Option) *Controller {
	c := &Controller{
		ui:      a,
		session: sess,
		parser:  p,
		policy:  policy,
		timing:  DefaultTiming(),
		log:     zap.NewNop(),
		feed:    nopPublisher{},
		phase:   PhaseIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.reader = parser.NewSnapshotReader(a, p, c.log.Named("reader"))
	c.scanner = scanner.New(a, c.log.Named("scanner"))
	c.exec = executor.New(a, c.log.Named("executor"))
	return c
}

// RequestStop asks the controller to stop before its next decision cycle.
func (c *Controller) RequestStop()        { c.stop.Store(true) }
func (c *Controller) StopRequested() bool { return c.stop.Load() }

func (c *Controller) Phase() Phase { return c.phase }

// Play runs one match from search to the return to the home page.
func (c *Controller) Play(ctx context.Context) (Result, error) {
	c.matchID = uuid.NewString()
	c.clockArmed = false
	res := Result{MatchID: c.matchID, Started: time.Now()}
	c.res = &res
	log := c.log.With(zap.String("match_id", c.matchID))
	fallbacks := c.parser.Fallbacks()

	err := c.play(ctx, log)

	res.Finished = time.Now()
	res.ParseFallbacks = int(c.parser.Fallbacks() - fallbacks)
	res.Outcome = outcomeOf(err)
	c.res = nil
	ev := feed.Event{
		Type:    feed.EvtMatchFinished,
		MatchID: c.matchID,
		Turn:    res.Decisions,
		Outcome: string(res.Outcome),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	c.feed.Publish(ev)
	log.Info("match finished",
		zap.String("outcome", string(res.Outcome)),
		zap.Int("decisions", res.Decisions),
		zap.Int("skipped", res.Skipped),
		zap.Int("parse_fallbacks", res.ParseFallbacks),
		zap.Duration("elapsed", res.Finished.Sub(res.Started)),
		zap.Error(err),
	)
	return res, err
}

func (c *Controller) play(ctx context.Context, log *zap.Logger) error {
	c.phase = PhaseSearching
	if err := c.session.Do(session.OpSearch, func() error { return c.search(ctx) }); err != nil {
		return err
	}

	controls, ok := c.ui.WaitUntilReady(ctx, ui.SelControls, c.timing.Search)
	if !ok {
		log.Warn("match did not start", zap.Duration("waited", c.timing.Search))
		if err := c.session.Do(session.OpCancelSearch, func() error { return c.cancelSearch(ctx) }); err != nil {
			return err
		}
		c.phase = PhaseIdle
		return ErrMatchStartTimeout
	}
	if err := c.session.Do(session.OpBeginMatch, func() error { return nil }); err != nil {
		return err
	}
	if b, ok := c.ui.(interface {
		Location(context.Context) (string, error)
	}); ok {
		c.res.URL, _ = b.Location(ctx)
	}
	log.Info("match started", zap.String("url", c.res.URL))
	c.feed.Publish(feed.Event{Type: feed.EvtMatchStarted, MatchID: c.matchID})

	if c.leadSelection(ctx, controls) {
		c.phase = PhaseLeadSelection
		if err := c.session.Do(session.OpSelectLead, func() error {
			_, err := c.cycle(ctx, log, true)
			return err
		}); err != nil {
			return err
		}
	}

	c.phase = PhaseTurnLoop
	for !c.completed(ctx) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.StopRequested() {
			return ErrStopRequested
		}

		if _, ok := c.ui.WaitUntilReady(ctx, ui.SelSwitchMenu, c.timing.TurnPoll); !ok {
			if !c.clockArmed && !c.completed(ctx) {
				if err := c.armClock(ctx, log); err != nil {
					return err
				}
			}
			continue
		}
		if c.completed(ctx) {
			break
		}
		var acted bool
		if err := c.session.Do(session.OpTakeTurn, func() error {
			var err error
			acted, err = c.cycle(ctx, log, false)
			return err
		}); err != nil {
			return err
		}
		if !acted {
			c.pause(ctx)
		}
	}

	c.phase = PhaseCompleting
	log.Info("completion marker seen")
	if err := c.session.Do(session.OpFinishMatch, func() error { return c.finish(ctx, log) }); err != nil {
		return err
	}
	c.phase = PhaseDone
	return nil
}

func (c *Controller) search(ctx context.Context) error {
	if group, ok := c.ui.FindOne(ctx, ui.SelSearchGroup, nil); ok {
		if err := c.ui.Click(ctx, group); err != nil {
			c.log.Debug("search group already expanded", zap.Error(err))
		}
	}
	btn, ok := c.ui.WaitUntilReady(ctx, ui.SelSearch, c.timing.SearchButton)
	if !ok {
		return ErrSearchUnavailable
	}
	return c.ui.Click(ctx, btn)
}

func (c *Controller) cancelSearch(ctx context.Context) error {
	btn, ok := c.ui.FindOne(ctx, ui.SelCancelSearch, nil)
	if !ok {
		return nil
	}
	return c.ui.Click(ctx, btn)
}

func (c *Controller) leadSelection(ctx context.Context, controls ui.Element) bool {
	prompt, ok := c.ui.FindOne(ctx, ui.SelWhatDo, controls)
	if !ok {
		return false
	}
	text, err := c.ui.ReadText(ctx, prompt)
	return err == nil && strings.TrimSpace(text) == ui.LeadSelectionText
}

func (c *Controller) completed(ctx context.Context) bool {
	_, ok := c.ui.FindOne(ctx, ui.SelSaveReplay, nil)
	return ok
}

// armClock starts the battle timer so an idle opponent cannot stall the
// match. It is tried once per match whether or not the click lands.
func (c *Controller) armClock(ctx context.Context, log *zap.Logger) error {
	timer, ok := c.ui.FindOne(ctx, ui.SelSetTimer, nil)
	if !ok {
		return nil
	}
	c.clockArmed = true
	err := c.session.Do(session.OpArmClock, func() error { return c.ui.Click(ctx, timer) })
	if errors.Is(err, session.ErrStateProtocol) {
		return err
	}
	if err != nil {
		log.Debug("timer click failed", zap.Error(err))
		return nil
	}
	log.Info("battle timer armed")
	return nil
}

// cycle is one decision: read, scan, decide, execute. Absences end the cycle
// quietly and report false; the loop polls again.
func (c *Controller) cycle(ctx context.Context, log *zap.Logger, initial bool) (bool, error) {
	if err := c.session.Check(session.OpReadState); err != nil {
		return false, err
	}

	snap, ok := c.reader.Read(ctx)
	if !ok {
		c.res.Skipped++
		log.Debug("battle area not rendered")
		return false, nil
	}
	legal := c.scanner.Scan(ctx)
	if legal.Len() == 0 {
		c.res.Skipped++
		log.Debug("no enabled controls")
		return false, nil
	}

	d, err := battle.Decide(ctx, c.policy, snap, legal, initial)
	if errors.Is(err, battle.ErrNoLead) {
		c.res.Skipped++
		log.Warn("lead selection offered no switch", zap.Stringer("legal", legal))
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := c.exec.Execute(ctx, d.Action); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		c.res.Skipped++
		log.Warn("action not executed", zap.Stringer("action", d.Action), zap.Error(err))
		return false, nil
	}
	c.res.Decisions++

	mu := matchup(snap)
	log.Info("decision",
		zap.Int("turn", c.res.Decisions),
		zap.Bool("initial", initial),
		zap.Stringer("action", d.Action),
		zap.Float64("probability", d.Probability),
		zap.Bool("fallback", d.Fallback),
		zap.Stringer("legal", legal),
		zap.String("self", mu.Self),
		zap.Float64("self_health", mu.SelfHealth),
		zap.String("opponent", mu.Opponent),
		zap.Float64("opponent_health", mu.OpponentHealth),
		zap.Int("self_remaining", mu.SelfRemaining),
		zap.Int("opponent_remaining", mu.OpponentRemaining),
	)
	c.feed.Publish(feed.Event{
		Type:        feed.EvtDecision,
		MatchID:     c.matchID,
		Turn:        c.res.Decisions,
		Initial:     initial,
		Action:      d.Action.String(),
		Probability: d.Probability,
		Legal:       actionStrings(legal),
		Matchup:     &mu,
	})

	c.awaitEffect(ctx, log)
	return true, nil
}

// pause spaces out turn polls after a cycle that executed nothing, so a
// prompt that stays up is not re-read as fast as the browser answers.
func (c *Controller) pause(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(c.timing.PollInterval):
	}
}

// awaitEffect holds the loop until the turn prompt goes away, so the next
// poll sees the result of this action rather than the prompt it answered.
func (c *Controller) awaitEffect(ctx context.Context, log *zap.Logger) {
	deadline := time.Now().Add(c.timing.Effect)
	for {
		if _, ok := c.ui.FindOne(ctx, ui.SelSwitchMenu, nil); !ok || c.completed(ctx) {
			return
		}
		if !time.Now().Before(deadline) {
			log.Debug("turn prompt still up after action", zap.Duration("waited", c.timing.Effect))
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.timing.PollInterval):
		}
	}
}

func (c *Controller) finish(ctx context.Context, log *zap.Logger) error {
	if save, ok := c.ui.FindOne(ctx, ui.SelSaveReplay, nil); ok {
		if err := c.ui.Click(ctx, save); err != nil {
			log.Warn("save replay click failed", zap.Error(err))
		}
	}

	if overlay, ok := c.ui.WaitUntilReady(ctx, ui.SelOverlay, c.timing.Overlay); ok {
		if btn, ok := c.ui.FindOne(ctx, ui.SelOverlayClose, overlay); ok {
			if err := c.ui.Click(ctx, btn); err != nil {
				log.Debug("overlay close failed", zap.Error(err))
			}
		}
	} else {
		log.Warn("replay confirmation never appeared", zap.Duration("waited", c.timing.Overlay))
	}

	c.dismissDialogs(ctx, log)

	home, ok := c.ui.FindOne(ctx, ui.SelHomeTab, nil)
	if !ok {
		log.Warn("home tab not rendered after match")
		return nil
	}
	return c.ui.Click(ctx, home)
}

func (c *Controller) dismissDialogs(ctx context.Context, log *zap.Logger) {
	for i := 0; i < c.timing.MaxDismissals; i++ {
		buttons := c.ui.FindAll(ctx, ui.SelCloseButton, nil)
		if len(buttons) == 0 {
			return
		}
		if err := c.ui.Click(ctx, buttons[0]); err != nil {
			log.Debug("close button click failed", zap.Error(err))
		}
	}
	log.Warn("dialogs still open after dismissal limit", zap.Int("limit", c.timing.MaxDismissals))
}

func matchup(s battle.Snapshot) feed.Matchup {
	mu := feed.Matchup{
		SelfHealth:     s.Health(battle.SideSelf),
		OpponentHealth: s.Health(battle.SideOpponent),

		SelfRemaining:     s.Remaining(battle.SideSelf),
		OpponentRemaining: s.Remaining(battle.SideOpponent),
	}
	mu.Self, _ = s.PrimaryName(battle.SideSelf)
	mu.Opponent, _ = s.PrimaryName(battle.SideOpponent)
	return mu
}

func actionStrings(legal battle.LegalSet) []string {
	actions := legal.Actions()
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.String()
	}
	return out
}
