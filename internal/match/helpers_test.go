package match

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/showdown-bot/internal/battle"
	"github.com/DoyleJ11/showdown-bot/internal/parser"
	"github.com/DoyleJ11/showdown-bot/internal/session"
	"github.com/DoyleJ11/showdown-bot/internal/ui"
	"github.com/DoyleJ11/showdown-bot/internal/ui/uitest"
)

type step string

const (
	stepIdle  step = "idle"  // opponent still thinking
	stepTurn  step = "turn"  // our move prompt appears
	stepEnd   step = "end"   // match over
	stepStuck step = "stuck" // prompt up, only control disabled
)

// table scripts a Showdown battle room on top of the fake. Each time the
// controller polls for the turn prompt and misses, the next step plays out.
type table struct {
	t        *testing.T
	f        *uitest.Fake
	controls *uitest.Node
	steps    []step
	lead     bool
	noMatch  bool

	mu    sync.Mutex
	moves []string
}

func newTable(t *testing.T, lead bool, steps ...step) *table {
	tb := &table{t: t, f: uitest.New(), steps: steps, lead: lead}
	f := tb.f

	f.Put(ui.SelSearch, uitest.El("search").Do(tb.opponentFound))
	f.Put(ui.SelCancelSearch, uitest.El("cancel-search"))
	f.Put(ui.SelSetTimer, uitest.El("timer"))
	f.Put(ui.SelHomeTab, uitest.El("home"))

	left := uitest.El("left").Put(ui.SelTrainer, uitest.El("trainer").Put(ui.SelCombatantIcon,
		uitest.El("icon", ui.AttrTitle, "Bunny (Lopunny) (active)"),
		uitest.El("icon", ui.AttrTitle, "Gyarados (100%)"),
	))
	right := uitest.El("right").Put(ui.SelTrainer, uitest.El("trainer").Put(ui.SelCombatantIcon,
		uitest.El("icon", ui.AttrTitle, "Tyranitar (active)"),
	))
	f.Put(ui.SelBattle, uitest.El("battle").Put(ui.SelLeftBar, left).Put(ui.SelRightBar, right))
	f.Put(ui.SelSelfReadout, uitest.El("rstat").Put(ui.SelHealthText, uitest.El("hp").WithText("64%")))

	f.OnWait = func(sel string) {
		if sel == ui.SelSwitchMenu {
			tb.advance()
		}
	}
	return tb
}

func (tb *table) opponentFound() {
	if tb.noMatch {
		return
	}
	tb.controls = uitest.El("controls")
	tb.f.Put(ui.SelControls, tb.controls)
	if tb.lead {
		tb.controls.Put(ui.SelWhatDo, uitest.El("whatdo").WithText(ui.LeadSelectionText))
		tb.showMenu(nil, []*uitest.Node{
			tb.button("preview Lopunny", ui.NameTeamPreview, "Bunny (Lopunny)"),
			tb.button("preview Gyarados", ui.NameTeamPreview, "Gyarados"),
		})
	}
}

func (tb *table) button(label, name, tooltip string) *uitest.Node {
	return uitest.El(label, ui.AttrName, name).WithTooltip(tooltip).Do(tb.waiting)
}

func (tb *table) moveButton(code string, kv ...string) *uitest.Node {
	n := uitest.El("move "+code, append([]string{ui.AttrName, ui.NameChooseMove, ui.AttrMoveCode, code}, kv...)...)
	return n.Do(func() {
		tb.mu.Lock()
		tb.moves = append(tb.moves, code)
		tb.mu.Unlock()
		tb.waiting()
	})
}

// showMenu renders the turn prompt. The switch menu doubles as the
// document-level turn indicator.
func (tb *table) showMenu(moves, switches []*uitest.Node) {
	menu := uitest.El("switchmenu").Put(ui.SelButton, switches...)
	tb.controls.Put(ui.SelSwitchMenu, menu)
	tb.f.Put(ui.SelSwitchMenu, menu)
	if moves != nil {
		tb.controls.Put(ui.SelMoveMenu, uitest.El("movemenu").Put(ui.SelButton, moves...))
	}
}

func (tb *table) waiting() {
	tb.controls.Remove(ui.SelWhatDo)
	tb.controls.Remove(ui.SelSwitchMenu)
	tb.controls.Remove(ui.SelMoveMenu)
	tb.f.Remove(ui.SelSwitchMenu)
}

func (tb *table) advance() {
	if len(tb.steps) == 0 {
		return
	}
	next := tb.steps[0]
	tb.steps = tb.steps[1:]

	switch next {
	case stepIdle:
	case stepTurn:
		tb.showMenu(
			[]*uitest.Node{
				tb.moveButton("quickattack", "class", "disabled"),
				tb.moveButton("tackle"),
			},
			[]*uitest.Node{tb.button("switch Gyarados", ui.NameSwitch, "Gyarados")},
		)
	case stepStuck:
		tb.showMenu(nil, []*uitest.Node{
			uitest.El("switch Gyarados", ui.AttrName, ui.NameSwitch, "class", "disabled").WithTooltip("Gyarados"),
		})
	case stepEnd:
		tb.f.Put(ui.SelSaveReplay, uitest.El("save").Do(func() {
			tb.f.Put(ui.SelOverlay, uitest.El("overlay").Put(ui.SelOverlayClose,
				uitest.El("overlay-close").Do(func() { tb.f.Remove(ui.SelOverlay) })))
		}))
		closeA, closeB := uitest.El("close-a"), uitest.El("close-b")
		closeA.Do(func() { tb.f.Root().RemoveChild(ui.SelCloseButton, closeA) })
		closeB.Do(func() { tb.f.Root().RemoveChild(ui.SelCloseButton, closeB) })
		tb.f.Put(ui.SelCloseButton, closeA, closeB)
	}
}

func (tb *table) executedMoves() []string {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return append([]string(nil), tb.moves...)
}

func countClicks(f *uitest.Fake, label string) int {
	n := 0
	for _, c := range f.Clicks() {
		if c == label {
			n++
		}
	}
	return n
}

type rankedPolicy struct {
	ranked []battle.RankedCandidate
	fail   int // fail this many calls first

	mu    sync.Mutex
	calls int
}

func (p *rankedPolicy) Name() string { return "ranked" }

func (p *rankedPolicy) Predict(context.Context, battle.Snapshot) ([]battle.RankedCandidate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.fail {
		return nil, errors.New("model unavailable")
	}
	return p.ranked, nil
}

func examplePolicy() *rankedPolicy {
	return &rankedPolicy{ranked: []battle.RankedCandidate{
		{Probability: 0.9, Action: battle.Move("quickattack")},
		{Probability: 0.6, Action: battle.Move("tackle")},
		{Probability: 0.3, Action: battle.Switch("Gyarados")},
	}}
}

func fastTiming() Timing {
	return Timing{
		SearchButton:  time.Millisecond,
		Search:        time.Millisecond,
		TurnPoll:      time.Millisecond,
		Effect:        5 * time.Millisecond,
		Overlay:       time.Millisecond,
		PollInterval:  time.Millisecond,
		MaxDismissals: 5,
	}
}

func homepageMachine(t *testing.T) *session.Machine {
	t.Helper()
	m := session.NewMachine(nil)
	require.NoError(t, m.Do(session.OpStart, func() error { return nil }))
	return m
}

func newController(tb *table, sess *session.Machine, p battle.Policy, opts ...Option) *Controller {
	opts = append([]Option{WithTiming(fastTiming())}, opts...)
	return NewController(tb.f, sess, parser.New(nil), p, opts...)
}

type homeFunc func(ctx context.Context) error

func (h homeFunc) Home(ctx context.Context) error { return h(ctx) }
