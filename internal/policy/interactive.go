package policy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/DoyleJ11/showdown-bot/internal/battle"
)

var ErrInputClosed = errors.New("interactive input closed")

// Interactive asks a person for every decision. It prints the snapshot and
// reads "move <code>" or "switch <name>" lines until one parses and, when the
// legal set is known, names a legal action.
type Interactive struct {
	out   io.Writer
	lines chan string
}

// NewInteractive starts reading lines from in. The reader goroutine exits
// when in returns EOF or an error.
func NewInteractive(in io.Reader, out io.Writer) *Interactive {
	p := &Interactive{out: out, lines: make(chan string)}
	go func() {
		defer close(p.lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			p.lines <- sc.Text()
		}
	}()
	return p
}

func (p *Interactive) Name() string { return "interactive" }

var _ battle.LegalAware = (*Interactive)(nil)

// Predict accepts any well-formed action.
func (p *Interactive) Predict(ctx context.Context, snap battle.Snapshot) ([]battle.RankedCandidate, error) {
	return p.PredictLegal(ctx, snap, battle.LegalSet{})
}

// PredictLegal re-prompts until the typed action is in legal. An empty legal
// set accepts anything that parses.
func (p *Interactive) PredictLegal(ctx context.Context, snap battle.Snapshot, legal battle.LegalSet) ([]battle.RankedCandidate, error) {
	p.render(snap)
	if legal.Len() > 0 {
		fmt.Fprintf(p.out, "legal: %s\n", legal)
	}
	for {
		fmt.Fprint(p.out, "action> ")
		var line string
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case l, ok := <-p.lines:
			if !ok {
				return nil, ErrInputClosed
			}
			line = l
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		a, err := battle.ParseAction(line)
		if err != nil {
			fmt.Fprintf(p.out, "%v (want \"move <code>\" or \"switch <name>\")\n", err)
			continue
		}
		if legal.Len() > 0 && !legal.Contains(a) {
			fmt.Fprintf(p.out, "%s is not legal now\n", a)
			continue
		}
		return []battle.RankedCandidate{{Probability: 1, Action: a}}, nil
	}
}

func (p *Interactive) render(snap battle.Snapshot) {
	for _, side := range []battle.Side{battle.SideSelf, battle.SideOpponent} {
		active, _ := snap.PrimaryName(side)
		fmt.Fprintf(p.out, "%s:", side)
		for _, c := range snap.Team(side) {
			mark := ""
			if c.Name == active {
				mark = "*"
			}
			switch {
			case c.Fainted:
				fmt.Fprintf(p.out, " %s%s(fainted)", mark, c.Name)
			default:
				fmt.Fprintf(p.out, " %s%s(%.0f%%)", mark, c.Name, c.Health*100)
			}
		}
		fmt.Fprintln(p.out)
	}
}
