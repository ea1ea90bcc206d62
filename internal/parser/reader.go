package parser

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/showdown-bot/internal/battle"
	"github.com/DoyleJ11/showdown-bot/internal/ui"
)

// SnapshotReader builds a battle.Snapshot from the rendered battle area.
type SnapshotReader struct {
	ui     ui.Adapter
	parser *Parser
	log    *zap.Logger
}

func NewSnapshotReader(a ui.Adapter, p *Parser, log *zap.Logger) *SnapshotReader {
	if log == nil {
		log = zap.NewNop()
	}
	return &SnapshotReader{ui: a, parser: p, log: log}
}

var sideBars = [2]string{battle.SideSelf: ui.SelLeftBar, battle.SideOpponent: ui.SelRightBar}

// The self side's active readout is the right-hand stat bar.
var readouts = [2]string{battle.SideSelf: ui.SelSelfReadout, battle.SideOpponent: ui.SelOppReadout}

// Read returns ok=false when the battle area is not rendered.
func (r *SnapshotReader) Read(ctx context.Context) (battle.Snapshot, bool) {
	area, ok := r.ui.FindOne(ctx, ui.SelBattle, nil)
	if !ok {
		return battle.Snapshot{}, false
	}

	var teams [2][]battle.CombatantRecord
	var primary [2]string
	for side := battle.SideSelf; side <= battle.SideOpponent; side++ {
		bar, ok := r.ui.FindOne(ctx, sideBars[side], area)
		if !ok {
			continue
		}
		trainer, ok := r.ui.FindOne(ctx, ui.SelTrainer, bar)
		if !ok {
			continue
		}
		for _, icon := range r.ui.FindAll(ctx, ui.SelCombatantIcon, trainer) {
			desc, ok := r.ui.ReadAttribute(ctx, icon, ui.AttrTitle)
			if !ok {
				continue
			}
			res := r.parser.Parse(desc)
			if res.Shape.Active() {
				res.Health = r.activeHealth(ctx, side)
				primary[side] = res.Name
			}
			teams[side] = append(teams[side], battle.NewCombatant(res.Name, res.Health, res.Fainted))
		}
	}
	return battle.NewSnapshot(teams[battle.SideSelf], teams[battle.SideOpponent], primary), true
}

func (r *SnapshotReader) activeHealth(ctx context.Context, side battle.Side) float64 {
	el, ok := ui.FindIn(ctx, r.ui, readouts[side], ui.SelHealthText)
	if !ok {
		r.log.Debug("health readout not rendered", zap.Stringer("side", side))
		return 1
	}
	text, err := r.ui.ReadText(ctx, el)
	if err != nil {
		r.log.Debug("health readout unreadable", zap.Stringer("side", side), zap.Error(err))
		return 1
	}
	h, ok := ParsePercent(text)
	if !ok {
		r.log.Debug("health readout not a percentage", zap.Stringer("side", side), zap.String("text", text))
		return 1
	}
	return h
}
