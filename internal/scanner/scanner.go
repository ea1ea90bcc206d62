// Package scanner enumerates the actions the battle controls currently allow.
package scanner

import (
	"context"
	"regexp"

	"go.uber.org/zap"

	"github.com/DoyleJ11/showdown-bot/internal/battle"
	"github.com/DoyleJ11/showdown-bot/internal/ui"
)

type Scanner struct {
	ui  ui.Adapter
	log *zap.Logger
}

func New(a ui.Adapter, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{ui: a, log: log}
}

// Scan rebuilds the legal set from the enabled controls: moves first, then
// switches, each in the order the controls are rendered.
func (s *Scanner) Scan(ctx context.Context) battle.LegalSet {
	controls, ok := s.ui.FindOne(ctx, ui.SelControls, nil)
	if !ok {
		return battle.NewLegalSet()
	}

	var actions []battle.Action
	for _, btn := range MoveButtons(ctx, s.ui, controls) {
		if ui.Disabled(ctx, s.ui, btn) {
			continue
		}
		code, ok := s.ui.ReadAttribute(ctx, btn, ui.AttrMoveCode)
		if !ok || code == "" {
			continue
		}
		actions = append(actions, battle.Move(code))
	}

	for _, btn := range SwitchButtons(ctx, s.ui, controls) {
		if ui.Disabled(ctx, s.ui, btn) {
			continue
		}
		name, ok := SwitchTarget(ctx, s.ui, btn)
		if !ok {
			s.log.Debug("switch tooltip did not render, skipping control")
			continue
		}
		actions = append(actions, battle.Switch(name))
	}
	return battle.NewLegalSet(actions...)
}

// MoveButtons returns the move controls under controls, disabled ones included.
func MoveButtons(ctx context.Context, a ui.Adapter, controls ui.Element) []ui.Element {
	menu, ok := a.FindOne(ctx, ui.SelMoveMenu, controls)
	if !ok {
		return nil
	}
	var out []ui.Element
	for _, btn := range a.FindAll(ctx, ui.SelButton, menu) {
		if name, _ := a.ReadAttribute(ctx, btn, ui.AttrName); name == ui.NameChooseMove {
			out = append(out, btn)
		}
	}
	return out
}

// SwitchButtons returns switch and team-preview controls, disabled ones included.
func SwitchButtons(ctx context.Context, a ui.Adapter, controls ui.Element) []ui.Element {
	menu, ok := a.FindOne(ctx, ui.SelSwitchMenu, controls)
	if !ok {
		return nil
	}
	var out []ui.Element
	for _, btn := range a.FindAll(ctx, ui.SelButton, menu) {
		switch name, _ := a.ReadAttribute(ctx, btn, ui.AttrName); name {
		case ui.NameSwitch, ui.NameTeamPreview:
			out = append(out, btn)
		}
	}
	return out
}

var tooltipName = regexp.MustCompile(`^.+ \((?P<name>.+?)\)`)

// SwitchTarget hovers a switch control and reads the combatant name from the
// tooltip it reveals. A parenthetical species wins over the displayed name.
func SwitchTarget(ctx context.Context, a ui.Adapter, btn ui.Element) (string, bool) {
	if err := a.Hover(ctx, btn); err != nil {
		return "", false
	}
	title, ok := ui.FindIn(ctx, a, ui.SelTooltip, ui.SelTooltipTitle)
	if !ok {
		return "", false
	}
	text, err := a.ReadText(ctx, title)
	if err != nil {
		return "", false
	}
	return TargetName(text), true
}

func TargetName(tooltip string) string {
	if m := tooltipName.FindStringSubmatch(tooltip); m != nil {
		return m[1]
	}
	return tooltip
}
