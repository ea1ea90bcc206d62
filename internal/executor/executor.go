package executor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/showdown-bot/internal/battle"
	"github.com/DoyleJ11/showdown-bot/internal/scanner"
	"github.com/DoyleJ11/showdown-bot/internal/ui"
)

var ErrActionNotFound = errors.New("no control matches action")
var ErrControlsAbsent = errors.New("battle controls not rendered")

type Executor struct {
	ui  ui.Adapter
	log *zap.Logger
}

func New(a ui.Adapter, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{ui: a, log: log}
}

// Execute clicks the control for action. The alternate-form toggle, when
// offered, is switched on first regardless of the action kind.
func (e *Executor) Execute(ctx context.Context, action battle.Action) error {
	if toggle, ok := e.ui.FindOne(ctx, ui.SelAltFormToggle, nil); ok {
		if err := e.ui.Click(ctx, toggle); err != nil {
			e.log.Debug("alternate form toggle click failed", zap.Error(err))
		}
	}

	controls, ok := e.ui.FindOne(ctx, ui.SelControls, nil)
	if !ok {
		return ErrControlsAbsent
	}

	var target ui.Element
	switch action.Kind {
	case battle.KindMove:
		target = e.findMove(ctx, controls, action.Name)
	case battle.KindSwitch:
		target = e.findSwitch(ctx, controls, action.Name)
	}
	if target == nil {
		return fmt.Errorf("%w: %s", ErrActionNotFound, action)
	}

	if err := e.ui.Click(ctx, target); err != nil {
		return fmt.Errorf("click %s: %w", action, err)
	}
	return nil
}

func (e *Executor) findMove(ctx context.Context, controls ui.Element, code string) ui.Element {
	for _, btn := range scanner.MoveButtons(ctx, e.ui, controls) {
		if ui.Disabled(ctx, e.ui, btn) {
			continue
		}
		if c, _ := e.ui.ReadAttribute(ctx, btn, ui.AttrMoveCode); c == code {
			return btn
		}
	}
	return nil
}

func (e *Executor) findSwitch(ctx context.Context, controls ui.Element, name string) ui.Element {
	for _, btn := range scanner.SwitchButtons(ctx, e.ui, controls) {
		if ui.Disabled(ctx, e.ui, btn) {
			continue
		}
		if target, ok := scanner.SwitchTarget(ctx, e.ui, btn); ok && target == name {
			return btn
		}
	}
	return nil
}
