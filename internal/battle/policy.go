package battle

import (
	"context"
	"fmt"
)

// Policy ranks the whole action vocabulary for a snapshot. The ranking is not
// filtered to what is legal; ChooseAction does that.
type Policy interface {
	Predict(ctx context.Context, snap Snapshot) ([]RankedCandidate, error)
	Name() string
}

// LegalAware is implemented by policies that must see the legal set before
// they answer, such as one that asks a person and refuses illegal input.
// Decide prefers PredictLegal over Predict when it is available.
type LegalAware interface {
	PredictLegal(ctx context.Context, snap Snapshot, legal LegalSet) ([]RankedCandidate, error)
}

// ChooseAction walks the ranking and returns the first legal candidate.
//
// During team preview (initial) moves cannot be submitted, so when the first
// legal candidate is a move the first switch target in the legal set is
// returned instead. If nothing in the ranking is legal, the first legal action
// in scan order stands in for it.
func ChooseAction(ranked []RankedCandidate, legal LegalSet, initial bool) (Action, error) {
	if legal.Len() == 0 {
		return Action{}, ErrNoLegalActions
	}

	choice, found := Action{}, false
	for _, c := range ranked {
		if legal.Contains(c.Action) {
			choice, found = c.Action, true
			break
		}
	}
	if !found {
		choice = legal.order[0]
	}

	if initial && choice.IsMove() {
		lead, ok := legal.FirstSwitch()
		if !ok {
			return Action{}, ErrNoLead
		}
		return lead, nil
	}
	return choice, nil
}

type Decision struct {
	Action      Action
	Probability float64 // ranked probability of Action itself, the lead included; 0 if unranked
	Top         []RankedCandidate
	Fallback    bool // no ranked candidate was legal
}

// Decide runs one policy query and picks the action to execute.
func Decide(ctx context.Context, p Policy, snap Snapshot, legal LegalSet, initial bool) (Decision, error) {
	var ranked []RankedCandidate
	var err error
	if la, ok := p.(LegalAware); ok {
		ranked, err = la.PredictLegal(ctx, snap, legal)
	} else {
		ranked, err = p.Predict(ctx, snap)
	}
	if err != nil {
		return Decision{}, fmt.Errorf("predict with %s: %w", p.Name(), err)
	}

	action, err := ChooseAction(ranked, legal, initial)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{Action: action, Fallback: true}
	for _, c := range ranked {
		if legal.Contains(c.Action) {
			d.Fallback = false
		}
		if c.Action == action {
			d.Probability = c.Probability
			break
		}
	}
	top := ranked
	if len(top) > 5 {
		top = top[:5]
	}
	d.Top = append([]RankedCandidate(nil), top...)
	return d, nil
}
