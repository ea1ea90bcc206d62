package battle

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNoLegalActions = errors.New("no legal actions")
var ErrNoLead = errors.New("no lead available")
var ErrBadAction = errors.New("malformed action")

type ActionKind string

const (
	KindMove   ActionKind = "move"
	KindSwitch ActionKind = "switch"
)

// Action is what the bot can submit on its turn. Two actions are equal only
// when both kind and name match, so a move and a switch never collide even
// when their names do.
type Action struct {
	Kind ActionKind
	Name string
}

func Move(code string) Action   { return Action{Kind: KindMove, Name: code} }
func Switch(name string) Action { return Action{Kind: KindSwitch, Name: name} }

func (a Action) IsMove() bool   { return a.Kind == KindMove }
func (a Action) IsSwitch() bool { return a.Kind == KindSwitch }

func (a Action) String() string {
	return string(a.Kind) + " " + a.Name
}

// ParseAction reads the "move <code>" / "switch <name>" form produced by String.
func ParseAction(s string) (Action, error) {
	kind, name, ok := strings.Cut(strings.TrimSpace(s), " ")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Action{}, fmt.Errorf("%w: %q", ErrBadAction, s)
	}
	switch ActionKind(strings.ToLower(kind)) {
	case KindMove:
		return Move(name), nil
	case KindSwitch:
		return Switch(name), nil
	default:
		return Action{}, fmt.Errorf("%w: unknown kind %q", ErrBadAction, kind)
	}
}

type RankedCandidate struct {
	Probability float64
	Action      Action
}

// LegalSet holds the actions the interface currently permits. Membership is
// what matters; scan order is kept so the lead and log output are stable.
type LegalSet struct {
	order   []Action
	members map[Action]struct{}
}

func NewLegalSet(actions ...Action) LegalSet {
	s := LegalSet{members: make(map[Action]struct{}, len(actions))}
	for _, a := range actions {
		s.add(a)
	}
	return s
}

func (s *LegalSet) add(a Action) {
	if s.members == nil {
		s.members = map[Action]struct{}{}
	}
	if _, dup := s.members[a]; dup {
		return
	}
	s.members[a] = struct{}{}
	s.order = append(s.order, a)
}

func (s LegalSet) Contains(a Action) bool {
	_, ok := s.members[a]
	return ok
}

func (s LegalSet) Len() int { return len(s.order) }

// Actions returns the members in scan order.
func (s LegalSet) Actions() []Action {
	out := make([]Action, len(s.order))
	copy(out, s.order)
	return out
}

// FirstSwitch is the designated lead during team preview.
func (s LegalSet) FirstSwitch() (Action, bool) {
	for _, a := range s.order {
		if a.IsSwitch() {
			return a, true
		}
	}
	return Action{}, false
}

func (s LegalSet) String() string {
	parts := make([]string, len(s.order))
	for i, a := range s.order {
		parts[i] = a.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
