package session

import (
	"errors"
	"fmt"
	"strings"
)

var ErrStateProtocol = errors.New("operation not allowed in current state")
var ErrOperationInFlight = errors.New("another session operation is in flight")
var ErrUnknownOperation = errors.New("unknown operation")

type State string

const (
	StateUninitialized  State = "uninitialized"
	StateHomepage       State = "homepage"
	StateTeambuilder    State = "teambuilder"
	StateMatchSearching State = "match_searching"
	StateTurnActive     State = "turn_active"
	StateStopped        State = "stopped"
)

// AllStates in declaration order.
var AllStates = []State{
	StateUninitialized,
	StateHomepage,
	StateTeambuilder,
	StateMatchSearching,
	StateTurnActive,
	StateStopped,
}

type Op string

const (
	OpStart              Op = "start"
	OpStop               Op = "stop"
	OpHome               Op = "home"
	OpChooseName         Op = "choose_name"
	OpMute               Op = "mute"
	OpOpenTeambuilder    Op = "open_teambuilder"
	OpCreateTeam         Op = "create_team"
	OpSelectTeamFormat   Op = "select_team_format"
	OpSelectBattleFormat Op = "select_battle_format"
	OpSearch             Op = "search"
	OpCancelSearch       Op = "cancel_search"
	OpBeginMatch         Op = "begin_match"
	OpSelectLead         Op = "select_lead"
	OpTakeTurn           Op = "take_turn"
	OpArmClock           Op = "arm_clock"
	OpFinishMatch        Op = "finish_match"
	OpReadState          Op = "read_state"
)

// Rule says where an operation may run and where it leaves the session.
// A nil From means any state. An empty To means the operation only checks
// the state and never transitions.
type Rule struct {
	From []State
	To   State
}

func (r Rule) allows(s State) bool {
	if r.From == nil {
		return true
	}
	for _, f := range r.From {
		if f == s {
			return true
		}
	}
	return false
}

var Rules = map[Op]Rule{
	OpStart:              {From: nil, To: StateHomepage},
	OpStop:               {From: nil, To: StateStopped},
	OpHome:               {From: nil, To: StateHomepage},
	OpChooseName:         {From: []State{StateHomepage}, To: StateHomepage},
	OpMute:               {From: []State{StateHomepage}, To: StateHomepage},
	OpOpenTeambuilder:    {From: []State{StateHomepage}, To: StateTeambuilder},
	OpCreateTeam:         {From: []State{StateTeambuilder}, To: StateTeambuilder},
	OpSelectTeamFormat:   {From: []State{StateTeambuilder}, To: StateTeambuilder},
	OpSelectBattleFormat: {From: []State{StateHomepage}, To: StateHomepage},
	OpSearch:             {From: []State{StateHomepage}, To: StateMatchSearching},
	OpCancelSearch:       {From: []State{StateMatchSearching}, To: StateHomepage},
	OpBeginMatch:         {From: []State{StateMatchSearching}, To: StateTurnActive},
	OpSelectLead:         {From: []State{StateTurnActive}, To: StateTurnActive},
	OpTakeTurn:           {From: []State{StateTurnActive}, To: StateTurnActive},
	OpArmClock:           {From: []State{StateTurnActive}, To: StateTurnActive},
	OpFinishMatch:        {From: []State{StateTurnActive}, To: StateHomepage},
	OpReadState:          {From: []State{StateMatchSearching, StateTurnActive}},
}

// StateProtocolError reports an operation invoked outside its allowed states.
// It is raised before the operation has any side effect.
type StateProtocolError struct {
	Op      Op
	Allowed []State
	Actual  State
}

func (e *StateProtocolError) Error() string {
	allowed := "any"
	if e.Allowed != nil {
		names := make([]string, len(e.Allowed))
		for i, s := range e.Allowed {
			names[i] = string(s)
		}
		allowed = strings.Join(names, ", ")
	}
	return fmt.Sprintf("session: %s called in state %s, allowed: [%s]", e.Op, e.Actual, allowed)
}

func (e *StateProtocolError) Unwrap() error { return ErrStateProtocol }
