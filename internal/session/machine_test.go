package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func machineIn(s State) *Machine {
	m := NewMachine(nil)
	m.state = s
	return m
}

func TestEveryOperationFromEveryState(t *testing.T) {
	for op, rule := range Rules {
		for _, from := range AllStates {
			t.Run(string(op)+"/"+string(from), func(t *testing.T) {
				m := machineIn(from)
				var changes int
				m.OnChange(func(Op, State, State) { changes++ })

				called := false
				err := m.Do(op, func() error { called = true; return nil })

				if !rule.allows(from) {
					var spe *StateProtocolError
					require.ErrorAs(t, err, &spe)
					assert.ErrorIs(t, err, ErrStateProtocol)
					assert.Equal(t, op, spe.Op)
					assert.Equal(t, from, spe.Actual)
					assert.Equal(t, rule.From, spe.Allowed)
					assert.False(t, called, "side effect ran before the guard")
					assert.Equal(t, from, m.State())
					assert.Zero(t, m.Transitions())
					return
				}

				require.NoError(t, err)
				assert.True(t, called)
				if rule.To == "" {
					assert.Equal(t, from, m.State())
					assert.Zero(t, m.Transitions())
					assert.Zero(t, changes)
					return
				}
				assert.Equal(t, rule.To, m.State())
				assert.Equal(t, 1, m.Transitions())
				assert.Equal(t, 1, changes)
			})
		}
	}
}

func TestSelfLoopTransitionsOncePerCall(t *testing.T) {
	m := machineIn(StateHomepage)
	var seen []State
	m.OnChange(func(op Op, from, to State) {
		assert.Equal(t, OpChooseName, op)
		seen = append(seen, from, to)
	})

	for i := 0; i < 3; i++ {
		require.NoError(t, m.Do(OpChooseName, func() error { return nil }))
	}
	assert.Equal(t, 3, m.Transitions())
	assert.Equal(t, []State{
		StateHomepage, StateHomepage,
		StateHomepage, StateHomepage,
		StateHomepage, StateHomepage,
	}, seen)
}

func TestFailedOperationDoesNotTransition(t *testing.T) {
	m := machineIn(StateHomepage)
	boom := errors.New("search button never rendered")

	err := m.Do(OpSearch, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateHomepage, m.State())
	assert.Zero(t, m.Transitions())
}

func TestOverlappingOperationIsRejected(t *testing.T) {
	m := machineIn(StateTurnActive)

	err := m.Do(OpTakeTurn, func() error {
		inner := m.Do(OpArmClock, func() error {
			t.Fatal("nested operation must not run")
			return nil
		})
		assert.ErrorIs(t, inner, ErrOperationInFlight)
		// require-only checks stay available inside an operation
		assert.NoError(t, m.Check(OpReadState))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Transitions())
}

func TestUnknownOperation(t *testing.T) {
	m := NewMachine(nil)
	assert.ErrorIs(t, m.Do(Op("dance"), func() error { return nil }), ErrUnknownOperation)
	assert.Equal(t, StateUninitialized, m.State())
}

func TestStateProtocolErrorMessage(t *testing.T) {
	m := NewMachine(nil)
	err := m.Do(OpTakeTurn, func() error { return nil })
	assert.EqualError(t, err, "session: take_turn called in state uninitialized, allowed: [turn_active]")
}

func TestMatchLifecycle(t *testing.T) {
	m := NewMachine(nil)
	noop := func() error { return nil }
	for _, op := range []Op{
		OpStart, OpOpenTeambuilder, OpCreateTeam, OpHome, OpSelectBattleFormat,
		OpSearch, OpBeginMatch, OpSelectLead, OpTakeTurn, OpArmClock, OpTakeTurn, OpFinishMatch,
		OpStop,
	} {
		require.NoError(t, m.Do(op, noop), "op %s", op)
	}
	assert.Equal(t, StateStopped, m.State())
}
