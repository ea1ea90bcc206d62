package session

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Machine guards session operations against the current State. It is owned
// by one controller; overlapping calls are rejected rather than serialized.
type Machine struct {
	mu          sync.Mutex
	state       State
	inFlight    Op
	transitions int
	onChange    func(op Op, from, to State)
	log         *zap.Logger
}

func NewMachine(log *zap.Logger) *Machine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Machine{state: StateUninitialized, log: log}
}

// OnChange registers a callback fired after every transition, self-loops included.
func (m *Machine) OnChange(fn func(op Op, from, to State)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Transitions counts completed transitions since the machine was created.
func (m *Machine) Transitions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitions
}

// Check reports whether op may run now without running anything.
func (m *Machine) Check(op Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.checkLocked(op)
	return err
}

func (m *Machine) checkLocked(op Op) (Rule, error) {
	rule, ok := Rules[op]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}
	if !rule.allows(m.state) {
		return rule, &StateProtocolError{Op: op, Allowed: rule.From, Actual: m.state}
	}
	return rule, nil
}

// Do runs fn as operation op. The state check happens before fn is called;
// the transition happens only if fn returns nil.
func (m *Machine) Do(op Op, fn func() error) error {
	m.mu.Lock()
	if m.inFlight != "" {
		running := m.inFlight
		m.mu.Unlock()
		return fmt.Errorf("%w: %s while %s", ErrOperationInFlight, op, running)
	}
	rule, err := m.checkLocked(op)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.inFlight = op
	m.mu.Unlock()

	runErr := fn()

	m.mu.Lock()
	m.inFlight = ""
	if runErr != nil || rule.To == "" {
		m.mu.Unlock()
		return runErr
	}
	from := m.state
	m.state = rule.To
	m.transitions++
	notify := m.onChange
	m.mu.Unlock()

	m.log.Debug("session transition",
		zap.String("op", string(op)),
		zap.String("from", string(from)),
		zap.String("to", string(rule.To)),
	)
	if notify != nil {
		notify(op, from, rule.To)
	}
	return nil
}
