package terminal

import (
	"errors"
	"fmt"
	"sync"
)

type Phase int

const (
	PhaseInit Phase = iota
	PhaseScanning
	PhaseProcessing
	PhaseComplete
)

var ErrInvalidTransition = errors.New("terminal: invalid phase transition")

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseScanning:
		return "scanning"
	case PhaseProcessing:
		return "processing"
	case PhaseComplete:
		return "complete"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Terminal reports whether no transition can leave p.
func (p Phase) Terminal() bool { return p == PhaseComplete }

// Machine is the forward-only phase state machine. Each transition moves
// exactly one step; the zero value starts in PhaseInit.
type Machine struct {
	mu      sync.RWMutex
	current Phase
	history []Phase
	onEnter func(from, to Phase)
}

// NewMachine returns a machine in PhaseInit. onEnter, if non-nil, runs
// after every successful transition on the caller's goroutine.
func NewMachine(onEnter func(from, to Phase)) *Machine {
	return &Machine{history: []Phase{PhaseInit}, onEnter: onEnter}
}

func (m *Machine) Phase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Advance moves to the next phase. Anything other than the immediate
// successor of the current phase is rejected and leaves the state as is.
func (m *Machine) Advance(to Phase) error {
	m.mu.Lock()
	from := m.current
	if from.Terminal() || to != from+1 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	m.current = to
	if len(m.history) == 0 {
		m.history = append(m.history, from)
	}
	m.history = append(m.history, to)
	fn := m.onEnter
	m.mu.Unlock()

	if fn != nil {
		fn(from, to)
	}
	return nil
}

// History returns every phase visited so far, in order.
func (m *Machine) History() []Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.history) == 0 {
		return []Phase{m.current}
	}
	out := make([]Phase, len(m.history))
	copy(out, m.history)
	return out
}
