package tui

import (
	"riftterm/internal/session"

	tea "github.com/charmbracelet/bubbletea"
)

// Config controls the terminal frame around a session.
type Config struct {
	Title         string
	Footer        string
	Mode          session.Mode
	MaxDetections int
	Capacity      int
}

// Runner is the part of a session the view drives.
type Runner interface {
	ID() string
	Events() <-chan session.Event
	Pause(paused bool)
	Paused() bool
	Stop()
}

// Starter creates a fresh session; it is called once at startup and again
// on every restart.
type Starter func() (Runner, error)

// Run shows the terminal until the user quits. The active session is
// stopped before Run returns.
func Run(start Starter, cfg Config) error {
	r, err := start()
	if err != nil {
		return err
	}
	m := initialModel(r, start, cfg)
	p := tea.NewProgram(m)
	final, err := p.Run()
	if fm, ok := final.(model); ok && fm.run != nil {
		fm.run.Stop()
	} else {
		r.Stop()
	}
	if err != nil {
		return err
	}
	if fm, ok := final.(model); ok && fm.err != nil {
		return fm.err
	}
	return nil
}

// SessionStarter adapts session.Start to a Starter.
func SessionStarter(start func() (*session.Session, error)) Starter {
	return func() (Runner, error) {
		s, err := start()
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
