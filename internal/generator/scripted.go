package generator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"riftterm/internal/terminal"
)

// ScriptLine is one authored line of a scripted terminal.
type ScriptLine struct {
	Text      string
	Kind      terminal.Kind
	EmitAfter time.Duration
}

// DefaultScript is the landing page watcher output.
func DefaultScript() []ScriptLine {
	return []ScriptLine{
		{Text: "Initializing Rift Watcher...", Kind: terminal.KindInfo, EmitAfter: 0},
		{Text: "Monitoring mempool...", Kind: terminal.KindInfo, EmitAfter: 500 * time.Millisecond},
		{Text: "[+] RIFT DETECTED: 0x9a6c506b...", Kind: terminal.KindSuccess, EmitAfter: 1200 * time.Millisecond},
		{Text: "🛡️ Cairo Verification: SUCCESS (12ms)", Kind: terminal.KindSuccess, EmitAfter: 1800 * time.Millisecond},
		{Text: "⚡ 12 txs verified in 48.2s", Kind: terminal.KindSuccess, EmitAfter: 2400 * time.Millisecond},
	}
}

// Scripted reveals a fixed list of lines, each at start+EmitAfter.
type Scripted struct {
	script  []ScriptLine
	buf     *terminal.Buffer
	opts    options
	wait    waiter
	started atomic.Bool
}

// NewScripted validates script and sizes the buffer to hold all of it.
// Lines must be authored in non-decreasing EmitAfter order.
func NewScripted(script []ScriptLine, opts ...Option) (*Scripted, error) {
	if len(script) == 0 {
		return nil, fmt.Errorf("scripted terminal: empty script")
	}
	var prev time.Duration
	for i, l := range script {
		if l.EmitAfter < 0 {
			return nil, fmt.Errorf("scripted terminal: line %d has negative offset %s", i, l.EmitAfter)
		}
		if l.EmitAfter < prev {
			return nil, fmt.Errorf("scripted terminal: line %d offset %s before line %d offset %s", i, l.EmitAfter, i-1, prev)
		}
		prev = l.EmitAfter
	}
	o := buildOptions(opts)
	return &Scripted{
		script: append([]ScriptLine(nil), script...),
		buf:    terminal.NewBuffer(len(script)),
		opts:   o,
		wait:   waiter{clock: o.clock, pause: o.pause},
	}, nil
}

func (s *Scripted) Buffer() *terminal.Buffer { return s.buf }

func (s *Scripted) Script() []ScriptLine { return append([]ScriptLine(nil), s.script...) }

// Run reveals every line at its offset from the moment Run is called.
// Deadlines are measured from that start, so one line's delay never
// shifts another's.
func (s *Scripted) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	start := s.opts.clock.Now()
	for _, l := range s.script {
		if err := s.wait.sleep(ctx, l.EmitAfter-s.opts.clock.Since(start)); err != nil {
			return err
		}
		line := terminal.NewLine(l.Text, l.Kind, s.opts.clock.Now())
		line.EmitAfter = l.EmitAfter
		if _, err := s.buf.Append(line); err != nil {
			return err
		}
	}
	s.buf.Seal()
	s.opts.logger.Debug("scripted terminal finished", "lines", len(s.script))
	return nil
}

// VisibleAt returns the script lines visible elapsed after start. It
// depends only on the script, so replays always agree.
func (s *Scripted) VisibleAt(elapsed time.Duration) []ScriptLine {
	return VisibleAt(s.script, elapsed)
}

func VisibleAt(script []ScriptLine, elapsed time.Duration) []ScriptLine {
	var out []ScriptLine
	for _, l := range script {
		if l.EmitAfter <= elapsed {
			out = append(out, l)
		}
	}
	return out
}
