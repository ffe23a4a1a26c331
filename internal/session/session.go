// Package session owns the lifetime of one simulated terminal: it starts a
// generator on its own goroutine, relays buffer changes to a renderer as
// Events and guarantees that nothing touches the buffer once Stop returns.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"riftterm/internal/generator"
	"riftterm/internal/metrics"
	"riftterm/internal/terminal"
)

type Mode string

const (
	ModeProcedural Mode = "procedural"
	ModeScripted   Mode = "scripted"
)

// ParseMode accepts the mode names used on the command line and in URLs.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeProcedural, "":
		return ModeProcedural, nil
	case ModeScripted:
		return ModeScripted, nil
	default:
		return "", fmt.Errorf("unknown terminal mode %q", s)
	}
}

// eventBuffer matches the renderer's expected burst size.
const eventBuffer = 256

type Options struct {
	Mode       Mode
	Simulation generator.Config
	Script     []generator.ScriptLine
	// Source overrides the random source; nil seeds from the clock.
	Source generator.Source
	Clock  clockwork.Clock
	Logger *slog.Logger
}

// Session is one independent simulation bound to a viewer.
type Session struct {
	id      string
	mode    Mode
	gen     generator.Generator
	buf     *terminal.Buffer
	pause   *generator.PauseController
	out     chan Event
	cancel  context.CancelFunc
	stopped chan struct{} // closed by Stop before cancelling
	done    chan struct{}
	started time.Time
	log     *slog.Logger

	stopOnce sync.Once
	err      error
}

// Start builds the generator for opts.Mode and runs it until it finishes,
// ctx ends or Stop is called. Events must be drained by the caller until
// the channel closes, or the session released with Stop.
func Start(ctx context.Context, opts Options) (*Session, error) {
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Simulation.MaxDetections == 0 && opts.Simulation.Capacity == 0 {
		opts.Simulation = generator.DefaultConfig()
	}
	id := uuid.NewString()
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("session", id, "mode", string(mode))

	s := &Session{
		id:      id,
		mode:    mode,
		pause:   generator.NewPauseController(),
		out:     make(chan Event, eventBuffer),
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
		started: opts.Clock.Now(),
		log:     log,
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	genOpts := []generator.Option{
		generator.WithClock(opts.Clock),
		generator.WithLogger(log),
		generator.WithPause(s.pause),
	}
	if opts.Source != nil {
		genOpts = append(genOpts, generator.WithSource(opts.Source))
	}

	maxDetections := 0
	switch mode {
	case ModeScripted:
		script := opts.Script
		if len(script) == 0 {
			script = generator.DefaultScript()
		}
		g, err := generator.NewScripted(script, genOpts...)
		if err != nil {
			cancel()
			return nil, err
		}
		s.gen = g
	default:
		var detected int
		genOpts = append(genOpts, generator.WithHooks(generator.Hooks{
			OnPhase: func(from, to terminal.Phase) {
				metrics.PhaseTransition(from.String(), to.String())
				s.send(runCtx, PhaseChanged{From: from, To: to})
			},
			OnDetection: func(d generator.Detection) {
				detected++
				metrics.Detection()
				s.send(runCtx, DetectionFound{Detection: d})
				s.send(runCtx, Totals{Detections: detected, MaxDetections: opts.Simulation.MaxDetections, Lines: s.buf.Len()})
			},
		}))
		g, err := generator.NewProcedural(opts.Simulation, genOpts...)
		if err != nil {
			cancel()
			return nil, err
		}
		s.gen = g
		maxDetections = opts.Simulation.MaxDetections
	}
	s.buf = s.gen.Buffer()

	unsubscribe := s.buf.Subscribe(func(lines []terminal.Line) {
		metrics.LineEmitted(string(mode), lines[len(lines)-1].Kind.String())
		s.send(runCtx, LinesUpdated{Lines: lines, Phase: s.buf.PhaseLabel()})
	})

	metrics.SessionStarted(string(mode))
	log.Info("session started")

	go func() {
		defer close(s.out)
		defer close(s.done)
		defer unsubscribe()
		defer cancel()

		runErr := s.gen.Run(runCtx)
		outcome := "complete"
		switch {
		case runErr == nil:
		case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
			outcome = "cancelled"
			runErr = nil
		default:
			outcome = "failed"
			log.Error("generator stopped", "err", runErr)
		}
		s.err = runErr
		s.buf.Seal()

		elapsed := opts.Clock.Since(s.started)
		metrics.SessionEnded(string(mode), outcome, elapsed)
		log.Info("session ended", "outcome", outcome, "elapsed", elapsed.Truncate(time.Millisecond))

		final := Totals{MaxDetections: maxDetections, Lines: s.buf.Len(), Done: true, Err: runErr}
		if p, ok := s.gen.(*generator.Procedural); ok {
			final.Detections = p.Detections()
		}
		// runCtx is already done here; only Stop releases a reader that went away
		select {
		case s.out <- final:
		case <-s.stopped:
		}
	}()

	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Mode() Mode { return s.mode }

func (s *Session) Buffer() *terminal.Buffer { return s.buf }

func (s *Session) Generator() generator.Generator { return s.gen }

// Events yields renderer events and is closed after the final Totals.
func (s *Session) Events() <-chan Event { return s.out }

// Pause holds the generator at its next suspension point.
func (s *Session) Pause(paused bool) {
	s.pause.SetPaused(paused)
	s.log.Debug("session pause toggled", "paused", paused)
}

func (s *Session) Paused() bool { return s.pause.Paused() }

// Done is closed once the generator goroutine has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Stop cancels pending waits and blocks until the generator goroutine has
// exited. No buffer mutation happens after Stop returns.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		s.cancel()
		<-s.done
		s.buf.Seal()
	})
}

// Wait blocks until the session ends and returns the generator's error.
// Cancellation is not an error. The session ends once the final Totals
// has been received or Stop has been called.
func (s *Session) Wait() error {
	<-s.done
	return s.err
}

// send delivers ev unless ctx ends first, so a stalled renderer can never
// keep a cancelled generator alive.
func (s *Session) send(ctx context.Context, ev Event) {
	select {
	case s.out <- ev:
	case <-ctx.Done():
	}
}
