// Package generator drives a terminal.Buffer with synthetic watcher output.
//
// Two strategies are provided: Procedural, an open-ended randomized
// simulation advancing through phases, and Scripted, a fixed list of lines
// revealed at fixed offsets. Each instance owns its own clock, random
// source and counters; instances share nothing.
//
// Run blocks until the generator finishes or ctx is cancelled. All waiting
// happens at explicit suspension points that select on ctx, so cancelling
// ctx and waiting for Run to return guarantees no further appends.
package generator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"riftterm/internal/terminal"
)

// ErrAlreadyStarted is returned when Run is called twice on one instance.
var ErrAlreadyStarted = errors.New("generator: already started")

type Generator interface {
	Run(ctx context.Context) error
	Buffer() *terminal.Buffer
}

// Detection describes a synthesized transaction that carried a RIFT tag.
type Detection struct {
	Index   int     `json:"index"`
	TxID    string  `json:"txid"`
	Address string  `json:"address"`
	Tag     string  `json:"tag"`
	Amount  float64 `json:"amount"`
}

// Hooks are called on the generator goroutine.
type Hooks struct {
	OnPhase     func(from, to terminal.Phase)
	OnDetection func(Detection)
}

type options struct {
	clock  clockwork.Clock
	source Source
	logger *slog.Logger
	pause  *PauseController
	hooks  Hooks
}

type Option func(*options)

func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithSource(s Source) Option {
	return func(o *options) { o.source = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithPause(p *PauseController) Option {
	return func(o *options) { o.pause = p }
}

func WithHooks(h Hooks) Option {
	return func(o *options) { o.hooks = h }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.clock == nil {
		o.clock = clockwork.NewRealClock()
	}
	if o.source == nil {
		o.source = NewSource(uint64(time.Now().UnixNano()))
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}
