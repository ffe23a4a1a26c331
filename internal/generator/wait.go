package generator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// PauseController holds a running generator at its next suspension point
// until resumed.
type PauseController struct {
	paused int32
	chMu   sync.Mutex
	ch     chan struct{} // closed on resume
}

func NewPauseController() *PauseController {
	return &PauseController{ch: make(chan struct{})}
}

func (p *PauseController) SetPaused(v bool) {
	if v {
		atomic.StoreInt32(&p.paused, 1)
		return
	}
	atomic.StoreInt32(&p.paused, 0)

	p.chMu.Lock()
	select {
	case <-p.ch:
	default:
		close(p.ch)
	}
	p.ch = make(chan struct{})
	p.chMu.Unlock()
}

func (p *PauseController) Paused() bool {
	return atomic.LoadInt32(&p.paused) == 1
}

// Wait blocks while paused. It returns ctx.Err() if ctx ends first.
func (p *PauseController) Wait(ctx context.Context) error {
	for atomic.LoadInt32(&p.paused) == 1 {
		p.chMu.Lock()
		ch := p.ch
		p.chMu.Unlock()
		// re-check after grabbing the channel so a resume in between is not missed
		if atomic.LoadInt32(&p.paused) == 0 {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// waiter is the single suspension primitive used by every generator.
type waiter struct {
	clock clockwork.Clock
	pause *PauseController
}

func (w waiter) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.pause != nil {
		if err := w.pause.Wait(ctx); err != nil {
			return err
		}
	}
	if d <= 0 {
		return nil
	}
	t := w.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Chan():
		return ctx.Err()
	}
}
