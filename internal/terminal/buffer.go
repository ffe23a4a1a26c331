package terminal

import (
	"errors"
	"sync"
)

// DefaultCapacity is the scrollback kept by the procedural terminal.
const DefaultCapacity = 50

// ErrBufferSealed is returned by Append once the owning session has ended
// or the generator has terminated.
var ErrBufferSealed = errors.New("terminal: buffer sealed")

// PhaseReader exposes the current phase of whatever drives the buffer.
type PhaseReader interface {
	Phase() Phase
}

// Buffer is a bounded, ordered scrollback of lines. Oldest entries are
// evicted first once the capacity is reached. Subscribers are called
// synchronously after every append, in append order.
type Buffer struct {
	// appendMu serializes append+notify so subscribers observe snapshots in order.
	appendMu sync.Mutex

	mu     sync.RWMutex
	lines  []Line
	start  int
	size   int
	max    int
	sealed bool
	phase  PhaseReader

	subs   map[int]func([]Line)
	nextID int
}

// NewBuffer returns a buffer holding at most capacity lines. A capacity
// below one is raised to one.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		lines: make([]Line, capacity),
		max:   capacity,
		subs:  make(map[int]func([]Line)),
	}
}

// Append adds line at the end, evicting the oldest entry when full, and
// returns the resulting contents.
func (b *Buffer) Append(line Line) ([]Line, error) {
	b.appendMu.Lock()
	defer b.appendMu.Unlock()

	b.mu.Lock()
	if b.sealed {
		b.mu.Unlock()
		return nil, ErrBufferSealed
	}
	if b.size < b.max {
		b.lines[(b.start+b.size)%b.max] = line
		b.size++
	} else {
		b.lines[b.start] = line
		b.start = (b.start + 1) % b.max
	}
	snap := b.snapshotLocked()
	subs := make([]func([]Line), 0, len(b.subs))
	for i := 0; i < b.nextID; i++ {
		if fn, ok := b.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(cloneLines(snap))
	}
	return snap, nil
}

// Lines returns a copy of the visible lines, oldest first.
func (b *Buffer) Lines() []Line {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshotLocked()
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

func (b *Buffer) Cap() int { return b.max }

// Subscribe registers fn to receive a snapshot after each append. The
// returned func removes the subscription.
func (b *Buffer) Subscribe(fn func([]Line)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Seal permanently rejects further appends. Contents stay readable.
func (b *Buffer) Seal() {
	b.mu.Lock()
	b.sealed = true
	b.mu.Unlock()
}

func (b *Buffer) Sealed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sealed
}

// BindPhase attaches the phase source used by PhaseLabel.
func (b *Buffer) BindPhase(r PhaseReader) {
	b.mu.Lock()
	b.phase = r
	b.mu.Unlock()
}

// PhaseLabel is informational only; the generator owns the phase.
// It is empty when no phase source is bound.
func (b *Buffer) PhaseLabel() string {
	b.mu.RLock()
	r := b.phase
	b.mu.RUnlock()
	if r == nil {
		return ""
	}
	return r.Phase().String()
}

func (b *Buffer) snapshotLocked() []Line {
	out := make([]Line, 0, b.size)
	for i := 0; i < b.size; i++ {
		out = append(out, b.lines[(b.start+i)%b.max])
	}
	return out
}

func cloneLines(in []Line) []Line {
	out := make([]Line, len(in))
	copy(out, in)
	return out
}
