package terminal

import (
	"fmt"
	"time"
)

// TimestampLayout matches the renderer's HH:MM:SS.mmm column.
const TimestampLayout = "15:04:05.000"

type Kind int

const (
	KindInfo Kind = iota
	KindSuccess
	KindWarning
)

func (k Kind) String() string {
	switch k {
	case KindInfo:
		return "info"
	case KindSuccess:
		return "success"
	case KindWarning:
		return "warning"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Line is one row of terminal output. Text and Kind are fixed at creation.
type Line struct {
	Text      string        `json:"text"`
	Kind      Kind          `json:"kind"`
	Timestamp string        `json:"timestamp"`
	EmitAfter time.Duration `json:"emitAfter,omitempty"`
}

// NewLine stamps a line with the capture time.
func NewLine(text string, kind Kind, now time.Time) Line {
	return Line{Text: text, Kind: kind, Timestamp: now.Format(TimestampLayout)}
}

// Blank reports whether the line renders as an empty placeholder row.
func (l Line) Blank() bool { return l.Text == "" }
