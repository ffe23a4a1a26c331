package printer

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"riftterm/internal/session"
	"riftterm/internal/terminal"
)

// Style holds per-kind colours for plain output.
type Style struct {
	Timestamp *color.Color
	Info      *color.Color
	Success   *color.Color
	Warning   *color.Color
	Phase     *color.Color
}

// NewStyle creates the standard palette. With noColor every colour is disabled.
func NewStyle(noColor bool) *Style {
	s := &Style{
		Timestamp: color.New(color.Faint),
		Info:      color.New(color.FgWhite),
		Success:   color.New(color.FgGreen),
		Warning:   color.New(color.FgYellow),
		Phase:     color.New(color.FgCyan, color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{s.Timestamp, s.Info, s.Success, s.Warning, s.Phase} {
			c.DisableColor()
		}
	}
	return s
}

func (s *Style) kind(k terminal.Kind) *color.Color {
	switch k {
	case terminal.KindSuccess:
		return s.Success
	case terminal.KindWarning:
		return s.Warning
	default:
		return s.Info
	}
}

// Printer writes a session's lines to w as they are appended.
type Printer struct {
	w          io.Writer
	style      *Style
	showPhases bool
}

func New(w io.Writer, style *Style, showPhases bool) *Printer {
	if style == nil {
		style = NewStyle(false)
	}
	return &Printer{w: w, style: style, showPhases: showPhases}
}

// Line renders one line as "[timestamp] text".
func (p *Printer) Line(l terminal.Line) string {
	ts := p.style.Timestamp.Sprintf("[%s]", l.Timestamp)
	if l.Blank() {
		return ts
	}
	return ts + " " + p.style.kind(l.Kind).Sprint(l.Text)
}

// Stream prints every appended line until the session's event channel
// closes or ctx ends, and returns the final totals.
func (p *Printer) Stream(ctx context.Context, events <-chan session.Event) (session.Totals, error) {
	var last session.Totals
	for {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return last, last.Err
			}
			switch e := ev.(type) {
			case session.LinesUpdated:
				if len(e.Lines) == 0 {
					continue
				}
				if _, err := fmt.Fprintln(p.w, p.Line(e.Lines[len(e.Lines)-1])); err != nil {
					return last, err
				}
			case session.PhaseChanged:
				if p.showPhases {
					fmt.Fprintln(p.w, p.style.Phase.Sprintf("-- phase %s -> %s --", e.From, e.To))
				}
			case session.Totals:
				last = e
			}
		}
	}
}
