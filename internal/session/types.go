package session

import (
	"riftterm/internal/generator"
	"riftterm/internal/terminal"
)

// Event is what a session publishes to its renderer.
type Event interface {
	isEvent()
}

// Totals summarises progress. The final Totals of a session has Done set.
type Totals struct {
	Detections    int
	MaxDetections int
	Lines         int
	Done          bool
	Err           error
}

func (Totals) isEvent() {}

// LinesUpdated carries the buffer contents after an append.
type LinesUpdated struct {
	Lines []terminal.Line
	Phase string
}

func (LinesUpdated) isEvent() {}

type PhaseChanged struct {
	From terminal.Phase
	To   terminal.Phase
}

func (PhaseChanged) isEvent() {}

type DetectionFound struct {
	generator.Detection
}

func (DetectionFound) isEvent() {}
