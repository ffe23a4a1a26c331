package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riftterm/internal/generator"
	"riftterm/internal/session"
	"riftterm/internal/terminal"
)

type fakeRunner struct {
	id      string
	events  chan session.Event
	paused  bool
	stopped int
}

func newFakeRunner(id string) *fakeRunner {
	return &fakeRunner{id: id, events: make(chan session.Event, 16)}
}

func (f *fakeRunner) ID() string { return f.id }
func (f *fakeRunner) Events() <-chan session.Event { return f.events }
func (f *fakeRunner) Pause(p bool) { f.paused = p }
func (f *fakeRunner) Paused() bool { return f.paused }
func (f *fakeRunner) Stop() { f.stopped++ }

var at = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func proceduralConfig() Config {
	return Config{
		Title:         "rift-protocol — mempool monitor",
		Footer:        "Listening for mempool transactions...",
		Mode:          session.ModeProcedural,
		MaxDetections: 15,
		Capacity:      terminal.DefaultCapacity,
	}
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(model)
	require.True(t, ok)
	return mm, cmd
}

func TestUpdate_LinesUpdatedRendersTail(t *testing.T) {
	r := newFakeRunner("s1")
	m := initialModel(r, nil, proceduralConfig())

	lines := []terminal.Line{
		terminal.NewLine("Connected. Monitoring mempool for RIFT tags...", terminal.KindSuccess, at),
		terminal.NewLine("", terminal.KindInfo, at),
	}
	m, cmd := update(t, m, eventMsg{id: "s1", ev: session.LinesUpdated{Lines: lines, Phase: "scanning"}})

	assert.NotNil(t, cmd, "should keep waiting for events")
	assert.Equal(t, "scanning", m.phase)
	assert.Equal(t, 1, m.lineCount)
	assert.Len(t, m.lines, 2)
	assert.Contains(t, m.tail.View(), "Connected. Monitoring mempool")
	assert.Contains(t, m.View(), "SCANNING")
}

func TestUpdate_StaleSessionEventsIgnored(t *testing.T) {
	r := newFakeRunner("current")
	m := initialModel(r, nil, proceduralConfig())

	m, cmd := update(t, m, eventMsg{id: "old", ev: session.LinesUpdated{Lines: []terminal.Line{terminal.NewLine("x", terminal.KindInfo, at)}}})
	assert.Nil(t, cmd)
	assert.Empty(t, m.lines)
}

func TestUpdate_DetectionAddsRow(t *testing.T) {
	r := newFakeRunner("s1")
	m := initialModel(r, nil, proceduralConfig())

	d := generator.Detection{Index: 1, TxID: "a1b2c3d4e5f6...", Tag: "RIFT:BTC_LOCK", Amount: 1.2345}
	m, _ = update(t, m, eventMsg{id: "s1", ev: session.DetectionFound{Detection: d}})
	m, _ = update(t, m, eventMsg{id: "s1", ev: session.Totals{Detections: 1, MaxDetections: 15}})

	rows := m.tab.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "1.2345", rows[0][3])
	assert.Equal(t, "RIFT:BTC_LOCK", rows[0][2])
	assert.Equal(t, 1, m.detections)
	assert.Contains(t, m.View(), "Detections 1/15")
}

func TestUpdate_PhaseAndDone(t *testing.T) {
	r := newFakeRunner("s1")
	m := initialModel(r, nil, proceduralConfig())

	m, _ = update(t, m, eventMsg{id: "s1", ev: session.PhaseChanged{From: terminal.PhaseScanning, To: terminal.PhaseProcessing}})
	assert.Equal(t, "processing", m.phase)

	m, _ = update(t, m, eventMsg{id: "s1", ev: session.PhaseChanged{From: terminal.PhaseProcessing, To: terminal.PhaseComplete}})
	m, _ = update(t, m, eventMsg{id: "s1", ev: session.Totals{Detections: 15, MaxDetections: 15, Done: true}})
	assert.True(t, m.done)
	assert.Equal(t, 15, m.detections)
	assert.Contains(t, m.View(), "COMPLETE")
}

func TestUpdate_ErrorShown(t *testing.T) {
	r := newFakeRunner("s1")
	m := initialModel(r, nil, proceduralConfig())
	m, cmd := update(t, m, eventMsg{id: "s1", ev: session.Totals{Done: true, Err: errors.New("boom")}})
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "ERROR: boom")
}

func TestUpdate_PauseToggle(t *testing.T) {
	r := newFakeRunner("s1")
	m := initialModel(r, nil, proceduralConfig())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	assert.True(t, r.paused)
	assert.Contains(t, m.View(), "PAUSED")

	_, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	assert.False(t, r.paused)
}

func TestUpdate_RestartStartsFreshSession(t *testing.T) {
	first := newFakeRunner("first")
	second := newFakeRunner("second")
	m := initialModel(first, func() (Runner, error) { return second, nil }, proceduralConfig())

	m, _ = update(t, m, eventMsg{id: "first", ev: session.LinesUpdated{Lines: []terminal.Line{terminal.NewLine("x", terminal.KindInfo, at)}, Phase: "scanning"}})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})

	assert.NotNil(t, cmd)
	assert.Equal(t, 1, first.stopped)
	assert.Equal(t, "second", m.run.ID())
	assert.Empty(t, m.lines)
	assert.Equal(t, "init", m.phase)
	assert.Zero(t, m.detections)

	m, _ = update(t, m, eventMsg{id: "first", ev: session.LinesUpdated{Lines: []terminal.Line{terminal.NewLine("late", terminal.KindInfo, at)}}})
	assert.Empty(t, m.lines, "events from the stopped session must be dropped")
}

func TestUpdate_QuitStopsSession(t *testing.T) {
	r := newFakeRunner("s1")
	m := initialModel(r, nil, proceduralConfig())
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, 1, r.stopped)
}

func TestWaitEvent_ClosedChannelEndsSession(t *testing.T) {
	r := newFakeRunner("s1")
	close(r.events)
	msg := waitEvent(r)()
	em, ok := msg.(eventMsg)
	require.True(t, ok)
	assert.Equal(t, "s1", em.id)
	assert.Equal(t, session.Totals{Done: true}, em.ev)
}

func TestView_ScriptedHidesTable(t *testing.T) {
	r := newFakeRunner("s1")
	m := initialModel(r, nil, Config{
		Title:  "rift-protocol — watcher output",
		Footer: "Awaiting next batch...",
		Mode:   session.ModeScripted,
	})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	v := m.View()
	assert.NotContains(t, v, "Detections")
	assert.Contains(t, v, "Awaiting next batch...")
	assert.Contains(t, v, "RUNNING")

	m, _ = update(t, m, eventMsg{id: "s1", ev: session.Totals{Done: true}})
	assert.True(t, strings.Contains(m.View(), "DONE"))
}

func TestFormatLine_BlankKeepsTimestamp(t *testing.T) {
	l := terminal.NewLine("", terminal.KindInfo, at)
	assert.Contains(t, formatLine(l), "[12:00:00.000]")
}
