package tui

import (
	"fmt"
	"strings"
	"time"

	"riftterm/internal/generator"
	"riftterm/internal/session"
	"riftterm/internal/terminal"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type focusArea int

const (
	focusTail focusArea = iota
	focusTable
)

var (
	cTitle = lipgloss.NewStyle().Bold(true)
	cDim   = lipgloss.NewStyle().Faint(true)

	box = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)

	headerBar = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, true, false).
			Padding(0, 1)

	badgeOK = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10")).
		Bold(true)

	badgeRun = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	badgeWarn = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true)

	badgeErr = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	lineSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lineWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	lineInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	cursor      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	keyHint = lipgloss.NewStyle().Faint(true)
)

// eventMsg tags a session event with the session it came from so events
// of a stopped session are dropped after a restart.
type eventMsg struct {
	id string
	ev session.Event
}

type model struct {
	width  int
	height int

	started time.Time

	prog progress.Model
	spin spinner.Model
	tab  table.Model
	tail viewport.Model

	cfg Config

	run   Runner
	start Starter

	// totals
	detections int
	lineCount  int
	phase      string

	done bool
	err  error

	lines []terminal.Line

	focus focusArea
}

func initialModel(r Runner, start Starter, cfg Config) model {
	if cfg.Capacity <= 0 {
		cfg.Capacity = terminal.DefaultCapacity
	}

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	s := spinner.New()
	s.Spinner = spinner.Dot

	cols := []table.Column{
		{Title: "#", Width: 3},
		{Title: "TxID", Width: 16},
		{Title: "Tag", Width: 22},
		{Title: "Amount", Width: 8},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(nil), table.WithFocused(false))
	t.SetHeight(minInt(12, maxInt(cfg.MaxDetections, 1)+1))

	st := table.DefaultStyles()
	st.Header = st.Header.Bold(true)
	st.Selected = st.Selected.Bold(true)
	t.SetStyles(st)

	vp := viewport.New(80, 16)
	vp.SetContent("")

	return model{
		started: time.Now(),
		prog:    p,
		spin:    s,
		tab:     t,
		tail:    vp,
		cfg:     cfg,
		run:     r,
		start:   start,
		phase:   initialPhase(cfg.Mode),
		lines:   make([]terminal.Line, 0, cfg.Capacity),
		focus:   focusTail,
	}
}

func initialPhase(mode session.Mode) string {
	if mode == session.ModeScripted {
		return "running"
	}
	return terminal.PhaseInit.String()
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spin.Tick,
		waitEvent(m.run),
	)
}

func waitEvent(r Runner) tea.Cmd {
	id, ch := r.ID(), r.Events()
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventMsg{id: id, ev: session.Totals{Done: true}}
		}
		return eventMsg{id: id, ev: ev}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.prog.Width = clamp(m.width-12, 20, 90)

		leftW, rightW := m.columns()
		if m.showTable() {
			cols := m.tab.Columns()
			cols[2].Width = clamp(leftW-36, 14, 30)
			m.tab.SetColumns(cols)
		}
		m.tail.Width = clamp(rightW-4, 26, 140)
		m.tail.Height = clamp(m.height-14, 8, 40)
		m.tail.SetContent(m.renderLines())
		m.tail.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.run.Stop()
			return m, tea.Quit
		case "p":
			if !m.done {
				m.run.Pause(!m.run.Paused())
			}
			return m, nil
		case "r":
			return m.restart()
		case "tab":
			if !m.showTable() {
				return m, nil
			}
			if m.focus == focusTail {
				m.focus = focusTable
				m.tab.Focus()
			} else {
				m.focus = focusTail
				m.tab.Blur()
			}
			return m, nil
		default:
			// route arrows to focused widget
			if m.focus == focusTable {
				var cmd tea.Cmd
				m.tab, cmd = m.tab.Update(msg)
				return m, cmd
			}
			var cmd tea.Cmd
			m.tail, cmd = m.tail.Update(msg)
			return m, cmd
		}

	case eventMsg:
		if msg.id != m.run.ID() {
			return m, nil
		}
		return m.handleEvent(msg.ev)

	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		if p, ok := pm.(progress.Model); ok {
			m.prog = p
		}
		return m, cmd

	default:
		return m, nil
	}
}

func (m model) handleEvent(ev session.Event) (tea.Model, tea.Cmd) {
	switch e := ev.(type) {
	case session.LinesUpdated:
		m.lines = e.Lines
		m.lineCount++
		if e.Phase != "" {
			m.phase = e.Phase
		}
		m.tail.SetContent(m.renderLines())
		m.tail.GotoBottom()
		return m, waitEvent(m.run)

	case session.PhaseChanged:
		m.phase = e.To.String()
		return m, waitEvent(m.run)

	case session.DetectionFound:
		rows := append([]table.Row(nil), m.tab.Rows()...)
		m.tab.SetRows(append(rows, detectionRow(e.Detection)))
		m.tab.GotoBottom()
		return m, waitEvent(m.run)

	case session.Totals:
		if e.Err != nil {
			m.err = e.Err
			m.done = true
			return m, nil
		}
		if e.Detections > 0 {
			m.detections = e.Detections
		}
		var cmd tea.Cmd
		if m.cfg.MaxDetections > 0 {
			cmd = m.prog.SetPercent(float64(m.detections) / float64(m.cfg.MaxDetections))
		}
		if e.Done {
			m.done = true
			if m.cfg.Mode == session.ModeScripted {
				m.phase = "done"
			}
			return m, cmd
		}
		return m, tea.Batch(cmd, waitEvent(m.run))

	default:
		return m, waitEvent(m.run)
	}
}

// restart replaces the session with a fresh instance; generators never
// restart in place.
func (m model) restart() (tea.Model, tea.Cmd) {
	m.run.Stop()
	r, err := m.start()
	if err != nil {
		m.err = err
		m.done = true
		return m, nil
	}
	m.run = r
	m.started = time.Now()
	m.detections = 0
	m.lineCount = 0
	m.phase = initialPhase(m.cfg.Mode)
	m.done = false
	m.err = nil
	m.lines = m.lines[:0]
	m.tab.SetRows(nil)
	m.tail.SetContent("")
	return m, tea.Batch(m.prog.SetPercent(0), waitEvent(m.run))
}

func (m model) View() string {
	statusBadge := badgeRun.Render(" " + strings.ToUpper(m.phase) + " ")
	switch {
	case m.err != nil:
		statusBadge = badgeErr.Render(" FAILED ")
	case m.done:
		statusBadge = badgeOK.Render(" " + strings.ToUpper(m.phase) + " ")
	case m.run.Paused():
		statusBadge = badgeWarn.Render(" PAUSED ")
	}

	headLeft := cTitle.Render(m.cfg.Title) + " " + statusBadge
	headRight := cDim.Render(fmt.Sprintf("mode=%s  scrollback=%d  session=%s", m.cfg.Mode, m.cfg.Capacity, shortID(m.run.ID())))
	header := headerBar.Width(maxInt(0, m.width-2)).Render(headLeft + "\n" + headRight)

	elapsed := time.Since(m.started).Truncate(100 * time.Millisecond)
	stats := fmt.Sprintf("Lines %d  Visible %d/%d  Elapsed %s", m.lineCount, len(m.lines), m.cfg.Capacity, elapsed)
	top := joinLines(header, "")
	if m.cfg.MaxDetections > 0 {
		stats = fmt.Sprintf("Detections %d/%d  ", m.detections, m.cfg.MaxDetections) + stats
		top = joinLines(top, m.prog.View())
	}
	top = joinLines(top, cDim.Render(stats))

	if m.err != nil {
		return joinLines(top, "", badgeErr.Render("ERROR: "+m.err.Error()))
	}

	leftW, rightW := m.columns()

	tailTitle := cTitle.Render("Terminal")
	footer := cursor.Render("▋") + " " + cDim.Render(m.cfg.Footer)
	if !m.done && !m.run.Paused() {
		footer = m.spin.View() + " " + footer
	}
	tailBox := box.Width(rightW).Render(tailTitle + "\n" + m.tail.View() + "\n" + footer)

	row := tailBox
	if m.showTable() {
		tableTitle := cTitle.Render("Detections")
		tableBox := box.Width(leftW).Render(tableTitle + "\n" + m.tab.View())
		row = lipgloss.JoinHorizontal(lipgloss.Top, tailBox, " ", tableBox)
	}

	hint := "Keys: p pause | r restart | ↑/↓ scroll | q quit"
	if m.showTable() {
		hint = "Keys: tab focus | p pause | r restart | ↑/↓ scroll (focused) | q quit"
	}

	return joinLines(
		top,
		"",
		row,
		"",
		keyHint.Render(hint),
	)
}

func (m model) showTable() bool { return m.cfg.Mode != session.ModeScripted }

// columns splits the width between the terminal pane and the detections table.
func (m model) columns() (int, int) {
	if !m.showTable() {
		return 0, maxInt(30, m.width-2)
	}
	leftW := clamp(m.width/3, 40, 70)
	rightW := maxInt(30, m.width-leftW-3)
	return leftW, rightW
}

func (m model) renderLines() string {
	out := make([]string, 0, len(m.lines))
	for _, ln := range m.lines {
		out = append(out, formatLine(ln))
	}
	return strings.Join(out, "\n")
}

func formatLine(l terminal.Line) string {
	ts := cDim.Render("[" + l.Timestamp + "]")
	if l.Blank() {
		return ts
	}
	return ts + " " + highlight(l)
}

func highlight(l terminal.Line) string {
	switch l.Kind {
	case terminal.KindSuccess:
		return lineSuccess.Render(l.Text)
	case terminal.KindWarning:
		return lineWarn.Render(l.Text)
	default:
		return lineInfo.Render(l.Text)
	}
}

func detectionRow(d generator.Detection) table.Row {
	return table.Row{
		fmt.Sprintf("%d", d.Index),
		d.TxID,
		d.Tag,
		generator.FormatAmount(d.Amount),
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func joinLines(lines ...string) string { return strings.Join(lines, "\n") }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
