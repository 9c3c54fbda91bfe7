package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/nodebeat/internal/status"
)

// LivenessFrames are the glyphs cycled once per published tick.
var LivenessFrames = spinner.MiniDot.Frames

// updateMsg carries one Board update into the program.
type updateMsg status.Update

// closedMsg signals the Board subscription was closed.
type closedMsg struct{}

// resyncMsg asks the model to reload rows from the Board.
type resyncMsg struct{}

// ResyncInterval bounds how long a row can stay stale after the
// subscription buffer overflowed and an update was dropped.
const ResyncInterval = time.Second

// DashboardOptions describe the run for the header line.
type DashboardOptions struct {
	Command  string
	Interval time.Duration
}

// Dashboard is the Bubble Tea model for the live status view.
// It shows one row per target in configuration order.
type Dashboard struct {
	board   *status.Board
	updates <-chan status.Update
	rows    []status.Update
	opts    DashboardOptions
	keys    keyMap
	width   int

	quitting bool
}

// NewDashboard subscribes to board and seeds rows from its current snapshot.
// Call Close once the program has exited.
func NewDashboard(board *status.Board, opts DashboardOptions) Dashboard {
	return Dashboard{
		board:   board,
		updates: board.Subscribe(),
		rows:    board.Snapshot(),
		opts:    opts,
		keys:    defaultKeyMap(),
	}
}

// Close releases the Board subscription.
func (m Dashboard) Close() {
	m.board.Unsubscribe(m.updates)
}

// Init starts listening for updates and schedules the first resync.
func (m Dashboard) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), resyncAfter(ResyncInterval))
}

func resyncAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return resyncMsg{} })
}

// waitForUpdate blocks for the next Board update.
func waitForUpdate(ch <-chan status.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return updateMsg(u)
	}
}

// Update handles messages and updates the model state.
func (m Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case updateMsg:
		m.apply(status.Update(msg))
		return m, waitForUpdate(m.updates)

	case resyncMsg:
		m.rows = m.board.Snapshot()
		return m, resyncAfter(ResyncInterval)

	case closedMsg:
		m.rows = m.board.Snapshot()
		return m, nil
	}

	return m, nil
}

func (m *Dashboard) apply(u status.Update) {
	for i := range m.rows {
		if m.rows[i].Target == u.Target {
			m.rows[i] = u
			return
		}
	}
}

// Rows returns the latest update per target, in configuration order.
func (m Dashboard) Rows() []status.Update {
	return m.rows
}

// View renders the dashboard.
func (m Dashboard) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	if m.opts.Command != "" {
		b.WriteString(MutedStyle.Render(fmt.Sprintf("%s every %s", m.opts.Command, m.opts.Interval)))
		b.WriteString("\n\n")
	}

	nameWidth := 0
	for _, r := range m.rows {
		nameWidth = max(nameWidth, lipgloss.Width(r.Target))
	}

	clip := lipgloss.NewStyle()
	if m.width > 0 {
		clip = clip.MaxWidth(m.width)
	}
	for _, r := range m.rows {
		b.WriteString(clip.Render(renderRow(r, nameWidth)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(MutedStyle.Render(m.keys.Quit.Help().Key + " " + m.keys.Quit.Help().Desc))
	return b.String()
}

// Glyph returns the liveness glyph for an update.
func Glyph(u status.Update) string {
	if u.Tick == 0 {
		if u.Line.Failed {
			return SymbolFail
		}
		return SymbolPending
	}
	return LivenessFrames[int(u.Tick%uint64(len(LivenessFrames)))]
}

func renderRow(u status.Update, nameWidth int) string {
	name := TargetNameStyle.Render(padRight(u.Target, nameWidth))
	head := SpinnerStyle.Render(Glyph(u)) + " " + name + "  "
	indent := strings.Repeat(" ", lipgloss.Width(head))

	body := bodyLines(u)
	style := lipgloss.NewStyle()
	switch {
	case u.Line.Failed:
		style = FailedStyle
	case u.Tick == 0:
		style = MutedStyle
	}

	var b strings.Builder
	for i, line := range body {
		if i == 0 {
			b.WriteString(head)
		} else {
			b.WriteString("\n")
			b.WriteString(indent)
		}
		b.WriteString(style.Render(line))
	}
	return b.String()
}

// bodyLines returns what a renderer shows for an update. An attempt that
// printed nothing still shows its timestamp.
func bodyLines(u status.Update) []string {
	switch {
	case u.Tick == 0 && u.Line.Timestamp == "":
		return []string{"waiting for first result"}
	case u.Line.Empty():
		return []string{u.Line.Timestamp + " - "}
	default:
		return u.Line.Lines
	}
}
