package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vovakirdan/screenstate/internal/app"
	"github.com/vovakirdan/screenstate/internal/screen"
	"github.com/vovakirdan/screenstate/internal/storage"
)

// Dashboard layout constants
const (
	panelWidth       = 22
	defaultInterval  = 100 * time.Millisecond
	recentIntervals  = 5
	minWidthForPanes = 3*panelWidth + 8 // three panels side by side
)

// Panel order on screen.
var panelStates = []screen.DeviceState{
	screen.StateScreenOff,
	screen.StateUnlocked,
	screen.StateAppRunning,
}

// Source is what the dashboard reads from and controls. *app.App implements it.
type Source interface {
	Snapshot() app.Snapshot
	Dispatch(ev app.Event) bool
	Subscribe() (<-chan screen.Transition, func())
}

// HistorySource lists recently accumulated intervals.
type HistorySource interface {
	Recent(limit int) ([]storage.JournalEntry, error)
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Width(panelWidth).
			Padding(0, 1)

	activePanelStyle = panelStyle.
				BorderForeground(lipgloss.Color("57")).
				Foreground(lipgloss.Color("229")).
				Bold(true)

	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// DashboardOption configures a Dashboard.
type DashboardOption func(*Dashboard)

// WithInterval sets the refresh interval.
func WithInterval(d time.Duration) DashboardOption {
	return func(m *Dashboard) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithReadOnly disables all keys except quit. Quitting a read-only dashboard
// does not stop the app.
func WithReadOnly() DashboardOption {
	return func(m *Dashboard) {
		m.readOnly = true
	}
}

// WithHistory shows the last few accumulated intervals below the panels.
func WithHistory(h HistorySource) DashboardOption {
	return func(m *Dashboard) {
		m.history = h
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) DashboardOption {
	return func(m *Dashboard) {
		m.width = width
		m.height = height
		m.help.Width = width
	}
}

// WithTitle overrides the header text.
func WithTitle(title string) DashboardOption {
	return func(m *Dashboard) {
		m.title = title
	}
}

// Dashboard is the Bubble Tea model showing time spent in each screen state.
type Dashboard struct {
	source      Source
	history     HistorySource
	transitions <-chan screen.Transition
	unsubscribe func()

	interval time.Duration
	title    string
	readOnly bool
	keys     DashboardKeyMap
	help     help.Model

	snap      app.Snapshot
	lifecycle lifecycle
	recent    []storage.JournalEntry
	width     int
	height    int
	quitting  bool
}

// NewDashboard creates a dashboard subscribed to src.
func NewDashboard(src Source, opts ...DashboardOption) Dashboard {
	m := Dashboard{
		source:    src,
		interval:  defaultInterval,
		title:     "SCREEN STATE",
		keys:      DefaultDashboardKeyMap(),
		help:      help.New(),
		lifecycle: lifecycle{focused: true},
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.readOnly {
		m.keys = m.keys.ReadOnly()
	}

	m.transitions, m.unsubscribe = src.Subscribe()
	m.refresh()
	return m
}

// Close stops receiving transitions.
func (m Dashboard) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init starts the refresh tick and the transition listener.
func (m Dashboard) Init() tea.Cmd {
	return tea.Batch(tickCmd(m.interval), waitTransition(m.transitions))
}

// Update handles messages.
func (m Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case TickMsg:
		m.snap = m.source.Snapshot()
		return m, tickCmd(m.interval)

	case TransitionMsg:
		m.refresh()
		return m, waitTransition(m.transitions)

	case closedMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m Dashboard) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if !m.readOnly {
			m.source.Dispatch(app.QuitEvent{})
		}
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if ev := m.keys.MapKey(msg, &m.lifecycle); ev != nil {
		m.source.Dispatch(ev)
		m.snap = m.source.Snapshot()
	}
	return m, nil
}

// refresh reloads the snapshot and the recent history.
func (m *Dashboard) refresh() {
	m.snap = m.source.Snapshot()
	if m.history == nil {
		return
	}
	recent, err := m.history.Recent(recentIntervals)
	if err == nil {
		m.recent = recent
	}
}

// Snapshot returns the snapshot currently displayed.
func (m Dashboard) Snapshot() app.Snapshot {
	return m.snap
}

// IsQuitting returns true once the dashboard has been asked to quit.
func (m Dashboard) IsQuitting() bool {
	return m.quitting
}

// View renders the dashboard.
func (m Dashboard) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(centerText(m.title, m.width)))
	b.WriteString("\n\n")

	panels := make([]string, len(panelStates))
	for i, s := range panelStates {
		style := panelStyle
		if s == m.snap.State {
			style = activePanelStyle
		}
		panels[i] = style.Render(PanelText(s, m.snap))
	}
	if m.width == 0 || m.width >= minWidthForPanes {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, panels[0], " ", panels[1], " ", panels[2]))
	} else {
		b.WriteString(lipgloss.JoinVertical(lipgloss.Left, panels...))
	}
	b.WriteString("\n")

	b.WriteString(statusStyle.Render(m.statusLine()))
	b.WriteString("\n")

	if len(m.recent) > 0 {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(RecentText(m.recent)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

func (m Dashboard) statusLine() string {
	if m.readOnly {
		return fmt.Sprintf("State: %s  (viewer)", m.snap.State)
	}
	return fmt.Sprintf("State: %s  paused: %s  focused: %s",
		m.snap.State, yesNo(m.lifecycle.paused), yesNo(m.lifecycle.focused))
}

// PanelText renders one state panel. Only the current state's panel shows a
// running timer; totals are the saved values.
func PanelText(state screen.DeviceState, snap app.Snapshot) string {
	current := 0.0
	if snap.State == state {
		current = snap.Elapsed.Seconds()
	}
	return fmt.Sprintf("%s\nCurrent: %.1fs\nTotal: %.1fs", state, current, snap.Totals.Get(state))
}

// RecentText renders the last accumulated intervals, newest first.
func RecentText(entries []storage.JournalEntry) string {
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, "Recent")
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("  %s  %-10s +%.1fs  %s",
			e.EndedAt.Local().Format("15:04:05"), e.State, e.Seconds, e.Source))
	}
	return strings.Join(lines, "\n")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func centerText(text string, width int) string {
	w := runewidth.StringWidth(text)
	if w >= width {
		return text
	}
	padding := (width - w) / 2
	return strings.Repeat(" ", padding) + text
}

// RunDashboard runs the dashboard in the terminal until it quits.
func RunDashboard(src Source, opts ...DashboardOption) error {
	model := NewDashboard(src, opts...)
	defer model.Close()

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
