package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/screenstate/internal/screen"
	"github.com/vovakirdan/screenstate/internal/storage"
)

// History browser layout constants
const (
	minWidthForSidebar = 80  // Minimum width to show the filter sidebar
	sidebarWidth       = 18  // Width of the filter sidebar
	maxEntries         = 200 // Max intervals to load
)

// JournalReader is the part of the journal the history browser needs.
type JournalReader interface {
	HistorySource
	RecentByState(state screen.DeviceState, limit int) ([]storage.JournalEntry, error)
}

// historyFilter is one sidebar entry. StateUnknown means all states.
type historyFilter struct {
	title string
	state screen.DeviceState
}

var historyFilters = []historyFilter{
	{"All", screen.StateUnknown},
	{"AppRunning", screen.StateAppRunning},
	{"Unlocked", screen.StateUnlocked},
	{"ScreenOff", screen.StateScreenOff},
}

// HistoryKeyMap defines the key bindings for the history browser.
type HistoryKeyMap struct {
	Up         key.Binding
	Down       key.Binding
	NextFilter key.Binding
	PrevFilter key.Binding
	Quit       key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k HistoryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.NextFilter, k.PrevFilter, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k HistoryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextFilter, k.PrevFilter},
		{k.Quit},
	}
}

// DefaultHistoryKeyMap returns default key bindings.
func DefaultHistoryKeyMap() HistoryKeyMap {
	return HistoryKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "scroll down"),
		),
		NextFilter: key.NewBinding(
			key.WithKeys("tab", "right", "l"),
			key.WithHelp("tab", "next state"),
		),
		PrevFilter: key.NewBinding(
			key.WithKeys("shift+tab", "left", "h"),
			key.WithHelp("S-tab", "prev state"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// HistoryModel is the Bubble Tea model for browsing the interval journal.
type HistoryModel struct {
	journal     JournalReader
	cursor      int // selected filter
	entries     []storage.JournalEntry
	err         error
	table       table.Model
	help        help.Model
	keys        HistoryKeyMap
	width       int
	height      int
	quitting    bool
	showSidebar bool
}

// NewHistoryModel creates a history browser over journal.
func NewHistoryModel(journal JournalReader, width, height int) HistoryModel {
	h := help.New()
	h.ShowAll = false

	m := HistoryModel{
		journal:     journal,
		keys:        DefaultHistoryKeyMap(),
		help:        h,
		width:       width,
		height:      height,
		showSidebar: width >= minWidthForSidebar,
	}
	m.table = m.createTable()
	m.load()
	return m
}

// createTable creates a new table sized to the window.
func (m *HistoryModel) createTable() table.Model {
	columns := []table.Column{
		{Title: "Ended", Width: 19},
		{Title: "State", Width: 10},
		{Title: "Seconds", Width: 10},
		{Title: "Source", Width: 10},
	}

	height := m.height - 8 // Leave room for header, help, and margins
	if height < 3 {
		height = 3
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

// load fetches entries for the selected filter.
func (m *HistoryModel) load() {
	f := historyFilters[m.cursor]
	if f.state == screen.StateUnknown {
		m.entries, m.err = m.journal.Recent(maxEntries)
	} else {
		m.entries, m.err = m.journal.RecentByState(f.state, maxEntries)
	}
	m.updateTableRows()
}

func (m *HistoryModel) updateTableRows() {
	rows := make([]table.Row, len(m.entries))
	for i, e := range m.entries {
		rows[i] = table.Row{
			e.EndedAt.Local().Format("2006-01-02 15:04:05"),
			e.State.String(),
			fmt.Sprintf("%.1f", e.Seconds),
			string(e.Source),
		}
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

// Init initializes the history model.
func (m HistoryModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the history browser.
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.NextFilter):
			m.cursor = (m.cursor + 1) % len(historyFilters)
			m.load()
			return m, nil

		case key.Matches(msg, m.keys.PrevFilter):
			m.cursor--
			if m.cursor < 0 {
				m.cursor = len(historyFilters) - 1
			}
			m.load()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.showSidebar = m.width >= minWidthForSidebar
		m.table = m.createTable()
		m.updateTableRows()
		m.help.Width = msg.Width
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the history browser.
func (m HistoryModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	title := fmt.Sprintf("HISTORY - %s", historyFilters[m.cursor].title)
	b.WriteString(titleStyle.MarginBottom(1).Render(centerText(title, m.width)))
	b.WriteString("\n\n")

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	content := boxStyle.Render(m.renderTableContent())
	if m.showSidebar {
		content = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), "  ", content)
	}
	b.WriteString(content)

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

func (m HistoryModel) renderSidebar() string {
	sidebarStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(sidebarWidth).
		Padding(0, 1)

	var sb strings.Builder
	sb.WriteString("States\n")
	sb.WriteString(strings.Repeat("-", sidebarWidth-4))
	sb.WriteString("\n")

	for i, f := range historyFilters {
		cursor := "  "
		style := lipgloss.NewStyle()
		if i == m.cursor {
			cursor = "> "
			style = style.Bold(true).Foreground(lipgloss.Color("229"))
		}
		sb.WriteString(style.Render(cursor + f.title))
		sb.WriteString("\n")
	}

	return sidebarStyle.Render(sb.String())
}

func (m HistoryModel) renderTableContent() string {
	emptyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Italic(true).
		Padding(2, 4)

	if m.err != nil {
		return emptyStyle.Render(fmt.Sprintf("Could not read history:\n%v", m.err))
	}
	if len(m.entries) == 0 {
		return emptyStyle.Render("No intervals recorded yet.")
	}
	return m.table.View()
}

// Entries returns the intervals currently listed.
func (m HistoryModel) Entries() []storage.JournalEntry {
	return m.entries
}

// RunHistory runs the history browser until the user quits.
func RunHistory(journal JournalReader, width, height int) error {
	p := tea.NewProgram(
		NewHistoryModel(journal, width, height),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
