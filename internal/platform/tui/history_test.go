package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/screenstate/internal/screen"
	"github.com/vovakirdan/screenstate/internal/storage"
)

type fakeJournal struct {
	entries []storage.JournalEntry
	err     error
}

func (j fakeJournal) Recent(limit int) ([]storage.JournalEntry, error) {
	if j.err != nil {
		return nil, j.err
	}
	return j.entries, nil
}

func (j fakeJournal) RecentByState(state screen.DeviceState, limit int) ([]storage.JournalEntry, error) {
	var out []storage.JournalEntry
	for _, e := range j.entries {
		if e.State == state {
			out = append(out, e)
		}
	}
	return out, j.err
}

func TestHistoryModel_Filters(t *testing.T) {
	j := fakeJournal{entries: []storage.JournalEntry{
		{ID: 3, State: screen.StateScreenOff, Seconds: 60, Source: storage.SourceProactive},
		{ID: 2, State: screen.StateUnlocked, Seconds: 3, Source: storage.SourceTransition},
		{ID: 1, State: screen.StateAppRunning, Seconds: 5, Source: storage.SourceTransition},
	}}

	var model tea.Model = NewHistoryModel(j, 100, 30)
	if got := len(model.(HistoryModel).Entries()); got != 3 {
		t.Fatalf("All filter shows %d entries, want 3", got)
	}

	tab := tea.KeyMsg{Type: tea.KeyTab}
	model, _ = model.Update(tab)
	entries := model.(HistoryModel).Entries()
	if len(entries) != 1 || entries[0].State != screen.StateAppRunning {
		t.Errorf("AppRunning filter = %+v", entries)
	}
	if !strings.Contains(model.View(), "HISTORY - AppRunning") {
		t.Error("title should name the selected filter")
	}

	shiftTab := tea.KeyMsg{Type: tea.KeyShiftTab}
	model, _ = model.Update(shiftTab)
	model, _ = model.Update(shiftTab)
	entries = model.(HistoryModel).Entries()
	if len(entries) != 1 || entries[0].State != screen.StateScreenOff {
		t.Errorf("wrapped filter = %+v, want ScreenOff only", entries)
	}
}

func TestHistoryModel_Empty(t *testing.T) {
	m := NewHistoryModel(fakeJournal{}, 60, 20)
	if !strings.Contains(m.View(), "No intervals recorded yet.") {
		t.Errorf("empty View() = %q", m.View())
	}
}

func TestHistoryModel_Error(t *testing.T) {
	m := NewHistoryModel(fakeJournal{err: errors.New("disk gone")}, 60, 20)
	if !strings.Contains(m.View(), "disk gone") {
		t.Errorf("View() should show the error, got %q", m.View())
	}
}

func TestHistoryModel_Quit(t *testing.T) {
	m := NewHistoryModel(fakeJournal{}, 60, 20)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("quit should return a command")
	}
	if updated.View() != "" {
		t.Error("View() should be empty after quit")
	}
}
