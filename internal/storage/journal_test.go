package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vovakirdan/screenstate/internal/screen"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("OpenJournal() failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournalOpenCreatesFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "deep", "journal.db")

	j, err := OpenJournal(dbPath)
	if err != nil {
		t.Fatalf("OpenJournal() with nested path failed: %v", err)
	}
	defer j.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Journal file was not created in nested directory")
	}
}

func TestJournalRecordAndRecent(t *testing.T) {
	j := openTestJournal(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	entries := []JournalEntry{
		{State: screen.StateAppRunning, Seconds: 5, Source: SourceTransition, EndedAt: base},
		{State: screen.StateUnlocked, Seconds: 3, Source: SourceTransition, EndedAt: base.Add(3 * time.Second)},
		{State: screen.StateScreenOff, Seconds: 60, Source: SourceProactive, EndedAt: base.Add(63 * time.Second)},
	}
	for _, e := range entries {
		if _, err := j.Record(e); err != nil {
			t.Fatalf("Record() failed: %v", err)
		}
	}

	recent, err := j.Recent(2)
	if err != nil {
		t.Fatalf("Recent() failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}

	// Newest first
	if recent[0].State != screen.StateScreenOff || recent[0].Source != SourceProactive {
		t.Errorf("newest entry = %+v, expected proactive ScreenOff", recent[0])
	}
	if recent[1].State != screen.StateUnlocked || recent[1].Seconds != 3 {
		t.Errorf("second entry = %+v, expected Unlocked 3s", recent[1])
	}
	if !recent[0].EndedAt.Equal(base.Add(63 * time.Second)) {
		t.Errorf("EndedAt = %v, expected %v", recent[0].EndedAt, base.Add(63*time.Second))
	}
}

func TestJournalSummaryByState(t *testing.T) {
	j := openTestJournal(t)

	j.Record(JournalEntry{State: screen.StateAppRunning, Seconds: 5})
	j.Record(JournalEntry{State: screen.StateAppRunning, Seconds: 2.5})
	j.Record(JournalEntry{State: screen.StateScreenOff, Seconds: 10})

	summary, err := j.SummaryByState()
	if err != nil {
		t.Fatalf("SummaryByState() failed: %v", err)
	}

	running := summary[screen.StateAppRunning]
	if running.Count != 2 || running.Seconds != 7.5 {
		t.Errorf("AppRunning summary = %+v, expected 2 entries / 7.5s", running)
	}
	if summary[screen.StateScreenOff].Count != 1 {
		t.Errorf("ScreenOff summary = %+v, expected 1 entry", summary[screen.StateScreenOff])
	}
	if _, ok := summary[screen.StateUnlocked]; ok {
		t.Error("Unlocked should have no summary")
	}
}

func TestJournalClear(t *testing.T) {
	j := openTestJournal(t)

	j.Record(JournalEntry{State: screen.StateUnlocked, Seconds: 1})
	if err := j.Clear(); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}

	recent, err := j.Recent(10)
	if err != nil {
		t.Fatalf("Recent() failed: %v", err)
	}
	if len(recent) != 0 {
		t.Errorf("expected empty journal after Clear, got %d entries", len(recent))
	}
}

func TestJournalRecentByState(t *testing.T) {
	j := openTestJournal(t)

	j.Record(JournalEntry{State: screen.StateAppRunning, Seconds: 1})
	j.Record(JournalEntry{State: screen.StateUnlocked, Seconds: 2})
	j.Record(JournalEntry{State: screen.StateAppRunning, Seconds: 3})

	got, err := j.RecentByState(screen.StateAppRunning, 10)
	if err != nil {
		t.Fatalf("RecentByState() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Seconds != 3 || got[1].Seconds != 1 {
		t.Errorf("entries = %+v, expected 3s then 1s", got)
	}

	none, err := j.RecentByState(screen.StateScreenOff, 10)
	if err != nil {
		t.Fatalf("RecentByState() failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no ScreenOff entries, got %d", len(none))
	}
}
