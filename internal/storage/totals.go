// Package storage persists cumulative screen-state totals.
//
// Totals live in a single small JSON file. A SQLite journal of accumulated
// intervals is kept alongside for history views (see journal.go).
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/screenstate/internal/screen"
)

// TotalsFileName is the persistence key for all prior user data.
// Never rename it: existing installs would lose their totals.
const TotalsFileName = "monsterXhunter.json"

// Totals holds cumulative seconds spent in each tracked state.
type Totals struct {
	RunningTime   float64 `json:"totalRunningTime"`
	ScreenOffTime float64 `json:"totalScreenOffTime"`
	UnlockedTime  float64 `json:"totalUnlockedTime"`
}

// Add accumulates seconds into the bucket for state.
// Unknown states and non-positive durations are ignored.
// Returns true if a bucket was updated.
func (t *Totals) Add(state screen.DeviceState, seconds float64) bool {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return false
	}
	switch state {
	case screen.StateAppRunning:
		t.RunningTime += seconds
	case screen.StateScreenOff:
		t.ScreenOffTime += seconds
	case screen.StateUnlocked:
		t.UnlockedTime += seconds
	default:
		return false
	}
	return true
}

// Get returns the total for state, or 0 for Unknown.
func (t Totals) Get(state screen.DeviceState) float64 {
	switch state {
	case screen.StateAppRunning:
		return t.RunningTime
	case screen.StateScreenOff:
		return t.ScreenOffTime
	case screen.StateUnlocked:
		return t.UnlockedTime
	default:
		return 0
	}
}

// Sum returns the total across all buckets.
func (t Totals) Sum() float64 {
	return t.RunningTime + t.ScreenOffTime + t.UnlockedTime
}

// IsZero reports whether nothing has been recorded yet.
func (t Totals) IsZero() bool {
	return t.RunningTime == 0 && t.ScreenOffTime == 0 && t.UnlockedTime == 0
}

func (t Totals) valid() bool {
	for _, v := range []float64{t.RunningTime, t.ScreenOffTime, t.UnlockedTime} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// errCorrupt marks a totals file that exists but cannot be used.
var errCorrupt = errors.New("storage: corrupt totals file")

// FileStore reads and writes the totals file in a data directory.
type FileStore struct {
	path   string
	logger *log.Logger
}

// NewFileStore creates a store for the totals file inside dir.
// A leading ~ in dir is expanded to the user's home directory.
func NewFileStore(dir string, logger *log.Logger) (*FileStore, error) {
	dir, err := ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &FileStore{
		path:   filepath.Join(dir, TotalsFileName),
		logger: logger.WithPrefix("storage"),
	}, nil
}

// Path returns the full path of the totals file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the totals file. A missing file yields zeroed totals; an
// unreadable or malformed file is logged and also yields zeroed totals.
// Load never fails.
func (s *FileStore) Load() Totals {
	t, err := s.read()
	switch {
	case err == nil:
		s.logger.Info("totals loaded",
			"running", fmt.Sprintf("%.1fs", t.RunningTime),
			"screen_off", fmt.Sprintf("%.1fs", t.ScreenOffTime),
			"unlocked", fmt.Sprintf("%.1fs", t.UnlockedTime),
		)
		return t
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info("no totals file, starting fresh", "path", s.path)
	default:
		s.logger.Warn("discarding unreadable totals file", "path", s.path, "error", err)
	}
	return Totals{}
}

func (s *FileStore) read() (Totals, error) {
	var t Totals

	data, err := os.ReadFile(s.path)
	if err != nil {
		return t, err
	}
	if err := sonic.Unmarshal(data, &t); err != nil {
		return Totals{}, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	if !t.valid() {
		return Totals{}, fmt.Errorf("%w: negative or non-finite value", errCorrupt)
	}
	return t, nil
}

// Save overwrites the totals file. The write goes through a temporary file
// and a rename so a crash mid-write never leaves a truncated file.
// Errors are logged and returned; callers keep their in-memory totals.
func (s *FileStore) Save(t Totals) error {
	if err := s.write(t); err != nil {
		s.logger.Error("failed to save totals", "path", s.path, "error", err)
		return err
	}
	s.logger.Debug("totals saved",
		"running", fmt.Sprintf("%.1fs", t.RunningTime),
		"screen_off", fmt.Sprintf("%.1fs", t.ScreenOffTime),
		"unlocked", fmt.Sprintf("%.1fs", t.UnlockedTime),
	)
	return nil
}

func (s *FileStore) write(t Totals) error {
	data, err := sonic.Marshal(t)
	if err != nil {
		return fmt.Errorf("storage: cannot encode totals: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, TotalsFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("storage: cannot create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("storage: cannot write totals: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storage: cannot write totals: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storage: cannot replace totals file: %w", err)
	}
	return nil
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("storage: cannot expand home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}
