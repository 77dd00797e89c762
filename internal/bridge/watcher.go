package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/vovakirdan/screenstate/internal/storage"
)

// Watcher dispatches every complete line appended to a file. A platform
// helper reports signals by appending newline-terminated lines; truncating or
// recreating the file starts reading from the beginning again.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	sink    Sink
	logger  *log.Logger

	// offset is the number of bytes already dispatched.
	offset int64
}

// NewWatcher starts watching path. The parent directory must exist; the file
// itself may be created later. Content present before the call is skipped.
func NewWatcher(path string, sink Sink, logger *log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	expanded, err := storage.ExpandHome(path)
	if err != nil {
		return nil, fmt.Errorf("bridge: %w", err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("bridge: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("bridge: create watcher: %w", err)
	}

	// Watch the directory so atomic replacements of the file are seen
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("bridge: watch %s: %w", filepath.Dir(abs), err)
	}

	var offset int64
	if info, err := os.Stat(abs); err == nil {
		offset = info.Size()
	}

	return &Watcher{
		path:    abs,
		watcher: fw,
		sink:    sink,
		logger:  logger.WithPrefix("bridge"),
		offset:  offset,
	}, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Run processes file events until ctx is done, the watcher is closed, the
// sink stops or a QUIT line is read.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching signal file", "path", w.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.offset = 0
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !w.readNew(ctx) {
				return nil
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watch error", "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// readNew dispatches the complete lines written since the last call. A
// trailing partial line is left for the next write. Returns false once no
// more lines should be dispatched.
func (w *Watcher) readNew(ctx context.Context) bool {
	f, err := os.Open(w.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Warn("failed to open signal file", "path", w.path, "error", err)
		}
		return true
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		w.logger.Warn("failed to stat signal file", "path", w.path, "error", err)
		return true
	}
	if info.Size() < w.offset {
		w.logger.Debug("signal file truncated", "path", w.path)
		w.offset = 0
	}

	if _, err := f.Seek(w.offset, io.SeekStart); err != nil {
		w.logger.Warn("failed to seek signal file", "path", w.path, "error", err)
		return true
	}
	data, err := io.ReadAll(f)
	if err != nil {
		w.logger.Warn("failed to read signal file", "path", w.path, "error", err)
		return true
	}

	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return true
	}
	w.offset += int64(end + 1)

	more, err := feed(ctx, bytes.NewReader(data[:end+1]), w.sink, w.logger)
	if err != nil {
		w.logger.Warn("failed to read signal lines", "path", w.path, "error", err)
	}
	return more
}
