// Package bridge turns platform signal lines into app events.
//
// Each line holds one command:
//
//	SCREEN_OFF | SCREEN_ON | USER_PRESENT
//	PAUSE true|false
//	FOCUS true|false
//	FOREGROUND true|false
//	STATE AppRunning|Unlocked|ScreenOff
//	QUIT
//
// Blank lines and lines starting with # are ignored.
package bridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/screenstate/internal/app"
	"github.com/vovakirdan/screenstate/internal/screen"
)

var (
	// ErrEmptyLine is returned for blank and comment lines.
	ErrEmptyLine = errors.New("bridge: empty line")

	// ErrUnknownCommand is returned for lines that are not a known command.
	ErrUnknownCommand = errors.New("bridge: unknown command")
)

// Sink receives parsed events. *app.App implements it.
type Sink interface {
	Dispatch(ev app.Event) bool
}

// ParseLine parses one signal line.
func ParseLine(line string) (app.Event, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, ErrEmptyLine
	}

	fields := strings.Fields(line)
	cmd := strings.ToUpper(fields[0])
	args := fields[1:]

	if sig, err := screen.ParseSignal(cmd); err == nil {
		if len(args) != 0 {
			return nil, fmt.Errorf("%w: %s takes no argument", ErrUnknownCommand, cmd)
		}
		return app.ScreenEvent{Signal: sig}, nil
	}

	switch cmd {
	case "PAUSE", "FOCUS", "FOREGROUND":
		v, err := boolArg(cmd, args)
		if err != nil {
			return nil, err
		}
		switch cmd {
		case "PAUSE":
			return app.PauseEvent{Paused: v}, nil
		case "FOCUS":
			return app.FocusEvent{Focused: v}, nil
		default:
			return app.ForegroundEvent{Foreground: v}, nil
		}

	case "STATE":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: STATE needs a state name", ErrUnknownCommand)
		}
		return stateEvent(args[0])

	case "QUIT":
		return app.QuitEvent{}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
}

func boolArg(cmd string, args []string) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("%w: %s needs true or false", ErrUnknownCommand, cmd)
	}
	v, err := strconv.ParseBool(args[0])
	if err != nil {
		return false, fmt.Errorf("%w: %s %q", ErrUnknownCommand, cmd, args[0])
	}
	return v, nil
}

func stateEvent(name string) (app.Event, error) {
	state, ok := screen.ParseState(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown state %q", ErrUnknownCommand, name)
	}
	switch state {
	case screen.StateAppRunning:
		return app.PresetAppRunning, nil
	case screen.StateUnlocked:
		return app.PresetUnlocked, nil
	case screen.StateScreenOff:
		return app.PresetScreenOff, nil
	}
	return nil, fmt.Errorf("%w: state %s cannot be forced", ErrUnknownCommand, state)
}

// Feed reads lines from r and dispatches them to sink until EOF, a QUIT
// line, ctx cancellation or a stopped sink. Malformed lines are logged and
// skipped.
func Feed(ctx context.Context, r io.Reader, sink Sink, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	_, err := feed(ctx, r, sink, logger.WithPrefix("bridge"))
	return err
}

// feed dispatches every line of r in order. It returns false once no further
// lines should be sent: after QUIT, a stopped sink or ctx cancellation.
func feed(ctx context.Context, r io.Reader, sink Sink, logger *log.Logger) (bool, error) {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return false, nil
		}
		lineNo++

		ev, err := ParseLine(scanner.Text())
		if errors.Is(err, ErrEmptyLine) {
			continue
		}
		if err != nil {
			logger.Warn("skipping line", "line", lineNo, "error", err)
			continue
		}

		logger.Debug("dispatching", "line", lineNo, "event", fmt.Sprintf("%T", ev))
		if !sink.Dispatch(ev) {
			return false, nil
		}
		if _, quit := ev.(app.QuitEvent); quit {
			return false, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return true, fmt.Errorf("bridge: read: %w", err)
	}
	return true, nil
}
