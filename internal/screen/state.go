// Package screen tracks which of three mutually exclusive device states the
// app is in and how long each state lasted.
//
// The tracker is driven by two independent inputs: whether the app is in the
// foreground and whether the screen is on. Every change of the derived state
// produces a Transition carrying the state that just ended and its duration.
package screen

import (
	"errors"
	"fmt"
	"strings"
)

// DeviceState is the derived device/app state.
type DeviceState int

const (
	StateUnknown    DeviceState = iota // Initial state, never reported as a completed interval
	StateAppRunning                    // App in foreground
	StateScreenOff                     // App in background, screen off
	StateUnlocked                      // App in background, screen on
)

// String returns a human-readable name for the state.
func (s DeviceState) String() string {
	switch s {
	case StateUnknown:
		return "Unknown"
	case StateAppRunning:
		return "AppRunning"
	case StateScreenOff:
		return "ScreenOff"
	case StateUnlocked:
		return "Unlocked"
	default:
		return fmt.Sprintf("DeviceState(%d)", int(s))
	}
}

// Tracked reports whether durations are attributed to this state.
func (s DeviceState) Tracked() bool {
	return s == StateAppRunning || s == StateScreenOff || s == StateUnlocked
}

// TrackedStates lists the states that own a totals bucket, in display order.
var TrackedStates = []DeviceState{StateScreenOff, StateUnlocked, StateAppRunning}

// Derive computes the device state from the two tracker inputs.
func Derive(appInForeground, screenOn bool) DeviceState {
	if appInForeground {
		return StateAppRunning
	}
	if !screenOn {
		return StateScreenOff
	}
	return StateUnlocked
}

// Signal is a discrete screen event delivered by the platform bridge.
type Signal int

const (
	SignalScreenOff   Signal = iota + 1 // SCREEN_OFF
	SignalScreenOn                      // SCREEN_ON
	SignalUserPresent                   // USER_PRESENT, device unlocked
)

// ErrUnknownSignal is returned by ParseSignal for unrecognized tags.
var ErrUnknownSignal = errors.New("screen: unknown signal")

// String returns the wire tag of the signal.
func (s Signal) String() string {
	switch s {
	case SignalScreenOff:
		return "SCREEN_OFF"
	case SignalScreenOn:
		return "SCREEN_ON"
	case SignalUserPresent:
		return "USER_PRESENT"
	default:
		return fmt.Sprintf("Signal(%d)", int(s))
	}
}

// ScreenOn reports the screen state implied by the signal.
// SCREEN_ON and USER_PRESENT both mean the screen is on.
func (s Signal) ScreenOn() bool {
	return s != SignalScreenOff
}

// ParseSignal converts a string tag from the platform bridge to a Signal.
func ParseSignal(tag string) (Signal, error) {
	switch strings.ToUpper(strings.TrimSpace(tag)) {
	case "SCREEN_OFF":
		return SignalScreenOff, nil
	case "SCREEN_ON":
		return SignalScreenOn, nil
	case "USER_PRESENT":
		return SignalUserPresent, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSignal, tag)
}

// ParseState converts a state name produced by String back to a DeviceState.
func ParseState(name string) (DeviceState, bool) {
	for _, s := range []DeviceState{StateUnknown, StateAppRunning, StateScreenOff, StateUnlocked} {
		if strings.EqualFold(name, s.String()) {
			return s, true
		}
	}
	return StateUnknown, false
}
