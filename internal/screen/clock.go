package screen

import "time"

// Clock provides the current time to the tracker.
// This interface allows time to be controlled in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system clock. Values carry the monotonic reading,
// so elapsed durations are immune to wall-clock adjustments.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// ScreenProbe queries the platform for the actual screen state.
// On Android this is PowerManager.isInteractive.
type ScreenProbe interface {
	IsInteractive() (bool, error)
}
