package screen

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

type manualClock struct {
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type stubProbe struct {
	on  bool
	err error
}

func (p *stubProbe) IsInteractive() (bool, error) { return p.on, p.err }

// recorder collects transitions in delivery order.
type recorder struct {
	got []Transition
}

func (r *recorder) OnTransition(tr Transition) { r.got = append(r.got, tr) }

func newTestTracker(opts ...Option) (*Tracker, *manualClock, *recorder) {
	clock := newManualClock()
	opts = append([]Option{WithClock(clock)}, opts...)
	tr := NewTracker(nil, opts...)
	rec := &recorder{}
	tr.Subscribe(rec)
	return tr, clock, rec
}

func TestDerive(t *testing.T) {
	tests := []struct {
		foreground bool
		screenOn   bool
		want       DeviceState
	}{
		{true, true, StateAppRunning},
		{true, false, StateAppRunning},
		{false, false, StateScreenOff},
		{false, true, StateUnlocked},
	}

	for _, tt := range tests {
		if got := Derive(tt.foreground, tt.screenOn); got != tt.want {
			t.Errorf("Derive(%v, %v) = %v, expected %v", tt.foreground, tt.screenOn, got, tt.want)
		}
	}
}

func TestParseSignal(t *testing.T) {
	tests := []struct {
		tag      string
		want     Signal
		screenOn bool
	}{
		{"SCREEN_OFF", SignalScreenOff, false},
		{"SCREEN_ON", SignalScreenOn, true},
		{"USER_PRESENT", SignalUserPresent, true},
		{" user_present\n", SignalUserPresent, true},
	}

	for _, tt := range tests {
		got, err := ParseSignal(tt.tag)
		if err != nil {
			t.Fatalf("ParseSignal(%q) failed: %v", tt.tag, err)
		}
		if got != tt.want {
			t.Errorf("ParseSignal(%q) = %v, expected %v", tt.tag, got, tt.want)
		}
		if got.ScreenOn() != tt.screenOn {
			t.Errorf("%v.ScreenOn() = %v, expected %v", got, got.ScreenOn(), tt.screenOn)
		}
	}

	if _, err := ParseSignal("SCREEN_MAYBE"); !errors.Is(err, ErrUnknownSignal) {
		t.Errorf("expected ErrUnknownSignal, got %v", err)
	}
}

func TestTrackerStartsUnknown(t *testing.T) {
	tr, clock, rec := newTestTracker()

	if tr.Current() != StateUnknown {
		t.Errorf("Current() = %v, expected Unknown", tr.Current())
	}

	clock.Advance(10 * time.Second)
	if tr.Elapsed() != 0 {
		t.Errorf("Elapsed() in Unknown = %v, expected 0", tr.Elapsed())
	}

	tr.ResetStateStartTime()
	if len(rec.got) != 0 {
		t.Errorf("expected no transitions before Initialize, got %d", len(rec.got))
	}
}

func TestTrackerInitialize(t *testing.T) {
	tr, clock, rec := newTestTracker()
	clock.Advance(3 * time.Second)

	tr.Initialize()
	tr.Initialize() // second call is a no-op

	if !tr.IsInitialized() {
		t.Error("tracker should be initialized")
	}
	if len(rec.got) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(rec.got))
	}

	first := rec.got[0]
	if first.Previous != StateUnknown || first.Next != StateAppRunning {
		t.Errorf("first transition = %v -> %v, expected Unknown -> AppRunning", first.Previous, first.Next)
	}
	if first.Duration != 0 {
		t.Errorf("first transition duration = %v, expected 0", first.Duration)
	}

	tr.Shutdown()
	if tr.IsInitialized() {
		t.Error("tracker should not be initialized after Shutdown")
	}
}

func TestTrackerIdempotentDerivation(t *testing.T) {
	tr, clock, rec := newTestTracker()
	tr.Initialize()

	clock.Advance(time.Second)
	tr.ReportForeground(false)
	clock.Advance(time.Second)
	tr.ReportForeground(false)
	tr.ReportScreenSignal(SignalScreenOn)
	tr.ReportScreenSignal(SignalUserPresent)

	// Initialize + one AppRunning -> Unlocked
	if len(rec.got) != 2 {
		t.Fatalf("expected 2 transitions, got %d: %+v", len(rec.got), rec.got)
	}
	if rec.got[1].Previous != StateAppRunning || rec.got[1].Next != StateUnlocked {
		t.Errorf("unexpected transition %+v", rec.got[1])
	}
}

func TestTrackerScenario(t *testing.T) {
	tr, clock, rec := newTestTracker()
	tr.Initialize()

	clock.Advance(5 * time.Second)
	tr.ReportForeground(false) // screen still on -> Unlocked

	clock.Advance(3 * time.Second)
	tr.ReportScreenSignal(SignalScreenOff)

	want := []Transition{
		{Previous: StateUnknown, Next: StateAppRunning, Duration: 0},
		{Previous: StateAppRunning, Next: StateUnlocked, Duration: 5 * time.Second},
		{Previous: StateUnlocked, Next: StateScreenOff, Duration: 3 * time.Second},
	}
	if len(rec.got) != len(want) {
		t.Fatalf("expected %d transitions, got %d", len(want), len(rec.got))
	}
	for i, w := range want {
		g := rec.got[i]
		if g.Previous != w.Previous || g.Next != w.Next || g.Duration != w.Duration {
			t.Errorf("transition %d = %v -> %v (%v), expected %v -> %v (%v)",
				i, g.Previous, g.Next, g.Duration, w.Previous, w.Next, w.Duration)
		}
	}

	if tr.Current() != StateScreenOff {
		t.Errorf("Current() = %v, expected ScreenOff", tr.Current())
	}
}

func TestTrackerCurrentFollowsInputs(t *testing.T) {
	tr, clock, rec := newTestTracker()
	tr.Initialize()

	rng := rand.New(rand.NewSource(42))
	foreground, screenOn := true, true
	prev := tr.Current()
	wantTransitions := 1

	for i := 0; i < 500; i++ {
		clock.Advance(time.Duration(rng.Intn(2000)) * time.Millisecond)

		switch rng.Intn(4) {
		case 0:
			foreground = rng.Intn(2) == 0
			tr.ReportForeground(foreground)
		case 1:
			sigs := []Signal{SignalScreenOff, SignalScreenOn, SignalUserPresent}
			sig := sigs[rng.Intn(len(sigs))]
			screenOn = sig.ScreenOn()
			tr.ReportScreenSignal(sig)
		case 2:
			paused := rng.Intn(2) == 0
			foreground = !paused
			tr.ReportPause(paused)
		case 3:
			foreground = rng.Intn(2) == 0
			screenOn = rng.Intn(2) == 0
			tr.Apply(foreground, screenOn)
		}

		want := Derive(foreground, screenOn)
		if tr.Current() != want {
			t.Fatalf("step %d: Current() = %v, expected %v", i, tr.Current(), want)
		}
		if want != prev {
			wantTransitions++
		}
		prev = want
	}

	if len(rec.got) != wantTransitions {
		t.Errorf("expected %d transitions, got %d", wantTransitions, len(rec.got))
	}
}

func TestTrackerSumLaw(t *testing.T) {
	tr, clock, rec := newTestTracker()
	tr.Initialize()
	start := clock.Now()

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		clock.Advance(time.Duration(rng.Intn(5000)) * time.Millisecond)
		tr.Apply(rng.Intn(2) == 0, rng.Intn(2) == 0)
	}
	clock.Advance(1500 * time.Millisecond)

	var sum time.Duration
	for _, g := range rec.got {
		sum += g.Duration
	}
	sum += tr.Elapsed()

	if total := clock.Now().Sub(start); sum != total {
		t.Errorf("sum of durations = %v, expected %v", sum, total)
	}
}

func TestTrackerApplySinglePass(t *testing.T) {
	tr, clock, rec := newTestTracker()
	tr.Initialize()

	clock.Advance(4 * time.Second)
	tr.Apply(false, false)

	if len(rec.got) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(rec.got))
	}
	last := rec.got[1]
	if last.Previous != StateAppRunning || last.Next != StateScreenOff {
		t.Errorf("Apply produced %v -> %v, expected AppRunning -> ScreenOff", last.Previous, last.Next)
	}
	if last.Duration != 4*time.Second {
		t.Errorf("duration = %v, expected 4s", last.Duration)
	}
}

func TestTrackerZeroDurationToggle(t *testing.T) {
	tr, clock, rec := newTestTracker()
	tr.Initialize()

	clock.Advance(2 * time.Second)
	tr.ReportForeground(false)
	tr.ReportForeground(true) // same tick

	if len(rec.got) != 3 {
		t.Fatalf("expected 3 transitions, got %d", len(rec.got))
	}
	if rec.got[1].Duration != 2*time.Second {
		t.Errorf("AppRunning lasted %v, expected 2s", rec.got[1].Duration)
	}
	if rec.got[2].Previous != StateUnlocked || rec.got[2].Duration != 0 {
		t.Errorf("expected zero-length Unlocked interval, got %+v", rec.got[2])
	}
}

func TestTrackerResetStateStartTime(t *testing.T) {
	tr, clock, rec := newTestTracker()
	tr.Initialize()

	clock.Advance(10 * time.Second)
	if tr.Elapsed() != 10*time.Second {
		t.Fatalf("Elapsed() = %v, expected 10s", tr.Elapsed())
	}

	tr.ResetStateStartTime()
	if tr.Elapsed() != 0 {
		t.Errorf("Elapsed() after reset = %v, expected 0", tr.Elapsed())
	}
	if len(rec.got) != 1 {
		t.Errorf("reset must not emit a transition, got %d transitions", len(rec.got))
	}

	clock.Advance(2 * time.Second)
	tr.ReportForeground(false)
	if d := rec.got[len(rec.got)-1].Duration; d != 2*time.Second {
		t.Errorf("duration after reset = %v, expected 2s", d)
	}
}

func TestTrackerClockRegression(t *testing.T) {
	tr, clock, rec := newTestTracker()
	tr.Initialize()

	clock.Advance(-5 * time.Second)
	if tr.Elapsed() != 0 {
		t.Errorf("Elapsed() with clock going backwards = %v, expected 0", tr.Elapsed())
	}

	tr.ReportForeground(false)
	if d := rec.got[len(rec.got)-1].Duration; d != 0 {
		t.Errorf("duration with clock going backwards = %v, expected 0", d)
	}
}

func TestTrackerProbe(t *testing.T) {
	probe := &stubProbe{on: true}
	tr, clock, _ := newTestTracker(WithProbe(probe))
	tr.Initialize()

	probe.on = false
	clock.Advance(time.Second)
	tr.ReportPause(true)
	if tr.Current() != StateScreenOff {
		t.Errorf("pause with screen off: Current() = %v, expected ScreenOff", tr.Current())
	}

	// A failing probe keeps the last known value
	probe.err = errors.New("power manager unavailable")
	probe.on = true
	tr.ReportFocus(true)
	tr.ReportFocus(false)
	if tr.Current() != StateScreenOff {
		t.Errorf("probe failure: Current() = %v, expected ScreenOff", tr.Current())
	}

	probe.err = nil
	tr.ReportFocus(true)
	tr.ReportPause(false)
	if _, screenOn := tr.Inputs(); !screenOn {
		t.Error("focus gain should refresh screen state from probe")
	}
}

func TestTrackerReentrantReport(t *testing.T) {
	clock := newManualClock()
	tr := NewTracker(nil, WithClock(clock))

	var order []DeviceState
	reentered := false
	tr.Subscribe(ObserverFunc(func(got Transition) {
		order = append(order, got.Next)
		if got.Next == StateUnlocked && !reentered {
			reentered = true
			// Reported from inside a notification; must be deferred
			tr.ReportScreenSignal(SignalScreenOff)
			if tr.Current() != StateUnlocked {
				t.Errorf("state changed during notification: %v", tr.Current())
			}
		}
	}))

	tr.Initialize()
	clock.Advance(time.Second)
	tr.ReportForeground(false)

	want := []DeviceState{StateAppRunning, StateUnlocked, StateScreenOff}
	if len(order) != len(want) {
		t.Fatalf("got transitions %v, expected %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("transition %d = %v, expected %v", i, order[i], want[i])
		}
	}
}

func TestTrackerUnsubscribe(t *testing.T) {
	clock := newManualClock()
	tr := NewTracker(nil, WithClock(clock))

	count := 0
	var unsubscribe func()
	unsubscribe = tr.Subscribe(ObserverFunc(func(Transition) {
		count++
		unsubscribe()
	}))
	other := &recorder{}
	tr.Subscribe(other)

	tr.Initialize()
	tr.ReportForeground(false)
	tr.ReportForeground(true)

	if count != 1 {
		t.Errorf("unsubscribed observer called %d times, expected 1", count)
	}
	if len(other.got) != 3 {
		t.Errorf("remaining observer got %d transitions, expected 3", len(other.got))
	}
}
