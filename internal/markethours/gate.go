package markethours

import (
	"sync"
	"time"
)

// Event is a once-per-day market session transition.
type Event int

const (
	EventOpen Event = iota + 1
	EventClose
)

func (e Event) String() string {
	switch e {
	case EventOpen:
		return "open"
	case EventClose:
		return "close"
	default:
		return "unknown"
	}
}

// Phase is the per-day session state.
type Phase int

const (
	PhaseClosed Phase = iota
	PhaseOpenPending
	PhaseOpenNotified
	PhaseWithinWindow
	PhaseCloseNotified
)

func (p Phase) String() string {
	switch p {
	case PhaseClosed:
		return "closed"
	case PhaseOpenPending:
		return "open_pending"
	case PhaseOpenNotified:
		return "open_notified"
	case PhaseWithinWindow:
		return "within_window"
	case PhaseCloseNotified:
		return "close_notified"
	default:
		return "unknown"
	}
}

// Gate tracks whether today's open and close events were already emitted.
// Flags reset whenever the market-local date changes, so a process that
// sleeps through midnight still starts the new day clean.
type Gate struct {
	window Window

	mu            sync.Mutex
	day           string
	openNotified  bool
	closeNotified bool
	phase         Phase
}

// NewGate creates a gate for the given window.
func NewGate(w Window) *Gate {
	return &Gate{window: w}
}

// Window returns the gate's window.
func (g *Gate) Window() Window { return g.window }

// Observe advances the state machine to now and returns the events that
// fire. Open fires at most once per day, the first time the local hour is
// inside the window. Close fires at most once per day, the first time the
// hour reaches the close hour, whether or not open was seen that day.
func (g *Gate) Observe(now time.Time) []Event {
	g.mu.Lock()
	defer g.mu.Unlock()

	local := g.window.Local(now)
	g.rollover(local)

	if !g.window.IsTradingDay(local) {
		g.phase = PhaseClosed
		return nil
	}

	h := local.Hour()
	switch {
	case h < g.window.OpenHour:
		g.phase = PhaseClosed
	case h < g.window.CloseHour:
		if !g.openNotified {
			g.openNotified = true
			g.phase = PhaseOpenNotified
			return []Event{EventOpen}
		}
		if !g.closeNotified {
			g.phase = PhaseWithinWindow
		}
	default:
		if !g.closeNotified {
			g.closeNotified = true
			g.phase = PhaseCloseNotified
			return []Event{EventClose}
		}
	}
	return nil
}

// Phase reports the state at now without emitting events.
func (g *Gate) Phase(now time.Time) Phase {
	g.mu.Lock()
	defer g.mu.Unlock()

	local := g.window.Local(now)
	sameDay := g.day == local.Format(dateLayout)
	if sameDay && g.closeNotified {
		return PhaseCloseNotified
	}
	if !g.window.InWindow(local) {
		return PhaseClosed
	}
	if !sameDay || !g.openNotified {
		return PhaseOpenPending
	}
	if g.phase == PhaseWithinWindow {
		return PhaseWithinWindow
	}
	return PhaseOpenNotified
}

// Flags returns today's open and close notification flags.
func (g *Gate) Flags() (openNotified, closeNotified bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.openNotified, g.closeNotified
}

// Reset clears both flags and pins the gate to now's date.
func (g *Gate) Reset(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.day = g.window.DateKey(now)
	g.openNotified = false
	g.closeNotified = false
	g.phase = PhaseClosed
}

func (g *Gate) rollover(local time.Time) {
	key := local.Format(dateLayout)
	if key == g.day {
		return
	}
	g.day = key
	g.openNotified = false
	g.closeNotified = false
	g.phase = PhaseClosed
}
