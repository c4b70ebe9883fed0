package capture

import "time"

// PairState is the lifecycle of one (event, offset) capture pair.
type PairState int

const (
	// PairPending has not been captured yet.
	PairPending PairState = iota
	// PairInWindow has a capture in flight.
	PairInWindow
	// PairTriggered was captured. Terminal.
	PairTriggered
	// PairExpired left its window without a capture. Terminal.
	PairExpired
)

func (s PairState) String() string {
	switch s {
	case PairPending:
		return "pending"
	case PairInWindow:
		return "in_window"
	case PairTriggered:
		return "triggered"
	case PairExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Terminal reports whether the pair can no longer change.
func (s PairState) Terminal() bool {
	return s == PairTriggered || s == PairExpired
}

type pairKey struct {
	eventID string
	offset  time.Duration
}

// TrackedEvent is one upcoming race watched by the scheduler.
type TrackedEvent struct {
	EventID   string
	GameID    string
	Date      string
	StartTime time.Time
}

// Dispatch describes one capture started by a tick.
type Dispatch struct {
	EventID     string
	Offset      time.Duration
	TimeToStart time.Duration
}

// TickResult summarizes one scheduler tick.
type TickResult struct {
	Active     int
	Dispatched []Dispatch
}

// Status is a point-in-time view of a scheduling run.
type Status struct {
	RunID     string    `json:"run_id"`
	Tracked   int       `json:"tracked"`
	Triggered int       `json:"triggered"`
	InFlight  int       `json:"in_flight"`
	LastTick  time.Time `json:"last_tick"`
}
