package tracker

import (
	"time"

	"stereowatch/internal/probe"
)

// State is a confirmed endpoint mode.
type State int

const (
	StateUnknown State = iota
	StateStereo
	StateHandsFree
	StateNoDevice
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateStereo:
		return "stereo"
	case StateHandsFree:
		return "hands-free"
	case StateNoDevice:
		return "no-device"
	default:
		return "unknown"
	}
}

// Transition records a confirmed state change.
type Transition struct {
	From State
	To   State
	At   time.Time
}

// Tracker holds the debounce state for one endpoint. It is not safe for
// concurrent use; the poll scheduler is its single caller.
type Tracker struct {
	threshold int

	confirmed State
	pending   State
	matches   int
}

// New creates a tracker requiring threshold consecutive matching samples
// before committing a state change. A threshold below 1 is treated as 1.
func New(threshold int) *Tracker {
	if threshold < 1 {
		threshold = 1
	}
	return &Tracker{threshold: threshold, confirmed: StateUnknown}
}

// Confirmed returns the current committed state.
func (t *Tracker) Confirmed() State {
	return t.confirmed
}

// Observe feeds one probe sample into the debounce window. It returns the
// resulting transition and true when the sample completes a state change.
func (t *Tracker) Observe(sample probe.Sample) (Transition, bool) {
	candidate := stateFor(sample.Candidate)

	if candidate == t.pending {
		t.matches++
	} else {
		t.pending = candidate
		t.matches = 1
	}

	if t.matches < t.threshold || candidate == t.confirmed {
		return Transition{}, false
	}

	tr := Transition{From: t.confirmed, To: candidate, At: sample.At}
	t.confirmed = candidate
	t.matches = 0
	t.pending = candidate
	return tr, true
}

// Remove commits NoDevice without debouncing. It returns the transition and
// true unless the tracker was already in NoDevice.
func (t *Tracker) Remove(now time.Time) (Transition, bool) {
	t.pending = StateNoDevice
	t.matches = 0
	if t.confirmed == StateNoDevice {
		return Transition{}, false
	}
	tr := Transition{From: t.confirmed, To: StateNoDevice, At: now}
	t.confirmed = StateNoDevice
	return tr, true
}

func stateFor(c probe.Candidate) State {
	switch c {
	case probe.CandidateStereo:
		return StateStereo
	case probe.CandidateHandsFree:
		return StateHandsFree
	default:
		return StateUnknown
	}
}
