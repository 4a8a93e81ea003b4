// Package gesture turns raw key events into Activate/Cancel gestures.
//
// The activation gesture is a double-press of either Ctrl key within a
// configurable window. Escape cancels immediately in any state.
package gesture

import "time"

// Key identifies a physical key of interest. Any key the sources do not
// track maps to KeyOther, which still matters: it disqualifies a pending
// double-press candidate.
type Key int

const (
	KeyOther Key = iota
	KeyLeftCtrl
	KeyRightCtrl
	KeyEscape
)

func (k Key) String() string {
	switch k {
	case KeyLeftCtrl:
		return "lctrl"
	case KeyRightCtrl:
		return "rctrl"
	case KeyEscape:
		return "esc"
	default:
		return "other"
	}
}

type Edge int

const (
	Press Edge = iota
	Release
)

// KeyEvent is one raw keyboard edge with a monotonic timestamp.
type KeyEvent struct {
	Key  Key
	Edge Edge
	At   time.Time
}

type Kind int

const (
	Activate Kind = iota
	Cancel
)

func (k Kind) String() string {
	if k == Cancel {
		return "cancel"
	}
	return "activate"
}

// Event is a recognized gesture.
type Event struct {
	Kind Kind
	At   time.Time
}

// Detector recognizes the double-press gesture from a key event stream.
// It is not safe for concurrent use; feed it from a single goroutine.
type Detector struct {
	threshold time.Duration

	candidate    time.Time
	hasCandidate bool
}

func NewDetector(threshold time.Duration) *Detector {
	return &Detector{threshold: threshold}
}

// OnKey consumes one raw key event and returns a gesture, or nil.
//
// Left and right Ctrl are activation-equivalent: two presses of either,
// in any combination, within the threshold emit Activate. The second
// press consumes the candidate, so a rapid triple press emits a single
// Activate and the third press becomes a fresh candidate. Any press of
// a non-equivalent key in between disqualifies the candidate. Releases
// are ignored. A timestamp earlier than the recorded candidate means
// the clock went backward; the candidate is dropped and the event is
// then handled normally.
func (d *Detector) OnKey(ev KeyEvent) *Event {
	if ev.Edge != Press {
		return nil
	}

	if d.hasCandidate {
		if ev.At.Before(d.candidate) {
			// clock anomaly: self-heal, never surface
			d.hasCandidate = false
		} else if ev.At.Sub(d.candidate) > d.threshold {
			// lazy pruning of a stale first press
			d.hasCandidate = false
		}
	}

	switch ev.Key {
	case KeyEscape:
		d.hasCandidate = false
		return &Event{Kind: Cancel, At: ev.At}
	case KeyLeftCtrl, KeyRightCtrl:
		if d.hasCandidate {
			d.hasCandidate = false
			return &Event{Kind: Activate, At: ev.At}
		}
		d.candidate = ev.At
		d.hasCandidate = true
		return nil
	default:
		d.hasCandidate = false
		return nil
	}
}
