// Package debounce turns the noisy per-frame recognition signal into
// stable trigger events. A name must be seen on N consecutive frames
// before it fires, and after a fire the whole state machine is frozen
// until the cooldown elapses.
package debounce

import (
	"time"

	"github.com/google/uuid"
)

// Event is a confirmed recognition, fired once per run of identical
// detections. The ID only exists for log correlation.
type Event struct {
	ID   uuid.UUID
	Name string
	At   time.Time
}

// Debouncer tracks consecutive identical detections. Not safe for
// concurrent use; the control loop is its only caller.
type Debouncer struct {
	framesRequired int
	cooldown       time.Duration

	lastName    string
	count       int
	lastTrigger time.Time
}

func New(framesRequired int, cooldown time.Duration) *Debouncer {
	if framesRequired < 1 {
		framesRequired = 1
	}
	return &Debouncer{
		framesRequired: framesRequired,
		cooldown:       cooldown,
	}
}

// Observe feeds one frame's result into the state machine. An empty
// name means no face or no match. It returns a confirmed Event on the
// exact frame the consecutive count reaches the threshold; firing
// resets the run, so a face that stays in view must complete a fresh
// run after the cooldown to trigger again.
func (d *Debouncer) Observe(name string, now time.Time) (Event, bool) {
	// Inside the cooldown window the frame is ignored outright, so a
	// face that leaves and returns cannot restart a run early.
	if !d.lastTrigger.IsZero() && now.Sub(d.lastTrigger) < d.cooldown {
		return Event{}, false
	}

	switch {
	case name == "":
		d.lastName = ""
		d.count = 0
	case name == d.lastName:
		d.count++
	default:
		d.lastName = name
		d.count = 1
	}

	// Strict equality: frame N+1 of the same run must not re-fire.
	if d.count != d.framesRequired || name == "" {
		return Event{}, false
	}

	ev := Event{ID: uuid.New(), Name: d.lastName, At: now}
	d.lastTrigger = now
	d.Reset()
	return ev, true
}

// Reset clears the consecutive-run state but keeps the cooldown clock.
func (d *Debouncer) Reset() {
	d.lastName = ""
	d.count = 0
}

// Count reports the current consecutive-run length.
func (d *Debouncer) Count() int { return d.count }
