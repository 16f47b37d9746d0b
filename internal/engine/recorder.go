package engine

import (
	"sync"

	"github.com/ayusman/mukha/internal/motion"
)

// Recorder is a Sink that keeps every event in memory. It is meant for
// tests and is safe to read while the engine runs on another goroutine.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Sink returns the Recorder as an engine Sink.
func (r *Recorder) Sink() Sink {
	return EventFunc(r.record)
}

func (r *Recorder) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of all recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event{}, r.events...)
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Of returns the recorded events of one kind.
func (r *Recorder) Of(kind EventKind) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// States returns the sequence of state changes.
func (r *Recorder) States() []State {
	var out []State
	for _, e := range r.Of(EventStateChanged) {
		out = append(out, *e.State)
	}
	return out
}

// Actions returns the committed action names.
func (r *Recorder) Actions() []string {
	var out []string
	for _, e := range r.Of(EventAction) {
		out = append(out, e.Action)
	}
	return out
}

// Deltas returns the emitted pointer deltas.
func (r *Recorder) Deltas() []motion.Delta {
	var out []motion.Delta
	for _, e := range r.Of(EventPointerDelta) {
		out = append(out, *e.Delta)
	}
	return out
}

// CalibrationStatuses returns the emitted calibration statuses.
func (r *Recorder) CalibrationStatuses() []CalibrationStatus {
	var out []CalibrationStatus
	for _, e := range r.Of(EventCalibrationStatus) {
		out = append(out, *e.Calibration)
	}
	return out
}
