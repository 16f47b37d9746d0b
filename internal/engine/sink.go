package engine

import (
	"github.com/ayusman/mukha/internal/gesture"
	"github.com/ayusman/mukha/internal/landmark"
	"github.com/ayusman/mukha/internal/motion"
	"github.com/ayusman/mukha/internal/threshold"
)

// CalibrationStatus reports the automatic gesture calibration state.
type CalibrationStatus struct {
	IsCalibrating bool `json:"isCalibrating"`
	Completed     bool `json:"completed"`
}

// Sink receives the events produced by the Engine. Calls are made
// synchronously from OnFrame and must not block.
type Sink interface {
	// OnPointerDelta is called on every emitting Observing frame, even
	// when the delta is zero.
	OnPointerDelta(d motion.Delta)
	// OnAction is called when the engine commits a discrete action.
	OnAction(name string)
	// OnGestures is called on every frame with that frame's signals.
	OnGestures(s gesture.Signals)
	// OnStateChanged is called on every state transition.
	OnStateChanged(s State)
	// OnCalibrationStatus is called when the calibration window opens or closes.
	OnCalibrationStatus(s CalibrationStatus)
	// OnAdaptationUpdate is called after usage telemetry changes.
	OnAdaptationUpdate(snap threshold.UsageSnapshot)
	// OnNeutralPose is called when a new neutral head pose is captured.
	OnNeutralPose(p landmark.Point)
}

// NopSink discards all events. Embed it to implement part of Sink.
type NopSink struct{}

func (NopSink) OnPointerDelta(motion.Delta)                {}
func (NopSink) OnAction(string)                            {}
func (NopSink) OnGestures(gesture.Signals)                 {}
func (NopSink) OnStateChanged(State)                       {}
func (NopSink) OnCalibrationStatus(CalibrationStatus)      {}
func (NopSink) OnAdaptationUpdate(threshold.UsageSnapshot) {}
func (NopSink) OnNeutralPose(landmark.Point)               {}

// MultiSink fans every event out to each sink in order.
type MultiSink []Sink

func (m MultiSink) OnPointerDelta(d motion.Delta) {
	for _, s := range m {
		s.OnPointerDelta(d)
	}
}

func (m MultiSink) OnAction(name string) {
	for _, s := range m {
		s.OnAction(name)
	}
}

func (m MultiSink) OnGestures(sig gesture.Signals) {
	for _, s := range m {
		s.OnGestures(sig)
	}
}

func (m MultiSink) OnStateChanged(state State) {
	for _, s := range m {
		s.OnStateChanged(state)
	}
}

func (m MultiSink) OnCalibrationStatus(status CalibrationStatus) {
	for _, s := range m {
		s.OnCalibrationStatus(status)
	}
}

func (m MultiSink) OnAdaptationUpdate(snap threshold.UsageSnapshot) {
	for _, s := range m {
		s.OnAdaptationUpdate(snap)
	}
}

func (m MultiSink) OnNeutralPose(p landmark.Point) {
	for _, s := range m {
		s.OnNeutralPose(p)
	}
}

// EventKind names an engine event.
type EventKind string

const (
	EventPointerDelta      EventKind = "pointerDelta"
	EventAction            EventKind = "action"
	EventGestures          EventKind = "gestures"
	EventStateChanged      EventKind = "stateChanged"
	EventCalibrationStatus EventKind = "calibrationStatus"
	EventAdaptationUpdate  EventKind = "adaptationUpdate"
	EventNeutralPose       EventKind = "neutralPose"
)

// Event is a single engine event in a transport-neutral form. Exactly one
// payload field is set, matching Kind.
type Event struct {
	Kind        EventKind                `json:"type"`
	Delta       *motion.Delta            `json:"delta,omitempty"`
	Action      string                   `json:"action,omitempty"`
	Gestures    *gesture.Signals         `json:"gestures,omitempty"`
	State       *State                   `json:"state,omitempty"`
	Calibration *CalibrationStatus       `json:"calibration,omitempty"`
	Adaptation  *threshold.UsageSnapshot `json:"adaptation,omitempty"`
	NeutralPose *landmark.Point          `json:"neutralPose,omitempty"`
}

// EventFunc adapts a function receiving Events into a Sink.
type EventFunc func(Event)

func (f EventFunc) OnPointerDelta(d motion.Delta) {
	f(Event{Kind: EventPointerDelta, Delta: &d})
}

func (f EventFunc) OnAction(name string) {
	f(Event{Kind: EventAction, Action: name})
}

func (f EventFunc) OnGestures(s gesture.Signals) {
	f(Event{Kind: EventGestures, Gestures: &s})
}

func (f EventFunc) OnStateChanged(s State) {
	f(Event{Kind: EventStateChanged, State: &s})
}

func (f EventFunc) OnCalibrationStatus(s CalibrationStatus) {
	f(Event{Kind: EventCalibrationStatus, Calibration: &s})
}

func (f EventFunc) OnAdaptationUpdate(snap threshold.UsageSnapshot) {
	f(Event{Kind: EventAdaptationUpdate, Adaptation: &snap})
}

func (f EventFunc) OnNeutralPose(p landmark.Point) {
	f(Event{Kind: EventNeutralPose, NeutralPose: &p})
}
