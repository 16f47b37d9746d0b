// Package engine implements the interaction state machine that turns a
// stream of face landmark frames into pointer motion and discrete actions.
//
// All timing is driven by frame timestamps: a timeout is noticed on the
// first frame that arrives after it has elapsed.
package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mukha/internal/gesture"
	"github.com/ayusman/mukha/internal/landmark"
	"github.com/ayusman/mukha/internal/motion"
	"github.com/ayusman/mukha/internal/threshold"
)

// Timing defaults.
const (
	DefaultPreselectTimeout = 3000 * time.Millisecond
	DefaultAccidentalWindow = 500 * time.Millisecond
	DefaultExecuteCooldown  = 1000 * time.Millisecond
	DefaultMaxDroppedFrames = 3

	// ActionClick is the only action the engine commits on its own.
	ActionClick = "click"
)

// Config holds the engine settings.
type Config struct {
	Thresholds threshold.Set
	Gesture    gesture.Config

	// DwellActivation lets a dwell enter Preselecting in addition to an
	// open mouth.
	DwellActivation bool

	PreselectTimeout time.Duration
	AccidentalWindow time.Duration
	ExecuteCooldown  time.Duration
	MaxDroppedFrames int
}

// DefaultConfig returns the default engine settings.
func DefaultConfig() Config {
	return Config{
		Thresholds:       threshold.Defaults(),
		Gesture:          gesture.DefaultConfig(),
		PreselectTimeout: DefaultPreselectTimeout,
		AccidentalWindow: DefaultAccidentalWindow,
		ExecuteCooldown:  DefaultExecuteCooldown,
		MaxDroppedFrames: DefaultMaxDroppedFrames,
	}
}

// Profile seeds the engine at session start.
type Profile struct {
	Thresholds  threshold.Set
	NeutralPose *landmark.Point
	Calibrated  *threshold.Calibrated
	History     []threshold.UsageSnapshot
}

// Engine is the interaction state machine. It is driven entirely by
// OnFrame and is not safe for concurrent use.
type Engine struct {
	cfg    Config
	sink   Sink
	logger *zap.Logger

	thresholds *threshold.Manager
	filter     *motion.Filter
	detector   *gesture.Detector

	state     State
	enteredAt time.Time
	started   bool
	dropped   int

	// Preselecting bookkeeping: the signal that triggered entry and when
	// it was first released.
	trigger    string
	releasedAt time.Time
}

// New creates an Engine in the Inactive state. A nil sink discards events
// and a nil logger disables logging.
func New(cfg Config, sink Sink, logger *zap.Logger) *Engine {
	if sink == nil {
		sink = NopSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := DefaultConfig()
	if cfg.PreselectTimeout <= 0 {
		cfg.PreselectTimeout = d.PreselectTimeout
	}
	if cfg.AccidentalWindow <= 0 {
		cfg.AccidentalWindow = d.AccidentalWindow
	}
	if cfg.ExecuteCooldown <= 0 {
		cfg.ExecuteCooldown = d.ExecuteCooldown
	}
	if cfg.MaxDroppedFrames <= 0 {
		cfg.MaxDroppedFrames = d.MaxDroppedFrames
	}

	base := cfg.Thresholds.Clamp()
	return &Engine{
		cfg:        cfg,
		sink:       sink,
		logger:     logger,
		thresholds: threshold.NewManager(base, time.Time{}, logger.Named("threshold")),
		filter:     motion.New(motion.Config{Sensitivity: base.MouseSensitivity}),
		detector:   gesture.NewDetector(cfg.Gesture),
		state:      Inactive,
	}
}

// State returns the current interaction state.
func (e *Engine) State() State {
	return e.state
}

// Thresholds returns the thresholds currently in effect.
func (e *Engine) Thresholds() threshold.Set {
	return e.thresholds.Resolve()
}

// Base returns the configured base thresholds.
func (e *Engine) Base() threshold.Set {
	return e.thresholds.Base()
}

// Calibrated returns the calibrated gesture thresholds, if any.
func (e *Engine) Calibrated() (threshold.Calibrated, bool) {
	return e.thresholds.Calibrated()
}

// Neutral returns the neutral head pose, if one has been captured.
func (e *Engine) Neutral() (landmark.Point, bool) {
	return e.filter.Neutral()
}

// Snapshot returns the current session telemetry and adaptive thresholds.
func (e *Engine) Snapshot() threshold.UsageSnapshot {
	return e.thresholds.Snapshot()
}

// SetDwellActivation enables or disables dwell as a Preselecting trigger.
func (e *Engine) SetDwellActivation(enabled bool) {
	e.cfg.DwellActivation = enabled
}

// Configure merges p into the base thresholds. The adaptive layer is reset
// to the new base values.
func (e *Engine) Configure(p threshold.Patch) {
	e.thresholds.Configure(p)
	e.filter.SetSensitivity(e.thresholds.Resolve().MouseSensitivity)
}

// RequestCalibration arms a capture of the next stable head pose as the
// neutral pose.
func (e *Engine) RequestCalibration() {
	e.filter.RequestRecalibration()
	e.logger.Info("pose recalibration requested")
}

// RecalibrateGestures drops the calibrated gesture thresholds and reopens
// the automatic calibration window on the next face frame.
func (e *Engine) RecalibrateGestures() {
	e.thresholds.ClearCalibration()
}

// LoadProfile seeds all threshold layers and the neutral pose for a session
// starting at at.
func (e *Engine) LoadProfile(at time.Time, p Profile) {
	e.thresholds.Load(at, p.Thresholds, p.Calibrated, p.History)
	e.filter = motion.New(motion.Config{Sensitivity: e.thresholds.Resolve().MouseSensitivity})
	if p.NeutralPose != nil {
		e.filter.SetNeutral(*p.NeutralPose)
	}
	e.started = true
	e.logger.Info("profile loaded",
		zap.Bool("calibrated", p.Calibrated != nil),
		zap.Bool("neutralPose", p.NeutralPose != nil),
		zap.Int("history", len(p.History)))
}

// OnFrame processes one frame captured at at. A nil frame means no face.
func (e *Engine) OnFrame(at time.Time, frame *landmark.Frame) {
	if !e.started {
		e.thresholds.ResetSession(at)
		e.started = true
	}

	if frame == nil {
		e.dropped = 0
		e.sink.OnGestures(e.detector.Detect(at, nil, threshold.Set{}, 0))
		e.deactivate(at, "face lost")
		return
	}

	if !frame.Complete() {
		e.dropped++
		if e.dropped >= e.cfg.MaxDroppedFrames {
			e.deactivate(at, "too many dropped frames")
		}
		return
	}
	e.dropped = 0

	e.observeCalibration(at, frame)
	th := e.thresholds.Resolve()
	e.filter.SetSensitivity(th.MouseSensitivity)

	if e.state == Inactive {
		e.enterObserving(at)
	}

	if e.state == Observing {
		step := e.filter.Update(at, frame.Nose(), th.StabilityThreshold, th.DeadZonePercent)
		if step.Recalibrated {
			neutral, _ := e.filter.Neutral()
			e.logger.Info("neutral pose captured",
				zap.Float64("x", neutral.X),
				zap.Float64("y", neutral.Y))
			e.sink.OnNeutralPose(neutral)
		}
		if step.Emitted {
			e.sink.OnPointerDelta(step.Delta)
		}
	}

	signals := e.detector.Detect(at, frame, th, e.filter.StableFor(at))

	switch e.state {
	case Observing:
		e.observe(at, signals)
	case Preselecting:
		e.preselect(at, signals)
	case Executing:
		if at.Sub(e.enteredAt) >= e.cfg.ExecuteCooldown {
			e.enterObserving(at)
		}
	}

	// Gestures go out after any action the frame committed.
	e.sink.OnGestures(signals)
}

// observe handles activation gestures while Observing.
func (e *Engine) observe(at time.Time, s gesture.Signals) {
	switch {
	case s.MouthOpen:
		e.enterPreselecting(at, "mouthOpen")
	case e.cfg.DwellActivation && s.DwellGaze:
		e.enterPreselecting(at, "dwellGaze")
	}
}

// preselect waits for confirmation, times out and records accidental
// activations.
func (e *Engine) preselect(at time.Time, s gesture.Signals) {
	if held, _ := s.Lookup(e.trigger); !held && e.releasedAt.IsZero() {
		e.releasedAt = at
	}

	if s.MouthOpen {
		e.setState(at, Executing)
		e.sink.OnAction(ActionClick)
		e.sink.OnAdaptationUpdate(e.thresholds.RecordAction(at, ActionClick))
		return
	}

	if at.Sub(e.enteredAt) < e.cfg.PreselectTimeout {
		return
	}

	if !e.releasedAt.IsZero() && e.releasedAt.Sub(e.enteredAt) < e.cfg.AccidentalWindow {
		e.sink.OnAdaptationUpdate(e.thresholds.RecordAccidental(at, Preselecting.String()))
	}
	e.enterObserving(at)
}

func (e *Engine) enterPreselecting(at time.Time, trigger string) {
	e.trigger = trigger
	e.releasedAt = time.Time{}
	e.setState(at, Preselecting)
}

func (e *Engine) enterObserving(at time.Time) {
	e.filter.Reset()
	e.setState(at, Observing)
}

// deactivate forces Inactive, cancelling every pending timer.
func (e *Engine) deactivate(at time.Time, reason string) {
	e.detector.Reset()
	e.filter.Reset()
	e.trigger = ""
	e.releasedAt = time.Time{}
	if e.state != Inactive {
		e.logger.Debug("deactivating", zap.String("reason", reason))
	}
	e.setState(at, Inactive)
}

func (e *Engine) setState(at time.Time, s State) {
	if s == e.state {
		return
	}
	e.logger.Debug("state change",
		zap.Stringer("from", e.state),
		zap.Stringer("to", s))
	e.state = s
	e.enteredAt = at
	e.sink.OnStateChanged(s)
}

func (e *Engine) observeCalibration(at time.Time, frame *landmark.Frame) {
	switch e.thresholds.ObserveCalibration(at, frame) {
	case threshold.CalibrationStarted:
		e.sink.OnCalibrationStatus(CalibrationStatus{IsCalibrating: true})
	case threshold.CalibrationCompleted:
		e.sink.OnCalibrationStatus(CalibrationStatus{Completed: true})
	case threshold.CalibrationAborted:
		e.sink.OnCalibrationStatus(CalibrationStatus{})
	}
}
