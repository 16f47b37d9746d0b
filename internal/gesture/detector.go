package gesture

import (
	"time"

	"github.com/ayusman/mukha/internal/landmark"
	"github.com/ayusman/mukha/internal/threshold"
)

// Fixed detection constants.
const (
	// SmileThreshold is the lift of a mouth corner above the mouth center line.
	SmileThreshold = 0.015
	// GazeUpThreshold is the upward iris offset, in eye widths.
	GazeUpThreshold = 0.12
	// GazeExtremeThreshold is the horizontal iris offset, in eye widths.
	GazeExtremeThreshold = 0.25

	DefaultMouthSustain = 500 * time.Millisecond
	DefaultTiltSustain  = 1000 * time.Millisecond
	DefaultPauseSustain = 1000 * time.Millisecond
)

// Config holds the sustain durations of the held variants.
type Config struct {
	MouthSustain time.Duration
	TiltSustain  time.Duration
	PauseSustain time.Duration
}

// DefaultConfig returns the default sustain durations.
func DefaultConfig() Config {
	return Config{
		MouthSustain: DefaultMouthSustain,
		TiltSustain:  DefaultTiltSustain,
		PauseSustain: DefaultPauseSustain,
	}
}

// sustain tracks how long a raw flag has been continuously true.
type sustain struct {
	since time.Time
}

// update feeds the raw flag at time at and reports whether it has been held
// for at least d. A false flag resets the timer.
func (s *sustain) update(at time.Time, raw bool, d time.Duration) bool {
	if !raw {
		s.since = time.Time{}
		return false
	}
	if s.since.IsZero() {
		s.since = at
	}
	return at.Sub(s.since) >= d
}

func (s *sustain) reset() {
	s.since = time.Time{}
}

// Detector computes Signals frame by frame. The only state it keeps is the
// sustain timers. It is not safe for concurrent use.
type Detector struct {
	cfg Config

	mouth     sustain
	tiltLeft  sustain
	tiltRight sustain
	pause     sustain
}

// NewDetector creates a Detector. Zero durations fall back to the defaults.
func NewDetector(cfg Config) *Detector {
	d := DefaultConfig()
	if cfg.MouthSustain > 0 {
		d.MouthSustain = cfg.MouthSustain
	}
	if cfg.TiltSustain > 0 {
		d.TiltSustain = cfg.TiltSustain
	}
	if cfg.PauseSustain > 0 {
		d.PauseSustain = cfg.PauseSustain
	}
	return &Detector{cfg: d}
}

// Reset clears all sustain timers.
func (d *Detector) Reset() {
	d.mouth.reset()
	d.tiltLeft.reset()
	d.tiltRight.reset()
	d.pause.reset()
}

// Detect computes the signals of frame f at time at. stableFor is how long
// the head has been held still, as reported by the motion filter.
//
// A nil frame means no face: all timers are reset and only FaceDetected
// (false) is reported. Callers are expected to drop incomplete frames; an
// incomplete frame reports a face but no gestures and leaves timers alone.
func (d *Detector) Detect(at time.Time, f *landmark.Frame, th threshold.Set, stableFor time.Duration) Signals {
	if f == nil {
		d.Reset()
		return Signals{}
	}
	if !f.Complete() {
		return Signals{FaceDetected: true}
	}

	s := Signals{FaceDetected: true}

	tilt := f.EarTilt()
	switch {
	case tilt > th.HeadTiltThreshold:
		s.HeadTiltLeft = true
	case tilt < -th.HeadTiltThreshold:
		s.HeadTiltRight = true
	}

	s.EyebrowRaiseLeft = f.EyebrowGap(landmark.Left) > th.EyebrowFor(landmark.Left)
	s.EyebrowRaiseRight = f.EyebrowGap(landmark.Right) > th.EyebrowFor(landmark.Right)
	s.EyebrowRaise = s.EyebrowRaiseLeft || s.EyebrowRaiseRight

	s.MouthOpen = f.MouthGap() > th.MouthThreshold

	s.SmileLeft = f.SmileLift(landmark.Left) > SmileThreshold
	s.SmileRight = f.SmileLift(landmark.Right) > SmileThreshold

	// Horizontal gaze is mirrored like pointer motion.
	if dx, dy, ok := f.GazeOffset(); ok {
		s.GazeUp = dy < -GazeUpThreshold
		s.GazeExtremeLeft = dx > GazeExtremeThreshold
		s.GazeExtremeRight = dx < -GazeExtremeThreshold
	}

	s.DwellGaze = stableFor > th.Dwell()
	s.DwellPlusEyebrow = s.DwellGaze && s.EyebrowRaise
	s.DwellPlusMouthOpen = s.DwellGaze && s.MouthOpen

	s.MouthOpenSustained = d.mouth.update(at, s.MouthOpen, d.cfg.MouthSustain)
	s.HeadTiltLeftSustained = d.tiltLeft.update(at, s.HeadTiltLeft, d.cfg.TiltSustain)
	s.HeadTiltRightSustained = d.tiltRight.update(at, s.HeadTiltRight, d.cfg.TiltSustain)

	pause := s.GazeUp && s.EyebrowRaise && !s.MouthOpen
	s.PauseCompound = d.pause.update(at, pause, d.cfg.PauseSustain)

	return s
}
