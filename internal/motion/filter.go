// Package motion turns the per-frame nose position into smooth, relative
// pointer motion and tracks how long the head has been held still.
package motion

import (
	"math"
	"time"

	"github.com/ayusman/mukha/internal/landmark"
)

// Filter constants.
const (
	// BaseGain converts normalized coordinate deltas into pointer pixels at
	// a sensitivity of 1.0.
	BaseGain = 1000.0
	// DefaultSensitivity is the user sensitivity factor when none is configured.
	DefaultSensitivity = 3.0
	// DeadZoneScale converts the dead zone percentage into a pixel magnitude.
	DeadZoneScale = 10.0
	// AlphaDivisor maps motion magnitude in pixels onto the smoothing factor.
	AlphaDivisor = 60.0
	// MinAlpha and MaxAlpha bound the adaptive smoothing factor.
	MinAlpha = 0.05
	MaxAlpha = 0.9
)

// Config holds the motion filter settings.
type Config struct {
	// Sensitivity scales pointer speed (default 3.0).
	Sensitivity float64
}

// DefaultConfig returns a Config with the default sensitivity.
func DefaultConfig() Config {
	return Config{Sensitivity: DefaultSensitivity}
}

// Delta is an integer relative pointer move.
type Delta struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// IsZero reports whether the delta moves the pointer at all.
func (d Delta) IsZero() bool {
	return d.DX == 0 && d.DY == 0
}

// Step is the result of feeding one frame into the filter.
type Step struct {
	Delta Delta
	// Emitted is false while the filter is priming, i.e. on the first frame
	// after a reset or (re)calibration.
	Emitted bool
	// Recalibrated is true when this frame was captured as the new neutral pose.
	Recalibrated bool
}

// Filter converts successive nose positions into pointer deltas.
// It is not safe for concurrent use.
type Filter struct {
	sensitivity float64

	neutral     landmark.Point
	hasNeutral  bool
	recalibrate bool

	prevNose    landmark.Point
	hasPrevNose bool

	prevRawX, prevRawY float64
	hasPrev            bool

	filteredX, filteredY float64
	residualX, residualY float64
	inDeadZone           bool

	stableSince time.Time
}

// New creates a Filter. A non-positive sensitivity falls back to the default.
func New(cfg Config) *Filter {
	f := &Filter{}
	f.SetSensitivity(cfg.Sensitivity)
	return f
}

// SetSensitivity updates the pointer speed factor.
func (f *Filter) SetSensitivity(s float64) {
	if s <= 0 {
		s = DefaultSensitivity
	}
	f.sensitivity = s
}

// Sensitivity returns the current pointer speed factor.
func (f *Filter) Sensitivity() float64 {
	return f.sensitivity
}

// SetNeutral sets the neutral pose, e.g. one loaded from a profile.
// The next frame primes the filter.
func (f *Filter) SetNeutral(p landmark.Point) {
	f.neutral = p
	f.hasNeutral = true
	f.Reset()
}

// Neutral returns the neutral pose, if one has been captured.
func (f *Filter) Neutral() (landmark.Point, bool) {
	return f.neutral, f.hasNeutral
}

// RequestRecalibration arms a one-shot capture: the next stable frame
// becomes the neutral pose.
func (f *Filter) RequestRecalibration() {
	f.recalibrate = true
}

// RecalibrationPending reports whether a pose capture is armed.
func (f *Filter) RecalibrationPending() bool {
	return f.recalibrate
}

// Reset drops all motion history. The neutral pose is kept.
func (f *Filter) Reset() {
	f.hasPrev = false
	f.prevRawX, f.prevRawY = 0, 0
	f.hasPrevNose = false
	f.filteredX, f.filteredY = 0, 0
	f.residualX, f.residualY = 0, 0
	f.inDeadZone = false
	f.stableSince = time.Time{}
}

// StableFor returns how long the head has been held still as of at.
func (f *Filter) StableFor(at time.Time) time.Duration {
	if f.stableSince.IsZero() {
		return 0
	}
	return at.Sub(f.stableSince)
}

// InDeadZone reports whether the last frame was suppressed as noise.
func (f *Filter) InDeadZone() bool {
	return f.inDeadZone
}

// stabilityLimit converts the stability threshold in pointer pixels into
// a per-frame raw movement limit in normalized units.
func (f *Filter) stabilityLimit(stabilityPx float64) float64 {
	return stabilityPx / (BaseGain * f.sensitivity)
}

// Update feeds the nose position of the frame at time at.
//
// Algorithm:
// 1. raw = nose - neutral, x mirrored
// 2. deltaRaw = raw - previousRaw (no output on the priming frame)
// 3. scale by BaseGain * sensitivity
// 4. dead zone with soft ramp; below it everything resets to zero
// 5. exponential smoothing with a magnitude-dependent alpha
// 6. residual accumulation, emit the rounded total
// 7. stability timer on the unscaled movement
func (f *Filter) Update(at time.Time, nose landmark.Point, stabilityPx, deadZonePercent float64) Step {
	limit := f.stabilityLimit(stabilityPx)

	if !f.hasNeutral || (f.recalibrate && f.heldStill(nose, limit)) {
		f.neutral = nose
		f.hasNeutral = true
		f.recalibrate = false
		f.Reset()
		f.prime(nose)
		return Step{Recalibrated: true}
	}
	f.prevNose = nose
	f.hasPrevNose = true

	rawX := -(nose.X - f.neutral.X)
	rawY := nose.Y - f.neutral.Y

	if !f.hasPrev {
		f.prevRawX, f.prevRawY = rawX, rawY
		f.hasPrev = true
		return Step{}
	}

	dRawX := rawX - f.prevRawX
	dRawY := rawY - f.prevRawY
	f.prevRawX, f.prevRawY = rawX, rawY

	if math.Hypot(dRawX, dRawY) < limit {
		if f.stableSince.IsZero() {
			f.stableSince = at
		}
	} else {
		f.stableSince = time.Time{}
	}

	gain := BaseGain * f.sensitivity
	sx := dRawX * gain
	sy := dRawY * gain
	magnitude := math.Hypot(sx, sy)

	deadZone := deadZonePercent * DeadZoneScale
	if magnitude == 0 || magnitude < deadZone {
		f.filteredX, f.filteredY = 0, 0
		f.residualX, f.residualY = 0, 0
		f.inDeadZone = true
		return Step{Emitted: true}
	}
	f.inDeadZone = false

	ratio := (magnitude - deadZone) / magnitude
	sx *= ratio
	sy *= ratio

	alpha := clamp(magnitude/AlphaDivisor, MinAlpha, MaxAlpha)
	f.filteredX = alpha*sx + (1-alpha)*f.filteredX
	f.filteredY = alpha*sy + (1-alpha)*f.filteredY

	f.residualX += f.filteredX
	f.residualY += f.filteredY
	outX := math.Round(f.residualX)
	outY := math.Round(f.residualY)
	f.residualX -= outX
	f.residualY -= outY

	return Step{Delta: Delta{DX: int(outX), DY: int(outY)}, Emitted: true}
}

// heldStill reports whether the nose moved less than limit since the
// previous frame.
func (f *Filter) heldStill(nose landmark.Point, limit float64) bool {
	if !f.hasPrevNose {
		return false
	}
	return math.Hypot(nose.X-f.prevNose.X, nose.Y-f.prevNose.Y) < limit
}

// prime records nose as the previous sample without producing output.
func (f *Filter) prime(nose landmark.Point) {
	f.prevNose = nose
	f.hasPrevNose = true
	f.prevRawX = -(nose.X - f.neutral.X)
	f.prevRawY = nose.Y - f.neutral.Y
	f.hasPrev = true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
