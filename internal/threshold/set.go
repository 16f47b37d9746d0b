// Package threshold resolves the thresholds used by gesture detection and
// pointer motion from three layers: the configured base values, values
// derived from an automatic calibration window, and session-adaptive values
// tuned from usage.
package threshold

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/ayusman/mukha/internal/landmark"
)

// Default threshold values.
const (
	DefaultDwellTime          = 1000.0
	DefaultStabilityThreshold = 10.0
	DefaultDeadZonePercent    = 0.03
	DefaultMouthThreshold     = 0.08
	DefaultEyebrowThreshold   = 0.15
	DefaultHeadTiltThreshold  = 0.15
	DefaultEmergencyTime      = 2000.0
	DefaultExecutionCooldown  = 800.0
	DefaultMouseSensitivity   = 3.0
)

// Bounds is an inclusive safe range for a threshold field.
type Bounds struct {
	Min float64
	Max float64
}

// Clamp limits v to the range. NaN falls back to fallback.
func (b Bounds) Clamp(v, fallback float64) float64 {
	if math.IsNaN(v) {
		v = fallback
	}
	return math.Max(b.Min, math.Min(b.Max, v))
}

// Contains reports whether v lies within the range.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Hard safety bounds applied to every resolved Set.
var (
	DwellBounds       = Bounds{300, 5000}
	StabilityBounds   = Bounds{5, 50}
	DeadZoneBounds    = Bounds{0, 0.2}
	MouthBounds       = Bounds{0.05, 0.15}
	EyebrowBounds     = Bounds{0.08, 0.25}
	HeadTiltBounds    = Bounds{0.02, 0.2}
	EmergencyBounds   = Bounds{500, 10000}
	CooldownBounds    = Bounds{0, 5000}
	SensitivityBounds = Bounds{0.1, 10}

	fatigueReductionBounds = Bounds{0.1, 1}
	errorToleranceBounds   = Bounds{1, 3}
	learningRateBounds     = Bounds{0, 1}
)

// AdaptiveConfig controls session-adaptive tuning and automatic calibration.
type AdaptiveConfig struct {
	Enabled          bool    `json:"enabled"`
	AutoCalibration  bool    `json:"autoCalibration"`
	FatigueReduction float64 `json:"fatigueReduction"`
	ErrorTolerance   float64 `json:"errorTolerance"`
	LearningRate     float64 `json:"learningRate"`
}

// DefaultAdaptiveConfig returns adaptive tuning with calibration enabled.
func DefaultAdaptiveConfig() AdaptiveConfig {
	return AdaptiveConfig{
		Enabled:          true,
		AutoCalibration:  true,
		FatigueReduction: 0.8,
		ErrorTolerance:   1.2,
		LearningRate:     0.1,
	}
}

// Set is one complete set of thresholds. Times are in milliseconds, the
// stability threshold is in pointer pixels and the gesture thresholds are
// in normalized frame units.
//
// The JSON keys match the stored profile format. Unknown keys, such as
// thresholds of retired gestures, are ignored on decode.
type Set struct {
	DwellTime             float64        `json:"dwellTime"`
	StabilityThreshold    float64        `json:"stabilityThreshold"`
	DeadZonePercent       float64        `json:"deadZonePercent"`
	MouthThreshold        float64        `json:"mouthThreshold"`
	EyebrowThreshold      float64        `json:"eyebrowThreshold"`
	EyebrowLeftThreshold  *float64       `json:"eyebrowLeftThreshold,omitempty"`
	EyebrowRightThreshold *float64       `json:"eyebrowRightThreshold,omitempty"`
	HeadTiltThreshold     float64        `json:"headTiltThreshold"`
	EmergencyTime         float64        `json:"emergencyTime"`
	ExecutionCooldown     float64        `json:"executionCooldown"`
	MouseSensitivity      float64        `json:"mouseSensitivity"`
	Adaptive              AdaptiveConfig `json:"adaptive"`
}

// Defaults returns the hard default thresholds.
func Defaults() Set {
	return Set{
		DwellTime:          DefaultDwellTime,
		StabilityThreshold: DefaultStabilityThreshold,
		DeadZonePercent:    DefaultDeadZonePercent,
		MouthThreshold:     DefaultMouthThreshold,
		EyebrowThreshold:   DefaultEyebrowThreshold,
		HeadTiltThreshold:  DefaultHeadTiltThreshold,
		EmergencyTime:      DefaultEmergencyTime,
		ExecutionCooldown:  DefaultExecutionCooldown,
		MouseSensitivity:   DefaultMouseSensitivity,
		Adaptive:           DefaultAdaptiveConfig(),
	}
}

// Parse decodes a stored threshold object over the defaults, so missing
// keys keep their default value.
func Parse(data []byte) (Set, error) {
	s := Defaults()
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Set{}, fmt.Errorf("failed to parse thresholds: %w", err)
	}
	return s.Clamp(), nil
}

// Clamp returns a copy with every field limited to its safe range.
func (s Set) Clamp() Set {
	d := Defaults()
	out := s
	out.DwellTime = DwellBounds.Clamp(s.DwellTime, d.DwellTime)
	out.StabilityThreshold = StabilityBounds.Clamp(s.StabilityThreshold, d.StabilityThreshold)
	out.DeadZonePercent = DeadZoneBounds.Clamp(s.DeadZonePercent, d.DeadZonePercent)
	out.MouthThreshold = MouthBounds.Clamp(s.MouthThreshold, d.MouthThreshold)
	out.EyebrowThreshold = EyebrowBounds.Clamp(s.EyebrowThreshold, d.EyebrowThreshold)
	out.HeadTiltThreshold = HeadTiltBounds.Clamp(s.HeadTiltThreshold, d.HeadTiltThreshold)
	out.EmergencyTime = EmergencyBounds.Clamp(s.EmergencyTime, d.EmergencyTime)
	out.ExecutionCooldown = CooldownBounds.Clamp(s.ExecutionCooldown, d.ExecutionCooldown)
	out.MouseSensitivity = SensitivityBounds.Clamp(s.MouseSensitivity, d.MouseSensitivity)

	if s.EyebrowLeftThreshold != nil {
		v := EyebrowBounds.Clamp(*s.EyebrowLeftThreshold, out.EyebrowThreshold)
		out.EyebrowLeftThreshold = &v
	}
	if s.EyebrowRightThreshold != nil {
		v := EyebrowBounds.Clamp(*s.EyebrowRightThreshold, out.EyebrowThreshold)
		out.EyebrowRightThreshold = &v
	}

	out.Adaptive.FatigueReduction = fatigueReductionBounds.Clamp(s.Adaptive.FatigueReduction, d.Adaptive.FatigueReduction)
	out.Adaptive.ErrorTolerance = errorToleranceBounds.Clamp(s.Adaptive.ErrorTolerance, d.Adaptive.ErrorTolerance)
	out.Adaptive.LearningRate = learningRateBounds.Clamp(s.Adaptive.LearningRate, d.Adaptive.LearningRate)
	return out
}

// EyebrowFor returns the eyebrow threshold for one side, falling back to
// the shared eyebrow threshold when no per-side override is set.
func (s Set) EyebrowFor(side landmark.Side) float64 {
	if side == landmark.Right && s.EyebrowRightThreshold != nil {
		return *s.EyebrowRightThreshold
	}
	if side == landmark.Left && s.EyebrowLeftThreshold != nil {
		return *s.EyebrowLeftThreshold
	}
	return s.EyebrowThreshold
}

// Dwell returns the dwell time as a duration.
func (s Set) Dwell() time.Duration {
	return millis(s.DwellTime)
}

// Cooldown returns the execution cooldown as a duration.
func (s Set) Cooldown() time.Duration {
	return millis(s.ExecutionCooldown)
}

func millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// Patch is a partial Set. Nil fields are left unchanged.
type Patch struct {
	DwellTime             *float64        `json:"dwellTime,omitempty"`
	StabilityThreshold    *float64        `json:"stabilityThreshold,omitempty"`
	DeadZonePercent       *float64        `json:"deadZonePercent,omitempty"`
	MouthThreshold        *float64        `json:"mouthThreshold,omitempty"`
	EyebrowThreshold      *float64        `json:"eyebrowThreshold,omitempty"`
	EyebrowLeftThreshold  *float64        `json:"eyebrowLeftThreshold,omitempty"`
	EyebrowRightThreshold *float64        `json:"eyebrowRightThreshold,omitempty"`
	HeadTiltThreshold     *float64        `json:"headTiltThreshold,omitempty"`
	EmergencyTime         *float64        `json:"emergencyTime,omitempty"`
	ExecutionCooldown     *float64        `json:"executionCooldown,omitempty"`
	MouseSensitivity      *float64        `json:"mouseSensitivity,omitempty"`
	Adaptive              *AdaptiveConfig `json:"adaptive,omitempty"`
}

// Apply merges the patch into s and returns the clamped result.
func (p Patch) Apply(s Set) Set {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&s.DwellTime, p.DwellTime)
	set(&s.StabilityThreshold, p.StabilityThreshold)
	set(&s.DeadZonePercent, p.DeadZonePercent)
	set(&s.MouthThreshold, p.MouthThreshold)
	set(&s.EyebrowThreshold, p.EyebrowThreshold)
	set(&s.HeadTiltThreshold, p.HeadTiltThreshold)
	set(&s.EmergencyTime, p.EmergencyTime)
	set(&s.ExecutionCooldown, p.ExecutionCooldown)
	set(&s.MouseSensitivity, p.MouseSensitivity)
	if p.EyebrowLeftThreshold != nil {
		v := *p.EyebrowLeftThreshold
		s.EyebrowLeftThreshold = &v
	}
	if p.EyebrowRightThreshold != nil {
		v := *p.EyebrowRightThreshold
		s.EyebrowRightThreshold = &v
	}
	if p.Adaptive != nil {
		s.Adaptive = *p.Adaptive
	}
	return s.Clamp()
}

// Float returns a pointer to v, for building patches.
func Float(v float64) *float64 {
	return &v
}
