package threshold

import "time"

const (
	// MaxActionHistory bounds the per-session action log.
	MaxActionHistory = 100
	// MaxErrorPatterns bounds the per-session error log.
	MaxErrorPatterns = 1000
)

// ActionRecord is one committed action in the session log.
type ActionRecord struct {
	At           time.Time `json:"timestamp"`
	Action       string    `json:"action"`
	Confidence   float64   `json:"confidence"`
	FatigueLevel float64   `json:"fatigueLevel"`
}

// ErrorPattern records an accidental activation and the state it happened in.
type ErrorPattern struct {
	At      time.Time `json:"timestamp"`
	Type    string    `json:"type"`
	Context string    `json:"context"`
}

// UsageStats accumulates per-session telemetry that drives adaptation.
type UsageStats struct {
	TotalActions          int            `json:"totalActions"`
	AccidentalActivations int            `json:"accidentalActivations"`
	FatigueLevel          float64        `json:"fatigueLevel"`
	SessionStart          time.Time      `json:"sessionStartTime"`
	LastActivity          time.Time      `json:"lastActivityTime,omitzero"`
	ActionHistory         []ActionRecord `json:"actionHistory"`
	ErrorPatterns         []ErrorPattern `json:"errorPatterns"`
}

func newUsageStats(at time.Time) UsageStats {
	return UsageStats{
		SessionStart:  at,
		ActionHistory: []ActionRecord{},
		ErrorPatterns: []ErrorPattern{},
	}
}

// AccidentalRate returns accidental activations per committed action.
func (u UsageStats) AccidentalRate() float64 {
	return float64(u.AccidentalActivations) / float64(max(u.TotalActions, 1))
}

// clone deep-copies the slices so snapshots do not alias live state.
func (u UsageStats) clone() UsageStats {
	out := u
	out.ActionHistory = append([]ActionRecord{}, u.ActionHistory...)
	out.ErrorPatterns = append([]ErrorPattern{}, u.ErrorPatterns...)
	return out
}

func (u *UsageStats) appendAction(r ActionRecord) {
	u.ActionHistory = append(u.ActionHistory, r)
	if n := len(u.ActionHistory); n > MaxActionHistory {
		u.ActionHistory = append([]ActionRecord{}, u.ActionHistory[n-MaxActionHistory:]...)
	}
}

func (u *UsageStats) appendError(e ErrorPattern) {
	u.ErrorPatterns = append(u.ErrorPatterns, e)
	if n := len(u.ErrorPatterns); n > MaxErrorPatterns {
		u.ErrorPatterns = append([]ErrorPattern{}, u.ErrorPatterns[n-MaxErrorPatterns:]...)
	}
}

// Adaptive holds the session-tuned values of the adaptive layer.
type Adaptive struct {
	DwellTime          float64 `json:"dwellTime"`
	StabilityThreshold float64 `json:"stabilityThreshold"`
}

// Calibrated holds the gesture thresholds derived from a calibration window.
type Calibrated struct {
	MouthThreshold    float64 `json:"mouthThreshold"`
	EyebrowThreshold  float64 `json:"eyebrowThreshold"`
	HeadTiltThreshold float64 `json:"headTiltThreshold"`
}

// UsageSnapshot is the persisted record of one session's adaptation.
type UsageSnapshot struct {
	UsageStats         UsageStats `json:"usageStats"`
	AdaptiveThresholds Adaptive   `json:"adaptiveThresholds"`
}
