package threshold

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mukha/internal/landmark"
)

// Adaptation constants.
const (
	// FatigueTrigger is the fatigue level above which thresholds relax.
	FatigueTrigger = 0.3
	// FatigueDwellFloor and FatigueStabilityFloor stop fatigue relaxation
	// from collapsing the thresholds.
	FatigueDwellFloor     = 300.0
	FatigueStabilityFloor = 5.0

	// MinActionsToAdapt is the number of logged actions before the
	// accidental rate is trusted.
	MinActionsToAdapt = 10
	// HighAccidentalRate tightens thresholds, LowAccidentalRate relaxes them.
	HighAccidentalRate = 0.10
	LowAccidentalRate  = 0.02
	// MinActionsToRelax is the action count needed before relaxing on a low rate.
	MinActionsToRelax = 50

	tightenStep    = 1.1
	tightenCeiling = 1.5
	relaxStep      = 0.95
	relaxFloor     = 0.7
	accidentalCap  = 2.0

	// Historical bootstrap.
	historyWindow          = 10
	historyMinActions      = 100
	historyMaxAvgRate      = 0.03
	historyOptimalRate     = 0.05
	historyMinOptimal      = 3
	historySeedFactor      = 0.9
	historyBaseFloorFactor = 0.8

	// AccidentalActivation is the error pattern type of an accidental activation.
	AccidentalActivation = "accidental_activation"
)

// Manager owns the base, calibrated and adaptive threshold layers.
// It is not safe for concurrent use.
type Manager struct {
	logger *zap.Logger

	base       Set
	adaptive   Adaptive
	calibrated *Calibrated
	usage      UsageStats
	calibrator Calibrator
}

// NewManager creates a Manager seeded with base thresholds and a session
// starting at start. If logger is nil, a no-op logger is used.
func NewManager(base Set, start time.Time, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{logger: logger}
	m.Load(start, base, nil, nil)
	return m
}

// Resolve returns the effective thresholds: calibrated values override the
// gesture thresholds, adaptive values override dwell and stability and
// everything else comes from base. The result is always clamped.
func (m *Manager) Resolve() Set {
	s := m.base
	if s.Adaptive.Enabled {
		s.DwellTime = m.adaptive.DwellTime
		s.StabilityThreshold = m.adaptive.StabilityThreshold
	}
	if m.calibrated != nil {
		s.MouthThreshold = m.calibrated.MouthThreshold
		s.EyebrowThreshold = m.calibrated.EyebrowThreshold
		s.HeadTiltThreshold = m.calibrated.HeadTiltThreshold
	}
	return s.Clamp()
}

// Base returns the configured base layer.
func (m *Manager) Base() Set {
	return m.base
}

// Calibrated returns the calibrated layer, if a calibration has completed.
func (m *Manager) Calibrated() (Calibrated, bool) {
	if m.calibrated == nil {
		return Calibrated{}, false
	}
	return *m.calibrated, true
}

// Configure merges p into the base layer and resets the adaptive layer to
// the new base values.
func (m *Manager) Configure(p Patch) {
	m.base = p.Apply(m.base)
	m.resetAdaptive()
	m.logger.Debug("thresholds configured",
		zap.Float64("dwellTime", m.base.DwellTime),
		zap.Float64("stabilityThreshold", m.base.StabilityThreshold))
}

// Load seeds all three layers for a session starting at start. history is
// the profile's adaptation history, oldest first.
func (m *Manager) Load(start time.Time, base Set, calibrated *Calibrated, history []UsageSnapshot) {
	m.base = base.Clamp()
	m.calibrated = nil
	if calibrated != nil {
		c := *calibrated
		m.calibrated = &c
	}
	m.resetAdaptive()
	m.usage = newUsageStats(start)
	m.calibrator.Reset()
	m.bootstrap(history)
}

// ResetSession starts a new usage session. Counters are cleared; adaptive
// values carried over from the previous session and the calibrated layer
// are kept. An uncalibrated profile gets a fresh calibration window.
func (m *Manager) ResetSession(at time.Time) {
	m.usage = newUsageStats(at)
	if m.calibrated == nil {
		m.calibrator.Reset()
	}
}

// ClearCalibration drops the calibrated layer and reopens the calibration
// window on the next face frame.
func (m *Manager) ClearCalibration() {
	m.calibrated = nil
	m.calibrator.Reset()
	m.logger.Info("gesture calibration cleared")
}

// CalibrationActive reports whether the sampling window is open.
func (m *Manager) CalibrationActive() bool {
	return m.calibrator.Active()
}

// ObserveCalibration feeds a face frame to the automatic calibration. It is
// a no-op once a calibrated layer exists or when auto calibration is off.
func (m *Manager) ObserveCalibration(at time.Time, f *landmark.Frame) CalibrationStatus {
	if m.calibrated != nil || !m.base.Adaptive.AutoCalibration {
		return CalibrationIdle
	}

	status, cal := m.calibrator.Observe(at, f)
	switch status {
	case CalibrationStarted:
		m.logger.Info("automatic gesture calibration started",
			zap.Duration("window", CalibrationWindow))
	case CalibrationCompleted:
		m.calibrated = &cal
		m.logger.Info("automatic gesture calibration completed",
			zap.Float64("mouthThreshold", cal.MouthThreshold),
			zap.Float64("eyebrowThreshold", cal.EyebrowThreshold),
			zap.Float64("headTiltThreshold", cal.HeadTiltThreshold))
	case CalibrationAborted:
		m.logger.Info("automatic gesture calibration aborted, retrying next session")
	}
	return status
}

// RecordAction logs a committed action and, when adaptation is enabled,
// re-tunes the adaptive layer. Usage counters are kept either way. It
// returns the updated snapshot for persistence.
func (m *Manager) RecordAction(at time.Time, action string) UsageSnapshot {
	m.usage.TotalActions++
	m.usage.LastActivity = at
	m.usage.appendAction(ActionRecord{
		At:           at,
		Action:       action,
		Confidence:   1,
		FatigueLevel: m.usage.FatigueLevel,
	})

	m.updateFatigue(at)
	if m.base.Adaptive.Enabled {
		m.relax()
		m.adapt()
	}

	m.logger.Debug("action recorded",
		zap.String("action", action),
		zap.Int("totalActions", m.usage.TotalActions),
		zap.Float64("fatigueLevel", m.usage.FatigueLevel),
		zap.Float64("dwellTime", m.adaptive.DwellTime),
		zap.Float64("stabilityThreshold", m.adaptive.StabilityThreshold))
	return m.Snapshot()
}

// RecordAccidental logs an accidental activation that happened in state
// context and raises the adaptive dwell time toward twice its base value.
func (m *Manager) RecordAccidental(at time.Time, context string) UsageSnapshot {
	m.usage.AccidentalActivations++
	m.usage.appendError(ErrorPattern{At: at, Type: AccidentalActivation, Context: context})

	if m.base.Adaptive.Enabled {
		m.adaptive.DwellTime = math.Min(
			m.adaptive.DwellTime*m.base.Adaptive.ErrorTolerance,
			m.base.DwellTime*accidentalCap,
		)
	}

	m.logger.Info("accidental activation",
		zap.String("context", context),
		zap.Int("accidentalActivations", m.usage.AccidentalActivations),
		zap.Float64("dwellTime", m.adaptive.DwellTime))
	return m.Snapshot()
}

// Snapshot returns a copy of the session telemetry and adaptive values.
func (m *Manager) Snapshot() UsageSnapshot {
	return UsageSnapshot{
		UsageStats:         m.usage.clone(),
		AdaptiveThresholds: m.adaptive,
	}
}

func (m *Manager) resetAdaptive() {
	m.adaptive = Adaptive{
		DwellTime:          m.base.DwellTime,
		StabilityThreshold: m.base.StabilityThreshold,
	}
}

// updateFatigue recomputes the fatigue level from session length and
// action rate.
func (m *Manager) updateFatigue(at time.Time) {
	minutes := at.Sub(m.usage.SessionStart).Minutes()
	perMinute := float64(m.usage.TotalActions) / math.Max(minutes, 1)
	m.usage.FatigueLevel = math.Min(1, 0.1*minutes+2*perMinute)
}

// relax lowers dwell and stability while the user is fatigued.
func (m *Manager) relax() {
	if m.usage.FatigueLevel > FatigueTrigger {
		reduction := m.base.Adaptive.FatigueReduction
		m.adaptive.DwellTime = math.Max(m.base.DwellTime*reduction, FatigueDwellFloor)
		m.adaptive.StabilityThreshold = math.Max(m.base.StabilityThreshold*reduction, FatigueStabilityFloor)
	}
}

// adapt tightens or relaxes the adaptive layer based on the session's
// accidental activation rate.
func (m *Manager) adapt() {
	if len(m.usage.ActionHistory) < MinActionsToAdapt {
		return
	}

	rate := m.usage.AccidentalRate()
	switch {
	case rate > HighAccidentalRate:
		m.adaptive.DwellTime = math.Min(m.adaptive.DwellTime*tightenStep, m.base.DwellTime*tightenCeiling)
		m.adaptive.StabilityThreshold = math.Min(m.adaptive.StabilityThreshold*tightenStep, m.base.StabilityThreshold*tightenCeiling)
	case rate < LowAccidentalRate && m.usage.TotalActions >= MinActionsToRelax:
		m.adaptive.DwellTime = math.Max(m.adaptive.DwellTime*relaxStep, m.base.DwellTime*relaxFloor)
		m.adaptive.StabilityThreshold = math.Max(m.adaptive.StabilityThreshold*relaxStep, m.base.StabilityThreshold*relaxFloor)
	}
}

// bootstrap seeds the adaptive layer from past sessions when the user has
// a long, low-error history.
func (m *Manager) bootstrap(history []UsageSnapshot) {
	if len(history) < historyWindow {
		return
	}
	recent := history[len(history)-historyWindow:]

	var (
		totalActions int
		rateSum      float64
		dwellSum     float64
		stabilitySum float64
		optimal      int
	)
	for _, s := range recent {
		totalActions += s.UsageStats.TotalActions
		rate := s.UsageStats.AccidentalRate()
		rateSum += rate
		if rate < historyOptimalRate && s.AdaptiveThresholds.DwellTime > 0 {
			dwellSum += s.AdaptiveThresholds.DwellTime
			stabilitySum += s.AdaptiveThresholds.StabilityThreshold
			optimal++
		}
	}

	avgRate := rateSum / float64(len(recent))
	if totalActions < historyMinActions || avgRate >= historyMaxAvgRate || optimal <= historyMinOptimal {
		return
	}

	m.adaptive.DwellTime = math.Max(historySeedFactor*dwellSum/float64(optimal), historyBaseFloorFactor*m.base.DwellTime)
	m.adaptive.StabilityThreshold = math.Max(historySeedFactor*stabilitySum/float64(optimal), historyBaseFloorFactor*m.base.StabilityThreshold)
	m.logger.Info("adaptive thresholds seeded from history",
		zap.Int("sessions", len(recent)),
		zap.Float64("dwellTime", m.adaptive.DwellTime),
		zap.Float64("stabilityThreshold", m.adaptive.StabilityThreshold))
}
