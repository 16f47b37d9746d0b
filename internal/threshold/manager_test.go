package threshold

import (
	"math"
	"testing"
	"time"

	"github.com/ayusman/mukha/internal/landmark"
)

var sessionStart = time.Unix(1700000000, 0)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestManager_Resolve(t *testing.T) {
	t.Run("base layer", func(t *testing.T) {
		m := NewManager(Defaults(), sessionStart, nil)
		got := m.Resolve()
		if got.MouthThreshold != DefaultMouthThreshold || got.DwellTime != DefaultDwellTime {
			t.Errorf("expected defaults, got %+v", got)
		}
	})

	t.Run("calibrated overrides gesture thresholds", func(t *testing.T) {
		m := NewManager(Defaults(), sessionStart, nil)
		m.Load(sessionStart, Defaults(), &Calibrated{
			MouthThreshold:    0.06,
			EyebrowThreshold:  0.1,
			HeadTiltThreshold: 0.05,
		}, nil)

		got := m.Resolve()
		if got.MouthThreshold != 0.06 || got.EyebrowThreshold != 0.1 || got.HeadTiltThreshold != 0.05 {
			t.Errorf("expected calibrated values, got %+v", got)
		}
		if got.DwellTime != DefaultDwellTime {
			t.Errorf("expected dwell untouched by calibration, got %f", got.DwellTime)
		}
	})

	t.Run("adaptive overrides dwell even when calibrated", func(t *testing.T) {
		m := NewManager(Defaults(), sessionStart, nil)
		m.Load(sessionStart, Defaults(), &Calibrated{MouthThreshold: 0.06, EyebrowThreshold: 0.1, HeadTiltThreshold: 0.05}, nil)
		m.RecordAccidental(sessionStart.Add(time.Second), "preselecting")

		if got := m.Resolve().DwellTime; !approx(got, 1200) {
			t.Errorf("expected adaptive dwell 1200, got %f", got)
		}
	})

	t.Run("resolved values are clamped", func(t *testing.T) {
		m := NewManager(Defaults(), sessionStart, nil)
		m.Load(sessionStart, Defaults(), &Calibrated{MouthThreshold: 0.5, EyebrowThreshold: 0, HeadTiltThreshold: 1}, nil)

		got := m.Resolve()
		if got.MouthThreshold != MouthBounds.Max || got.EyebrowThreshold != EyebrowBounds.Min || got.HeadTiltThreshold != HeadTiltBounds.Max {
			t.Errorf("expected clamped values, got %+v", got)
		}
	})
}

func TestManager_Configure(t *testing.T) {
	m := NewManager(Defaults(), sessionStart, nil)
	m.RecordAccidental(sessionStart, "preselecting")

	m.Configure(Patch{DwellTime: Float(1500)})

	snap := m.Snapshot()
	if snap.AdaptiveThresholds.DwellTime != 1500 {
		t.Errorf("expected adaptive reset to new base 1500, got %f", snap.AdaptiveThresholds.DwellTime)
	}
	if m.Base().DwellTime != 1500 {
		t.Errorf("expected base dwell 1500, got %f", m.Base().DwellTime)
	}
}

func TestManager_Fatigue(t *testing.T) {
	m := NewManager(Defaults(), sessionStart, nil)

	snap := m.RecordAction(sessionStart.Add(10*time.Second), "click")

	if snap.UsageStats.FatigueLevel != 1 {
		t.Errorf("expected fatigue level capped at 1, got %f", snap.UsageStats.FatigueLevel)
	}
	if !approx(snap.AdaptiveThresholds.DwellTime, 800) {
		t.Errorf("expected dwell relaxed to 800, got %f", snap.AdaptiveThresholds.DwellTime)
	}
	if !approx(snap.AdaptiveThresholds.StabilityThreshold, 8) {
		t.Errorf("expected stability relaxed to 8, got %f", snap.AdaptiveThresholds.StabilityThreshold)
	}
}

func TestManager_FatigueFloors(t *testing.T) {
	base := Defaults()
	base.DwellTime = 320
	base.StabilityThreshold = 5
	m := NewManager(base, sessionStart, nil)

	snap := m.RecordAction(sessionStart.Add(time.Second), "click")
	if snap.AdaptiveThresholds.DwellTime != FatigueDwellFloor {
		t.Errorf("expected dwell floor %f, got %f", FatigueDwellFloor, snap.AdaptiveThresholds.DwellTime)
	}
	if snap.AdaptiveThresholds.StabilityThreshold != FatigueStabilityFloor {
		t.Errorf("expected stability floor %f, got %f", FatigueStabilityFloor, snap.AdaptiveThresholds.StabilityThreshold)
	}
}

func noFatigue() Set {
	s := Defaults()
	s.Adaptive.FatigueReduction = 1
	return s
}

func TestManager_Accidental(t *testing.T) {
	m := NewManager(Defaults(), sessionStart, nil)

	want := []float64{1200, 1440, 1728, 2000, 2000}
	for i, w := range want {
		snap := m.RecordAccidental(sessionStart.Add(time.Duration(i)*time.Second), "preselecting")
		if !approx(snap.AdaptiveThresholds.DwellTime, w) {
			t.Errorf("accidental %d: expected dwell %f, got %f", i+1, w, snap.AdaptiveThresholds.DwellTime)
		}
	}

	snap := m.Snapshot()
	if snap.UsageStats.AccidentalActivations != 5 {
		t.Errorf("expected 5 accidental activations, got %d", snap.UsageStats.AccidentalActivations)
	}
	if len(snap.UsageStats.ErrorPatterns) != 5 || snap.UsageStats.ErrorPatterns[0].Type != AccidentalActivation {
		t.Errorf("expected 5 error patterns, got %+v", snap.UsageStats.ErrorPatterns)
	}
}

func TestManager_ErrorPatternsCapped(t *testing.T) {
	m := NewManager(Defaults(), sessionStart, nil)
	for i := 0; i < MaxErrorPatterns+5; i++ {
		m.RecordAccidental(sessionStart, "preselecting")
	}
	if n := len(m.Snapshot().UsageStats.ErrorPatterns); n != MaxErrorPatterns {
		t.Errorf("expected %d error patterns, got %d", MaxErrorPatterns, n)
	}
}

func TestManager_TightenOnHighAccidentalRate(t *testing.T) {
	m := NewManager(noFatigue(), sessionStart, nil)
	m.RecordAccidental(sessionStart, "preselecting")
	m.RecordAccidental(sessionStart, "preselecting")

	var snap UsageSnapshot
	for i := 1; i <= MinActionsToAdapt; i++ {
		snap = m.RecordAction(sessionStart.Add(time.Duration(i)*time.Second), "click")
	}

	// 2 of 10 accidental: 1000 * 1.1.
	if !approx(snap.AdaptiveThresholds.DwellTime, 1100) {
		t.Errorf("expected dwell 1100, got %f", snap.AdaptiveThresholds.DwellTime)
	}
	if !approx(snap.AdaptiveThresholds.StabilityThreshold, 11) {
		t.Errorf("expected stability 11, got %f", snap.AdaptiveThresholds.StabilityThreshold)
	}
}

func TestManager_RelaxOnLowAccidentalRate(t *testing.T) {
	m := NewManager(noFatigue(), sessionStart, nil)

	var snap UsageSnapshot
	for i := 1; i < MinActionsToRelax; i++ {
		snap = m.RecordAction(sessionStart.Add(time.Duration(i)*time.Second), "click")
	}
	if snap.AdaptiveThresholds.DwellTime != DefaultDwellTime {
		t.Fatalf("expected no relaxation below %d actions, got %f", MinActionsToRelax, snap.AdaptiveThresholds.DwellTime)
	}

	snap = m.RecordAction(sessionStart.Add(time.Minute), "click")
	if !approx(snap.AdaptiveThresholds.DwellTime, 950) {
		t.Errorf("expected dwell 950, got %f", snap.AdaptiveThresholds.DwellTime)
	}
	if !approx(snap.AdaptiveThresholds.StabilityThreshold, 9.5) {
		t.Errorf("expected stability 9.5, got %f", snap.AdaptiveThresholds.StabilityThreshold)
	}
	if len(snap.UsageStats.ActionHistory) != MinActionsToRelax {
		t.Errorf("expected %d history entries, got %d", MinActionsToRelax, len(snap.UsageStats.ActionHistory))
	}
}

func TestManager_ActionHistoryCapped(t *testing.T) {
	m := NewManager(Defaults(), sessionStart, nil)
	for i := 0; i < MaxActionHistory+20; i++ {
		m.RecordAction(sessionStart.Add(time.Duration(i)*time.Second), "click")
	}
	snap := m.Snapshot()
	if len(snap.UsageStats.ActionHistory) != MaxActionHistory {
		t.Errorf("expected %d history entries, got %d", MaxActionHistory, len(snap.UsageStats.ActionHistory))
	}
	if snap.UsageStats.TotalActions != MaxActionHistory+20 {
		t.Errorf("expected total %d, got %d", MaxActionHistory+20, snap.UsageStats.TotalActions)
	}
}

func TestManager_AdaptiveDisabled(t *testing.T) {
	base := Defaults()
	base.Adaptive.Enabled = false
	m := NewManager(base, sessionStart, nil)

	// A fast burst would relax dwell for fatigue if adaptation were on.
	for i := 0; i < 20; i++ {
		m.RecordAction(sessionStart.Add(time.Duration(i)*time.Second), "click")
	}
	m.RecordAccidental(sessionStart.Add(21*time.Second), "preselecting")

	snap := m.Snapshot()
	if snap.UsageStats.TotalActions != 20 {
		t.Errorf("expected 20 actions recorded, got %d", snap.UsageStats.TotalActions)
	}
	if len(snap.UsageStats.ActionHistory) != 20 {
		t.Errorf("expected 20 history entries, got %d", len(snap.UsageStats.ActionHistory))
	}
	if snap.UsageStats.FatigueLevel <= FatigueTrigger {
		t.Errorf("expected fatigue level above %v, got %v", FatigueTrigger, snap.UsageStats.FatigueLevel)
	}
	if rate := snap.UsageStats.AccidentalRate(); rate != 1.0/20 {
		t.Errorf("expected accidental rate 0.05, got %v", rate)
	}
	if m.Resolve().DwellTime != DefaultDwellTime {
		t.Errorf("expected base dwell, got %f", m.Resolve().DwellTime)
	}
	if m.Resolve().StabilityThreshold != base.StabilityThreshold {
		t.Errorf("expected base stability, got %f", m.Resolve().StabilityThreshold)
	}
}

func historySession(actions, accidental int, dwell, stability float64) UsageSnapshot {
	return UsageSnapshot{
		UsageStats:         UsageStats{TotalActions: actions, AccidentalActivations: accidental},
		AdaptiveThresholds: Adaptive{DwellTime: dwell, StabilityThreshold: stability},
	}
}

func TestManager_HistoricalBootstrap(t *testing.T) {
	t.Run("good history seeds adaptive layer", func(t *testing.T) {
		var history []UsageSnapshot
		for i := 0; i < 12; i++ {
			history = append(history, historySession(20, 0, 950, 9))
		}

		m := NewManager(Defaults(), sessionStart, nil)
		m.Load(sessionStart, Defaults(), nil, history)

		snap := m.Snapshot()
		if !approx(snap.AdaptiveThresholds.DwellTime, 855) {
			t.Errorf("expected dwell 855, got %f", snap.AdaptiveThresholds.DwellTime)
		}
		if !approx(snap.AdaptiveThresholds.StabilityThreshold, 8.1) {
			t.Errorf("expected stability 8.1, got %f", snap.AdaptiveThresholds.StabilityThreshold)
		}
	})

	t.Run("never below 80 percent of base", func(t *testing.T) {
		var history []UsageSnapshot
		for i := 0; i < 10; i++ {
			history = append(history, historySession(20, 0, 400, 5))
		}

		m := NewManager(Defaults(), sessionStart, nil)
		m.Load(sessionStart, Defaults(), nil, history)

		snap := m.Snapshot()
		if !approx(snap.AdaptiveThresholds.DwellTime, 800) {
			t.Errorf("expected dwell 800, got %f", snap.AdaptiveThresholds.DwellTime)
		}
		if !approx(snap.AdaptiveThresholds.StabilityThreshold, 8) {
			t.Errorf("expected stability 8, got %f", snap.AdaptiveThresholds.StabilityThreshold)
		}
	})

	tests := []struct {
		name    string
		history []UsageSnapshot
	}{
		{"too few sessions", repeat(historySession(50, 0, 900, 9), 9)},
		{"too few actions", repeat(historySession(5, 0, 900, 9), 10)},
		{"high accidental rate", repeat(historySession(20, 1, 900, 9), 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(Defaults(), sessionStart, nil)
			m.Load(sessionStart, Defaults(), nil, tt.history)
			if got := m.Snapshot().AdaptiveThresholds.DwellTime; got != DefaultDwellTime {
				t.Errorf("expected base dwell, got %f", got)
			}
		})
	}
}

func repeat(s UsageSnapshot, n int) []UsageSnapshot {
	out := make([]UsageSnapshot, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func TestManager_ObserveCalibration(t *testing.T) {
	m := NewManager(Defaults(), sessionStart, nil)

	if status := m.ObserveCalibration(sessionStart, landmark.NeutralFace()); status != CalibrationStarted {
		t.Fatalf("expected started, got %v", status)
	}
	if !m.CalibrationActive() {
		t.Fatal("expected calibration window open")
	}

	for i := 1; i <= 25; i++ {
		at := sessionStart.Add(time.Duration(i) * 100 * time.Millisecond)
		gap := 0.1 + 0.005*float64(i%2)
		m.ObserveCalibration(at, landmark.NeutralFace(landmark.WithMouthGap(gap)))
	}

	if status := m.ObserveCalibration(sessionStart.Add(CalibrationWindow), landmark.NeutralFace()); status != CalibrationCompleted {
		t.Fatalf("expected completed, got %v", status)
	}

	cal, ok := m.Calibrated()
	if !ok {
		t.Fatal("expected calibrated layer")
	}
	if m.Resolve().MouthThreshold != cal.MouthThreshold {
		t.Errorf("expected resolved mouth threshold %f, got %f", cal.MouthThreshold, m.Resolve().MouthThreshold)
	}

	m.ResetSession(sessionStart.Add(time.Hour))
	if status := m.ObserveCalibration(sessionStart.Add(time.Hour), landmark.NeutralFace()); status != CalibrationIdle {
		t.Errorf("expected calibrated profile not to recalibrate, got %v", status)
	}

	m.ClearCalibration()
	if _, ok := m.Calibrated(); ok {
		t.Error("expected calibrated layer cleared")
	}
	if status := m.ObserveCalibration(sessionStart.Add(2*time.Hour), landmark.NeutralFace()); status != CalibrationStarted {
		t.Errorf("expected window to reopen, got %v", status)
	}
}

func TestManager_AutoCalibrationDisabled(t *testing.T) {
	base := Defaults()
	base.Adaptive.AutoCalibration = false
	m := NewManager(base, sessionStart, nil)

	if status := m.ObserveCalibration(sessionStart, landmark.NeutralFace()); status != CalibrationIdle {
		t.Errorf("expected idle, got %v", status)
	}
}

func TestManager_ResetSession(t *testing.T) {
	m := NewManager(Defaults(), sessionStart, nil)
	m.RecordAccidental(sessionStart, "preselecting")
	m.RecordAction(sessionStart.Add(time.Second), "click")
	carried := m.Snapshot().AdaptiveThresholds

	later := sessionStart.Add(time.Hour)
	m.ResetSession(later)

	snap := m.Snapshot()
	if snap.UsageStats.TotalActions != 0 || snap.UsageStats.AccidentalActivations != 0 {
		t.Errorf("expected counters cleared, got %+v", snap.UsageStats)
	}
	if !snap.UsageStats.SessionStart.Equal(later) {
		t.Errorf("expected session start %v, got %v", later, snap.UsageStats.SessionStart)
	}
	if snap.AdaptiveThresholds != carried {
		t.Errorf("expected adaptive values carried over, got %+v want %+v", snap.AdaptiveThresholds, carried)
	}
}
