package app

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mukha/internal/engine"
	"github.com/ayusman/mukha/internal/gesture"
	"github.com/ayusman/mukha/internal/landmark"
	"github.com/ayusman/mukha/internal/motion"
	"github.com/ayusman/mukha/internal/rules"
	"github.com/ayusman/mukha/internal/threshold"
)

// action is a committed action waiting for its plugin.
type action struct {
	name  string
	param string
}

// pending holds engine results not yet written to the store.
type pending struct {
	snapshot   *threshold.UsageSnapshot
	neutral    *landmark.Point
	calibrated bool
}

// appSink turns engine events into plugin executions, rule matches and
// store writes. It runs inside the engine lock, so it only queues work.
type appSink struct {
	app *App

	// frameAt is the timestamp of the frame being processed. Written
	// under the engine lock before each frame.
	frameAt time.Time

	mu      sync.Mutex
	rules   *rules.Table
	pending pending
	dx, dy  int
}

func newAppSink(a *App) *appSink {
	return &appSink{app: a, rules: rules.NewTable(nil)}
}

func (s *appSink) setRules(t *rules.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = t
}

func (s *appSink) OnPointerDelta(d motion.Delta) {
	if s.app.config.Pointer == nil || d.IsZero() {
		return
	}
	s.mu.Lock()
	s.dx += d.DX
	s.dy += d.DY
	s.mu.Unlock()
}

// takeDelta returns and clears the motion accumulated since the last call.
func (s *appSink) takeDelta() (dx, dy int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dx, dy = s.dx, s.dy
	s.dx, s.dy = 0, 0
	return dx, dy
}

func (s *appSink) OnAction(name string) {
	s.app.gate.Mark(s.frameAt)
	s.app.enqueue(action{name: name})
}

func (s *appSink) OnGestures(sig gesture.Signals) {
	s.mu.Lock()
	table := s.rules
	s.mu.Unlock()

	m, ok := table.Evaluate(sig)
	if !ok || !s.app.gate.Allow(s.frameAt) {
		return
	}
	s.app.logger.Info("rule triggered",
		zap.String("gesture", m.Rule.Gesture),
		zap.String("action", m.Action))
	s.app.enqueue(action{name: m.Rule.Action, param: m.Rule.Param})
}

func (s *appSink) OnStateChanged(state engine.State) {
	s.app.setState(state)
}

func (s *appSink) OnCalibrationStatus(status engine.CalibrationStatus) {
	if !status.Completed {
		return
	}
	s.mu.Lock()
	s.pending.calibrated = true
	s.mu.Unlock()
	s.app.schedulePersist()
}

func (s *appSink) OnAdaptationUpdate(snap threshold.UsageSnapshot) {
	s.mu.Lock()
	s.pending.snapshot = &snap
	s.mu.Unlock()
	s.app.schedulePersist()
}

func (s *appSink) OnNeutralPose(p landmark.Point) {
	s.mu.Lock()
	s.pending.neutral = &p
	s.mu.Unlock()
	s.app.schedulePersist()
}

// takePending returns and clears the unwritten engine results.
func (s *appSink) takePending() pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pending
	s.pending = pending{}
	return p
}
