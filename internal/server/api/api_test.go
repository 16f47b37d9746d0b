package api

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/ayusman/mukha/internal/engine"
	"github.com/ayusman/mukha/internal/landmark"
	"github.com/ayusman/mukha/internal/store"
	"github.com/ayusman/mukha/internal/threshold"
)

// fakeController is a Controller backed by a store profile.
type fakeController struct {
	mu          sync.Mutex
	store       *store.Store
	profile     *store.Profile
	state       engine.State
	enabled     bool
	neutral     *landmark.Point
	calibrated  *threshold.Calibrated
	calibrating bool
	reloads     int
}

func newTestController(t *testing.T) *fakeController {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	p, err := s.Profiles().Ensure("default")
	if err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	return &fakeController{store: s, profile: p, enabled: true}
}

func (c *fakeController) ProfileID() string { return c.profile.ID }

func (c *fakeController) State() engine.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeController) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

func (c *fakeController) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

func (c *fakeController) Thresholds() threshold.Set { return c.profile.Thresholds }

func (c *fakeController) Calibrated() (threshold.Calibrated, bool) {
	if c.calibrated == nil {
		return threshold.Calibrated{}, false
	}
	return *c.calibrated, true
}

func (c *fakeController) Neutral() (landmark.Point, bool) {
	if c.neutral == nil {
		return landmark.Point{}, false
	}
	return *c.neutral, true
}

func (c *fakeController) Snapshot() threshold.UsageSnapshot { return threshold.UsageSnapshot{} }

func (c *fakeController) Configure(p threshold.Patch) error {
	c.profile.Thresholds = p.Apply(c.profile.Thresholds)
	return c.store.Profiles().Update(c.profile)
}

func (c *fakeController) RequestCalibration() {
	c.calibrating = true
}

func (c *fakeController) RecalibrateGestures() error {
	c.calibrated = nil
	return nil
}

func (c *fakeController) ReloadRules() error {
	c.reloads++
	return nil
}
