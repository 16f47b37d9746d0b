// Package app wires the camera, the face detector, the interaction engine
// and the action plugins into a running session.
package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayusman/mukha/internal/capture"
	"github.com/ayusman/mukha/internal/detector"
	"github.com/ayusman/mukha/internal/engine"
	"github.com/ayusman/mukha/internal/landmark"
	"github.com/ayusman/mukha/internal/rules"
	"github.com/ayusman/mukha/internal/store"
	"github.com/ayusman/mukha/internal/threshold"
)

// Pipeline defaults.
const (
	// IdleFPS is the frame rate while no face is being tracked.
	IdleFPS = 5
	// ActiveFPS is the frame rate while a face is tracked.
	ActiveFPS = 15
	// IdleTimeout is how long the engine must stay Inactive before the
	// pipeline drops back to idle mode.
	IdleTimeout = 2 * time.Second
	// ActionQueueSize bounds the actions waiting for a plugin.
	ActionQueueSize = 16
)

// EnabledSetting is the settings key that remembers whether the session
// was switched off.
const EnabledSetting = "session.enabled"

// ErrNotRunning is returned by Stop when the pipeline was never started.
var ErrNotRunning = errors.New("pipeline not running")

// Executor carries out a named action. plugin.Runner implements it.
type Executor interface {
	Execute(ctx context.Context, action, param string) error
}

// Pointer receives coalesced pointer motion.
type Pointer interface {
	Move(dx, dy int)
}

// Config holds configuration options for the application.
type Config struct {
	Store    *store.Store
	Camera   capture.Camera
	Detector detector.Detector
	Executor Executor
	Pointer  Pointer
	// Sinks receive every engine event after the app has handled it.
	Sinks  []engine.Sink
	Logger *zap.Logger

	Profile         string
	DwellActivation bool

	IdleFPS     int
	ActiveFPS   int
	IdleTimeout time.Duration
}

// App is the running session. It owns the engine and serializes every
// access to it.
type App struct {
	config Config
	logger *zap.Logger

	store     *store.Store
	profileMu sync.Mutex // guards profile and session
	profile   *store.Profile
	session   *store.Session

	mu      sync.Mutex // guards engine
	engine  *engine.Engine
	sink    *appSink
	gate    *rules.Gate
	wake    *capture.WakeGate
	enabled bool

	stateMu sync.RWMutex
	state   engine.State

	actions chan action
	persist chan struct{}

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New loads the configured profile and prepares a session. The pipeline is
// not started until Start is called.
func New(config Config) (*App, error) {
	if config.Store == nil {
		return nil, errors.New("app: store is required")
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Profile == "" {
		config.Profile = "default"
	}
	if config.IdleFPS <= 0 {
		config.IdleFPS = IdleFPS
	}
	if config.ActiveFPS <= 0 {
		config.ActiveFPS = ActiveFPS
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = IdleTimeout
	}

	profile, err := config.Store.Profiles().Ensure(config.Profile)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	a := &App{
		config:  config,
		logger:  config.Logger,
		store:   config.Store,
		profile: profile,
		gate:    rules.NewGate(profile.Thresholds.Cooldown()),
		wake:    capture.NewWakeGate(0, 0),
		enabled: true,
		actions: make(chan action, ActionQueueSize),
		persist: make(chan struct{}, 1),
	}
	a.sink = newAppSink(a)

	switch v, err := config.Store.Settings().Get(EnabledSetting); {
	case err == nil:
		a.enabled = v != "false"
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	sinks := append(engine.MultiSink{a.sink}, config.Sinks...)
	cfg := engine.DefaultConfig()
	cfg.Thresholds = profile.Thresholds
	cfg.DwellActivation = config.DwellActivation
	a.engine = engine.New(cfg, sinks, config.Logger.Named("engine"))

	if err := a.ReloadRules(); err != nil {
		return nil, err
	}
	if err := a.loadProfile(time.Now()); err != nil {
		return nil, err
	}
	return a, nil
}

// loadProfile seeds the engine from the stored profile and opens a new
// session record.
func (a *App) loadProfile(at time.Time) error {
	history, err := a.store.Sessions().History(a.profile.ID)
	if err != nil {
		return fmt.Errorf("failed to load adaptation history: %w", err)
	}

	a.mu.Lock()
	a.engine.LoadProfile(at, engine.Profile{
		Thresholds:  a.profile.Thresholds,
		NeutralPose: a.profile.NeutralPose,
		Calibrated:  a.profile.Calibrated,
		History:     history,
	})
	snap := a.engine.Snapshot()
	a.mu.Unlock()

	a.session = &store.Session{
		ID:        uuid.New().String(),
		ProfileID: a.profile.ID,
		StartedAt: at,
		Snapshot:  snap,
	}
	a.logger.Info("session started",
		zap.String("profile", a.profile.Name),
		zap.String("session", a.session.ID),
		zap.Int("history", len(history)))
	return nil
}

// Start opens the camera and runs the pipeline and its workers until ctx
// is cancelled or Stop is called.
func (a *App) Start(ctx context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	// Don't start if already running
	if a.cancel != nil {
		return nil
	}
	if a.config.Camera == nil || a.config.Detector == nil {
		return errors.New("app: camera and detector are required")
	}

	if err := a.config.Camera.Open(); err != nil {
		return err
	}
	a.config.Camera.SetFPS(a.config.IdleFPS)

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); a.runPipeline(ctx) }()
	go func() { defer wg.Done(); a.runActions(ctx) }()
	go func() { defer wg.Done(); a.runPersistence(ctx) }()
	if a.config.Pointer != nil {
		wg.Add(1)
		go func() { defer wg.Done(); a.runPointer(ctx) }()
	}
	go func() {
		wg.Wait()
		close(a.done)
	}()

	a.logger.Info("detection pipeline started")
	return nil
}

// Stop halts the pipeline, flushes the session and releases the camera and
// the detector.
func (a *App) Stop() error {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	if a.cancel == nil {
		return ErrNotRunning
	}
	a.cancel()
	<-a.done
	a.cancel = nil

	if err := a.flush(); err != nil {
		a.logger.Warn("failed to save session", zap.Error(err))
	}
	if err := a.config.Camera.Close(); err != nil {
		a.logger.Warn("error closing camera", zap.Error(err))
	}
	a.wake.Close()
	if err := a.config.Detector.Close(); err != nil {
		a.logger.Warn("error closing detector", zap.Error(err))
	}

	a.logger.Info("detection pipeline stopped")
	return nil
}

// ProfileID returns the ID of the active profile.
func (a *App) ProfileID() string {
	return a.profile.ID
}

// State returns the last engine state.
func (a *App) State() engine.State {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.state
}

func (a *App) setState(s engine.State) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.state = s
}

// Enabled reports whether frames are fed to the engine.
func (a *App) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// SetEnabled enables or disables the session. Disabling ends any
// interaction in progress.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.enabled == enabled {
		return
	}
	a.enabled = enabled
	if !enabled {
		a.sink.frameAt = time.Now()
		a.engine.OnFrame(a.sink.frameAt, nil)
	}
	if err := a.store.Settings().Set(EnabledSetting, strconv.FormatBool(enabled)); err != nil {
		a.logger.Warn("failed to save session toggle", zap.Error(err))
	}
	a.logger.Info("session toggled", zap.Bool("enabled", enabled))
}

// Thresholds returns the effective thresholds.
func (a *App) Thresholds() threshold.Set {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.Thresholds()
}

// Calibrated returns the calibrated gesture thresholds, if any.
func (a *App) Calibrated() (threshold.Calibrated, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.Calibrated()
}

// Neutral returns the neutral head pose, if one has been captured.
func (a *App) Neutral() (landmark.Point, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.Neutral()
}

// Snapshot returns the current usage telemetry.
func (a *App) Snapshot() threshold.UsageSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.Snapshot()
}

// Configure applies a threshold patch to the session and stores the new
// base thresholds in the profile.
func (a *App) Configure(p threshold.Patch) error {
	a.mu.Lock()
	a.engine.Configure(p)
	base := a.engine.Base()
	a.mu.Unlock()

	a.gate.SetCooldown(base.Cooldown())
	return a.updateProfile(func(p *store.Profile) {
		p.Thresholds = base
	})
}

// RequestCalibration captures the next stable head pose as neutral.
func (a *App) RequestCalibration() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.engine.RequestCalibration()
}

// RecalibrateGestures discards the calibrated gesture thresholds in the
// session and in the profile.
func (a *App) RecalibrateGestures() error {
	a.mu.Lock()
	a.engine.RecalibrateGestures()
	a.mu.Unlock()

	return a.updateProfile(func(p *store.Profile) {
		p.Calibrated = nil
		p.LastCalibrated = nil
	})
}

// updateProfile applies fn to the active profile and stores it.
func (a *App) updateProfile(fn func(p *store.Profile)) error {
	a.profileMu.Lock()
	defer a.profileMu.Unlock()
	fn(a.profile)
	if err := a.store.Profiles().Update(a.profile); err != nil {
		return fmt.Errorf("failed to save profile %q: %w", a.profile.Name, err)
	}
	return nil
}

// ReloadRules re-reads the profile's rules from the store.
func (a *App) ReloadRules() error {
	list, err := a.store.Rules().List(a.profile.ID)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}
	table := rules.NewTable(list)
	a.sink.setRules(table)
	a.logger.Debug("rules loaded", zap.Int("enabled", table.Len()))
	return nil
}

// OnFrame feeds one landmark frame to the engine. It is called by the
// pipeline and may be called directly when frames come from elsewhere.
func (a *App) OnFrame(at time.Time, frame *landmark.Frame) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.enabled {
		return
	}
	a.sink.frameAt = at
	a.engine.OnFrame(at, frame)
}
