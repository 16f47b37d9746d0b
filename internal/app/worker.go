package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mukha/internal/plugin"
	"github.com/ayusman/mukha/internal/store"
)

// pointerInterval is how often coalesced pointer motion is flushed.
const pointerInterval = 16 * time.Millisecond

// enqueue hands an action to the action worker. A full queue drops the
// action rather than stall the frame loop.
func (a *App) enqueue(act action) {
	select {
	case a.actions <- act:
	default:
		a.logger.Warn("action queue full, dropping action", zap.String("action", act.name))
	}
}

// runActions executes queued actions one at a time.
func (a *App) runActions(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case act := <-a.actions:
			a.execute(ctx, act)
		}
	}
}

func (a *App) execute(ctx context.Context, act action) {
	if a.config.Executor == nil {
		a.logger.Debug("no executor, action dropped", zap.String("action", act.name))
		return
	}
	err := a.config.Executor.Execute(ctx, act.name, act.param)
	switch {
	case err == nil:
	case errors.Is(err, plugin.ErrNoPluginForAction):
		a.logger.Warn("no plugin handles action", zap.String("action", act.name))
	case errors.Is(err, context.Canceled):
	default:
		a.logger.Warn("action failed", zap.String("action", act.name), zap.Error(err))
	}
}

// runPointer flushes coalesced pointer motion at a fixed rate.
func (a *App) runPointer(ctx context.Context) {
	ticker := time.NewTicker(pointerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if dx, dy := a.sink.takeDelta(); dx != 0 || dy != 0 {
				a.config.Pointer.Move(dx, dy)
			}
		}
	}
}

// schedulePersist wakes the persistence worker. Requests coalesce.
func (a *App) schedulePersist() {
	select {
	case a.persist <- struct{}{}:
	default:
	}
}

// runPersistence writes engine results to the store off the frame loop.
func (a *App) runPersistence(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.persist:
			if err := a.flush(); err != nil {
				a.logger.Warn("failed to persist session", zap.Error(err))
			}
		}
	}
}

// flush writes pending neutral pose, calibration and usage telemetry.
func (a *App) flush() error {
	p := a.sink.takePending()

	if p.neutral != nil || p.calibrated {
		a.mu.Lock()
		calibrated, ok := a.engine.Calibrated()
		a.mu.Unlock()

		err := a.updateProfile(func(profile *store.Profile) {
			if p.neutral != nil {
				profile.NeutralPose = p.neutral
			}
			if p.calibrated && ok {
				now := time.Now()
				profile.Calibrated = &calibrated
				profile.LastCalibrated = &now
			}
		})
		if err != nil {
			return err
		}
		if p.calibrated {
			a.logger.Info("calibrated thresholds saved",
				zap.Float64("mouth", calibrated.MouthThreshold),
				zap.Float64("eyebrow", calibrated.EyebrowThreshold),
				zap.Float64("headTilt", calibrated.HeadTiltThreshold))
		}
	}

	if p.snapshot != nil {
		a.profileMu.Lock()
		defer a.profileMu.Unlock()
		a.session.Snapshot = *p.snapshot
		if err := a.store.Sessions().Save(a.session); err != nil {
			return err
		}
	}
	return nil
}
