package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mukha/internal/engine"
)

// pacer tracks the pipeline mode. The pipeline runs at the active frame
// rate while a face is tracked and drops to idle once the engine has been
// Inactive for the idle timeout.
type pacer struct {
	idleTimeout   time.Duration
	active        bool
	inactiveSince time.Time
}

// observe records the engine state after a frame and reports whether the
// mode changed.
func (p *pacer) observe(now time.Time, state engine.State) bool {
	if state != engine.Inactive {
		p.inactiveSince = time.Time{}
		if !p.active {
			p.active = true
			return true
		}
		return false
	}

	if p.inactiveSince.IsZero() {
		p.inactiveSince = now
	}
	if p.active && now.Sub(p.inactiveSince) >= p.idleTimeout {
		p.active = false
		return true
	}
	return false
}

// runPipeline is the main detection loop that processes frames from the camera.
//
// While idle, frames go through the wake gate first so face detection only
// runs on scene changes and periodic probes. While active, every frame is
// detected and fed to the engine.
func (a *App) runPipeline(ctx context.Context) {
	pace := &pacer{idleTimeout: a.config.IdleTimeout}
	ticker := time.NewTicker(fpsInterval(a.config.IdleFPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Skip processing if detection is disabled
			if !a.Enabled() {
				continue
			}

			frame, err := a.config.Camera.ReadFrame()
			if err != nil {
				a.logger.Debug("error reading frame", zap.Error(err))
				continue
			}
			now := time.Now()

			if !pace.active && !a.wake.Wake(frame) {
				frame.Close()
				continue
			}

			face, err := a.config.Detector.Detect(frame)
			frame.Close()
			if err != nil {
				a.logger.Debug("error detecting face", zap.Error(err))
				continue
			}

			a.OnFrame(now, face)

			if !pace.observe(now, a.State()) {
				continue
			}
			fps := a.config.IdleFPS
			if pace.active {
				fps = a.config.ActiveFPS
			} else {
				a.wake.Reset()
			}
			a.config.Camera.SetFPS(fps)
			ticker.Reset(fpsInterval(fps))
			a.logger.Debug("pipeline mode", zap.Bool("active", pace.active), zap.Int("fps", fps))
		}
	}
}

func fpsInterval(fps int) time.Duration {
	return time.Second / time.Duration(fps)
}
