package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ayusman/mukha/internal/app"
	"github.com/ayusman/mukha/internal/capture"
	"github.com/ayusman/mukha/internal/detector"
	"github.com/ayusman/mukha/internal/engine"
	"github.com/ayusman/mukha/internal/plugin"
	"github.com/ayusman/mukha/internal/server"
	"github.com/ayusman/mukha/internal/tray"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the camera session, the control panel and the tray",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd.Context())
	},
}

func runSession(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	camCfg := capture.DefaultConfig()
	camCfg.DeviceID = cfg.CameraID
	camCfg.FPS = cfg.IdleFPS

	// Try the face mesh service first, fall back to mock detector
	var det detector.Detector
	if fm, err := detector.NewFaceMeshDetector(detector.DefaultConfig(), logger.Named("detector")); err == nil {
		det = fm
	} else {
		logger.Warn("face mesh service not available, using mock detector", zap.Error(err))
		det = detector.NewMockDetector()
	}

	plugins := plugin.NewManager(cfg.PluginDir)
	if err := plugins.Discover(); err != nil {
		return fmt.Errorf("failed to discover plugins: %w", err)
	}
	for _, reason := range plugins.Skipped() {
		logger.Warn("plugin skipped", zap.String("reason", reason))
	}
	logger.Info("plugins discovered",
		zap.Int("count", len(plugins.List())),
		zap.Strings("actions", plugins.Actions()),
		zap.String("dir", cfg.PluginDir))
	runner := plugin.NewRunner(plugins, plugin.NewExecutor(cfg.PluginTimeout()), logger.Named("plugin"))

	hub := server.NewHub(logger.Named("events"))
	sinks := []engine.Sink{hub.Sink()}

	var tr *tray.Tray
	if cfg.TrayEnabled {
		tr = tray.New(logger.Named("tray"))
		sinks = append(sinks, tr)
	}

	session, err := app.New(app.Config{
		Store:           db,
		Camera:          capture.NewCamera(camCfg),
		Detector:        det,
		Executor:        runner,
		Sinks:           sinks,
		Logger:          logger,
		Profile:         cfg.Profile,
		DwellActivation: cfg.DwellActivation,
		IdleFPS:         cfg.IdleFPS,
		ActiveFPS:       cfg.ActiveFPS,
		IdleTimeout:     cfg.IdleTimeout(),
	})
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		StaticDir:  findWebDir(),
		Store:      db,
		Controller: session,
		Hub:        hub,
		Logger:     logger.Named("http"),
	})
	srvErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe(ctx, cfg.ListenAddr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
			cancel()
		}
		srvErr <- err
	}()

	if err := session.Start(ctx); err != nil {
		cancel()
		<-srvErr
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	if tr != nil {
		tr.SetEnabled(session.Enabled())
		tr.OnToggle(session.SetEnabled)
		tr.OnRecalibrate(session.RequestCalibration)
		tr.OnSettings(func() {
			fmt.Printf("Settings: http://localhost%s\n", cfg.ListenAddr)
		})
		tr.OnQuit(cancel)
		go func() {
			<-ctx.Done()
			tr.Quit()
		}()
		tr.Run()
	}
	<-ctx.Done()

	if err := session.Stop(); err != nil {
		logger.Warn("failed to stop pipeline", zap.Error(err))
	}
	if err := <-srvErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// findWebDir returns the configured static directory, or the first of
// "web", "../web" and ~/.mukha/web that exists.
func findWebDir() string {
	if cfg.StaticDir != "" {
		return cfg.StaticDir
	}

	candidates := []string{"web", filepath.Join("..", "web"), filepath.Join(cfg.DataDir, "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(runCmd)
}
