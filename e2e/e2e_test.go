package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mukha/internal/app"
	"github.com/ayusman/mukha/internal/capture"
	"github.com/ayusman/mukha/internal/detector"
	"github.com/ayusman/mukha/internal/engine"
	"github.com/ayusman/mukha/internal/landmark"
	"github.com/ayusman/mukha/internal/plugin"
	"github.com/ayusman/mukha/internal/server"
	"github.com/ayusman/mukha/internal/store"
	"github.com/ayusman/mukha/internal/threshold"
)

// installLogPlugin installs a plugin that appends every request to a log
// file and reports success.
func installLogPlugin(t *testing.T, dir string, actions []string) string {
	t.Helper()
	logPath := filepath.Join(dir, "requests.log")
	pluginDir := filepath.Join(dir, "plugins", "recorder")
	require.NoError(t, os.MkdirAll(pluginDir, 0755))

	manifest, err := json.Marshal(plugin.Manifest{
		Name:       "recorder",
		Version:    "1.0.0",
		Executable: "run.sh",
		Actions:    actions,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "plugin.json"), manifest, 0644))

	script := "#!/bin/sh\ncat >> " + logPath + "\necho >> " + logPath + "\necho '{\"success\":true}'\n"
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "run.sh"), []byte(script), 0755))
	return logPath
}

func readLog(path string) string {
	data, _ := os.ReadFile(path)
	return string(data)
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	require.NoError(t, err)
	defer s.Close()

	profile, err := s.Profiles().Ensure("default")
	require.NoError(t, err)
	profile.Thresholds.Adaptive.AutoCalibration = false
	require.NoError(t, s.Profiles().Update(profile))

	logPath := installLogPlugin(t, tmpDir, []string{"click", "copy"})
	plugins := plugin.NewManager(filepath.Join(tmpDir, "plugins"))
	require.NoError(t, plugins.Discover())

	det := detector.NewMockDetector()
	hub := server.NewHub(nil)
	session, err := app.New(app.Config{
		Store:     s,
		Camera:    capture.NewMockCamera(nil, true),
		Detector:  det,
		Executor:  plugin.NewRunner(plugins, plugin.NewExecutor(5*time.Second), nil),
		Sinks:     []engine.Sink{hub.Sink()},
		IdleFPS:   60,
		ActiveFPS: 60,
	})
	require.NoError(t, err)

	srv := server.New(server.Config{Store: s, Controller: session, Hub: hub})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	client := ts.Client()

	t.Run("CreateRule", func(t *testing.T) {
		resp, err := client.Post(
			ts.URL+"/api/rules",
			"application/json",
			strings.NewReader(`{"gesture": "smileLeft", "action": "copy"}`),
		)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events?types=action"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)

	open := landmark.NeutralFace(landmark.WithMouthGap(0.1))
	det.Queue(landmark.NeutralFace(), open, open)
	det.SetFrame(landmark.NeutralFace())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, session.Start(ctx))

	t.Run("MouthClick", func(t *testing.T) {
		require.Eventually(t, func() bool {
			return strings.Contains(readLog(logPath), `"action":"click"`)
		}, 5*time.Second, 20*time.Millisecond)

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var ev engine.Event
		require.NoError(t, conn.ReadJSON(&ev))
		require.Equal(t, engine.EventAction, ev.Kind)
		require.Equal(t, engine.ActionClick, ev.Action)
	})

	t.Run("RuleAction", func(t *testing.T) {
		det.SetFrame(landmark.NeutralFace(landmark.WithSmile(landmark.Left, 0.03)))
		require.Eventually(t, func() bool {
			return strings.Contains(readLog(logPath), `"action":"copy"`)
		}, 5*time.Second, 20*time.Millisecond)
	})

	t.Run("TuneThresholds", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/profile", strings.NewReader(`{"dwellTime": 1800}`))
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, 1800.0, session.Thresholds().DwellTime)
	})

	t.Run("FaceLost", func(t *testing.T) {
		det.SetFrame(nil)
		require.Eventually(t, func() bool {
			return session.State() == engine.Inactive
		}, 3*time.Second, 10*time.Millisecond)

		resp, err := client.Get(ts.URL + "/api/state")
		require.NoError(t, err)
		defer resp.Body.Close()

		var state struct {
			State string `json:"state"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
		require.Equal(t, "inactive", state.State)
	})

	require.NoError(t, session.Stop())

	t.Run("SessionPersisted", func(t *testing.T) {
		history, err := s.Sessions().History(profile.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		require.Equal(t, 1, history[0].UsageStats.TotalActions)

		stored, err := s.Profiles().GetByID(profile.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.NeutralPose)
		require.Equal(t, 1800.0, stored.Thresholds.DwellTime)
		require.Equal(t, threshold.DefaultExecutionCooldown, stored.Thresholds.ExecutionCooldown)
	})
}
