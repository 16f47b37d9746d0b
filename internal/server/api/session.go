package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/mukha/internal/engine"
	"github.com/ayusman/mukha/internal/landmark"
	"github.com/ayusman/mukha/internal/threshold"
)

// SessionHandler serves the live session state and calibration controls.
type SessionHandler struct {
	ctl Controller
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(ctl Controller) *SessionHandler {
	return &SessionHandler{ctl: ctl}
}

type stateResponse struct {
	State       engine.State            `json:"state"`
	Enabled     bool                    `json:"enabled"`
	Thresholds  threshold.Set           `json:"thresholds"`
	Calibrated  *threshold.Calibrated   `json:"calibratedThresholds"`
	NeutralPose *landmark.Point         `json:"neutralPose"`
	Usage       threshold.UsageSnapshot `json:"usage"`
}

type updateStateRequest struct {
	Enabled *bool `json:"enabled"`
}

// State handles GET and PUT /api/state.
func (h *SessionHandler) State(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req updateStateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "enabled is required")
			return
		}
		h.ctl.SetEnabled(*req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := stateResponse{
		State:      h.ctl.State(),
		Enabled:    h.ctl.Enabled(),
		Thresholds: h.ctl.Thresholds(),
		Usage:      h.ctl.Snapshot(),
	}
	if c, ok := h.ctl.Calibrated(); ok {
		resp.Calibrated = &c
	}
	if p, ok := h.ctl.Neutral(); ok {
		resp.NeutralPose = &p
	}
	writeJSON(w, http.StatusOK, resp)
}

// Calibration handles /api/calibration. POST arms a neutral pose capture,
// DELETE discards calibrated gesture thresholds so they are re-learned.
func (h *SessionHandler) Calibration(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.ctl.RequestCalibration()
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
	case http.MethodDelete:
		if err := h.ctl.RecalibrateGestures(); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to clear calibration")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
