// Package api implements the JSON endpoints for profile tuning, calibration,
// session state and rules.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/mukha/internal/engine"
	"github.com/ayusman/mukha/internal/landmark"
	"github.com/ayusman/mukha/internal/threshold"
)

// Controller is the running session the API drives.
type Controller interface {
	// ProfileID returns the ID of the active profile.
	ProfileID() string

	State() engine.State
	Enabled() bool
	SetEnabled(enabled bool)

	Thresholds() threshold.Set
	Calibrated() (threshold.Calibrated, bool)
	Neutral() (landmark.Point, bool)
	Snapshot() threshold.UsageSnapshot

	// Configure applies and persists a threshold patch.
	Configure(p threshold.Patch) error
	// RequestCalibration captures the next stable head pose as neutral.
	RequestCalibration()
	// RecalibrateGestures discards calibrated gesture thresholds.
	RecalibrateGestures() error
	// ReloadRules re-reads the active profile's rules.
	ReloadRules() error
}

// errorResponse represents an error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
