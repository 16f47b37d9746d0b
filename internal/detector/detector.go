// Package detector turns camera frames into face landmark frames.
package detector

import (
	"errors"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mukha/internal/landmark"
)

// ErrServiceNotFound is returned when the face mesh service script cannot
// be located.
var ErrServiceNotFound = errors.New("facemesh_service.py not found")

// Detector defines the interface for face landmark detection.
type Detector interface {
	// Detect analyzes a video frame and returns the face landmarks.
	// Returns nil if no face is detected.
	Detect(frame *gocv.Mat) (*landmark.Frame, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for face detection.
type Config struct {
	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// RefineLandmarks requests the iris points needed for gaze.
	RefineLandmarks bool

	// IdleShutdown stops the service after this long without a request.
	IdleShutdown time.Duration

	// ScriptPath overrides the service script lookup.
	ScriptPath string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		RefineLandmarks: true,
		IdleShutdown:    30 * time.Second,
	}
}
