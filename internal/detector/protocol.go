package detector

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ayusman/mukha/internal/landmark"
)

// writeFrame sends one encoded image: a 4-byte big-endian length followed
// by the data.
func writeFrame(w io.Writer, data []byte) error {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))

	if _, err := w.Write(length[:]); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

// serviceOptions is the first line sent to the service after start.
type serviceOptions struct {
	MaxNumFaces            int     `json:"maxNumFaces"`
	RefineLandmarks        bool    `json:"refineLandmarks"`
	MinDetectionConfidence float64 `json:"minDetectionConfidence"`
	MinTrackingConfidence  float64 `json:"minTrackingConfidence"`
}

func optionsFor(c Config) serviceOptions {
	return serviceOptions{
		MaxNumFaces:            1,
		RefineLandmarks:        c.RefineLandmarks,
		MinDetectionConfidence: c.MinConfidence,
		MinTrackingConfidence:  c.MinTrackingConf,
	}
}

// jsonFace represents one face in the service response.
type jsonFace struct {
	Points []jsonPoint `json:"points"`
	Score  float64     `json:"score"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// decodeResponse parses one JSON response line. Only the first face is
// used; no faces yields a nil frame.
func decodeResponse(line []byte) (*landmark.Frame, error) {
	var response struct {
		Faces []jsonFace `json:"faces"`
		Error string     `json:"error,omitempty"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("facemesh service: %s", response.Error)
	}
	if len(response.Faces) == 0 || len(response.Faces[0].Points) == 0 {
		return nil, nil
	}

	face := response.Faces[0]
	frame := &landmark.Frame{Points: make([]landmark.Point, len(face.Points))}
	for i, p := range face.Points {
		frame.Points[i] = landmark.Point{X: p.X, Y: p.Y}
	}
	return frame, nil
}
