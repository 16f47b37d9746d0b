package detector

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ayusman/mukha/internal/landmark"
)

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	data := []byte{0xff, 0xd8, 0x01, 0x02, 0xff, 0xd9}

	if err := writeFrame(&buf, data); err != nil {
		t.Fatalf("writeFrame() error = %v", err)
	}

	out := buf.Bytes()
	if len(out) != 4+len(data) {
		t.Fatalf("expected %d bytes, got %d", 4+len(data), len(out))
	}
	if n := binary.BigEndian.Uint32(out[:4]); n != uint32(len(data)) {
		t.Errorf("expected length prefix %d, got %d", len(data), n)
	}
	if !bytes.Equal(out[4:], data) {
		t.Error("payload mismatch")
	}
}

func TestDecodeResponse(t *testing.T) {
	t.Run("first face", func(t *testing.T) {
		line := []byte(`{"faces":[{"points":[{"x":0.1,"y":0.2,"z":-0.01},{"x":0.3,"y":0.4,"z":0}],"score":0.9},{"points":[{"x":0.9,"y":0.9,"z":0}]}]}` + "\n")
		frame, err := decodeResponse(line)
		if err != nil {
			t.Fatalf("decodeResponse() error = %v", err)
		}
		if frame == nil || len(frame.Points) != 2 {
			t.Fatalf("expected a 2-point frame, got %+v", frame)
		}
		if frame.Points[1] != (landmark.Point{X: 0.3, Y: 0.4}) {
			t.Errorf("unexpected point %+v", frame.Points[1])
		}
	})

	t.Run("no face", func(t *testing.T) {
		frame, err := decodeResponse([]byte(`{"faces":[]}`))
		if err != nil {
			t.Fatalf("decodeResponse() error = %v", err)
		}
		if frame != nil {
			t.Errorf("expected nil frame, got %+v", frame)
		}
	})

	t.Run("service error", func(t *testing.T) {
		if _, err := decodeResponse([]byte(`{"faces":[],"error":"bad image"}`)); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("malformed", func(t *testing.T) {
		if _, err := decodeResponse([]byte(`{"faces":`)); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestOptionsFor(t *testing.T) {
	opts := optionsFor(DefaultConfig())
	if opts.MaxNumFaces != 1 {
		t.Errorf("expected a single face, got %d", opts.MaxNumFaces)
	}
	if !opts.RefineLandmarks {
		t.Error("expected refined landmarks for gaze")
	}
	if opts.MinDetectionConfidence != 0.5 || opts.MinTrackingConfidence != 0.5 {
		t.Errorf("unexpected confidences %+v", opts)
	}
}

func TestNewFaceMeshDetector_MissingScript(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScriptPath = filepath.Join(t.TempDir(), "missing.py")

	if _, err := NewFaceMeshDetector(cfg, nil); !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("expected ErrServiceNotFound, got %v", err)
	}
}

func TestMockDetector(t *testing.T) {
	m := NewMockDetector()

	if f, err := m.Detect(nil); err != nil || f != nil {
		t.Fatalf("expected no face, got %v, %v", f, err)
	}

	a := landmark.NeutralFace()
	b := landmark.NeutralFace(landmark.WithMouthGap(0.1))
	m.Queue(a, nil, b)
	m.SetFrame(a)

	want := []*landmark.Frame{a, nil, b, a}
	for i, w := range want {
		got, err := m.Detect(nil)
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		if got != w {
			t.Errorf("call %d: unexpected frame", i)
		}
	}

	m.SetError(errors.New("camera glitch"))
	if _, err := m.Detect(nil); err == nil {
		t.Error("expected error")
	}
	if m.Calls() != 6 {
		t.Errorf("expected 6 calls, got %d", m.Calls())
	}

	if err := m.Close(); err != nil || !m.Closed() {
		t.Error("expected detector to be closed")
	}
}
