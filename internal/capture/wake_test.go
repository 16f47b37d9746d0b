package capture

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestNewWakeGate_Defaults(t *testing.T) {
	w := NewWakeGate(0, 0)
	defer w.Close()

	if w.threshold != DefaultWakeThreshold {
		t.Errorf("threshold = %f, want %f", w.threshold, DefaultWakeThreshold)
	}
	if w.probeEvery != DefaultProbeEvery {
		t.Errorf("probeEvery = %d, want %d", w.probeEvery, DefaultProbeEvery)
	}
}

func TestWakeGate_Wake(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	black := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer black.Close()
	white := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))

	t.Run("first frame wakes", func(t *testing.T) {
		w := NewWakeGate(1.0, 100)
		defer w.Close()
		if !w.Wake(&black) {
			t.Error("expected first frame to wake")
		}
	})

	t.Run("still scene stays asleep", func(t *testing.T) {
		w := NewWakeGate(1.0, 100)
		defer w.Close()
		w.Wake(&black)
		for i := 0; i < 10; i++ {
			if w.Wake(&black) {
				t.Fatalf("frame %d: identical frame should not wake", i)
			}
		}
	})

	t.Run("scene change wakes", func(t *testing.T) {
		w := NewWakeGate(1.0, 100)
		defer w.Close()
		w.Wake(&black)
		if !w.Wake(&white) {
			t.Error("black to white should wake")
		}
	})

	t.Run("periodic probe", func(t *testing.T) {
		w := NewWakeGate(1.0, 3)
		defer w.Close()
		w.Wake(&black)

		got := []bool{w.Wake(&black), w.Wake(&black), w.Wake(&black), w.Wake(&black)}
		want := []bool{false, false, true, false}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("frame %d: Wake() = %v, want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("reset wakes next frame", func(t *testing.T) {
		w := NewWakeGate(1.0, 100)
		defer w.Close()
		w.Wake(&black)
		w.Wake(&black)
		w.Reset()
		if !w.Wake(&black) {
			t.Error("expected wake after Reset")
		}
	})
}

func TestWakeGate_NilFrame(t *testing.T) {
	w := NewWakeGate(1.0, 1)
	defer w.Close()
	if w.Wake(nil) {
		t.Error("nil frame should not wake")
	}
}

func TestWakeGate_Close_Multiple(t *testing.T) {
	w := NewWakeGate(1.0, 1)
	w.Close()
	w.Close()
}
