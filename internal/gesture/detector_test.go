package gesture

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ayusman/mukha/internal/landmark"
	"github.com/ayusman/mukha/internal/threshold"
)

var t0 = time.Unix(1700000000, 0)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func TestDetector_Detect(t *testing.T) {
	th := threshold.Defaults()

	tests := []struct {
		name      string
		frame     *landmark.Frame
		stableFor time.Duration
		want      Signals
	}{
		{
			name:  "no face",
			frame: nil,
			want:  Signals{},
		},
		{
			name:  "neutral face",
			frame: landmark.NeutralFace(),
			want:  Signals{FaceDetected: true},
		},
		{
			name:  "mouth open",
			frame: landmark.NeutralFace(landmark.WithMouthGap(0.1)),
			want:  Signals{FaceDetected: true, MouthOpen: true},
		},
		{
			name:  "head tilt left",
			frame: landmark.NeutralFace(landmark.WithTilt(0.2)),
			want:  Signals{FaceDetected: true, HeadTiltLeft: true},
		},
		{
			name:  "head tilt right",
			frame: landmark.NeutralFace(landmark.WithTilt(-0.2)),
			want:  Signals{FaceDetected: true, HeadTiltRight: true},
		},
		{
			name:  "right eyebrow raise",
			frame: landmark.NeutralFace(landmark.WithEyebrowGap(landmark.Right, 0.2)),
			want:  Signals{FaceDetected: true, EyebrowRaise: true, EyebrowRaiseRight: true},
		},
		{
			name:  "left smile",
			frame: landmark.NeutralFace(landmark.WithSmile(landmark.Left, 0.02)),
			want:  Signals{FaceDetected: true, SmileLeft: true},
		},
		{
			name:  "gaze up",
			frame: landmark.NeutralFace(landmark.WithGaze(0, -0.2)),
			want:  Signals{FaceDetected: true, GazeUp: true},
		},
		{
			name:  "gaze extreme left",
			frame: landmark.NeutralFace(landmark.WithGaze(0.3, 0)),
			want:  Signals{FaceDetected: true, GazeExtremeLeft: true},
		},
		{
			name:  "gaze extreme right",
			frame: landmark.NeutralFace(landmark.WithGaze(-0.3, 0)),
			want:  Signals{FaceDetected: true, GazeExtremeRight: true},
		},
		{
			name:  "no iris means no gaze",
			frame: landmark.NeutralFace(landmark.WithGaze(0, -0.3), landmark.WithoutIris()),
			want:  Signals{FaceDetected: true},
		},
		{
			name:      "dwell",
			frame:     landmark.NeutralFace(),
			stableFor: 1200 * time.Millisecond,
			want:      Signals{FaceDetected: true, DwellGaze: true},
		},
		{
			name:      "dwell at exactly the dwell time is not dwell",
			frame:     landmark.NeutralFace(),
			stableFor: 1000 * time.Millisecond,
			want:      Signals{FaceDetected: true},
		},
		{
			name:      "dwell plus eyebrow and mouth",
			frame:     landmark.NeutralFace(landmark.WithMouthGap(0.1), landmark.WithEyebrowGap(landmark.Left, 0.2)),
			stableFor: 2 * time.Second,
			want: Signals{
				FaceDetected:       true,
				MouthOpen:          true,
				EyebrowRaise:       true,
				EyebrowRaiseLeft:   true,
				DwellGaze:          true,
				DwellPlusEyebrow:   true,
				DwellPlusMouthOpen: true,
			},
		},
		{
			name:  "incomplete frame",
			frame: landmark.NeutralFace(landmark.WithMouthGap(0.1), landmark.Without(landmark.LeftEar)),
			want:  Signals{FaceDetected: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(DefaultConfig())
			got := d.Detect(t0, tt.frame, th, tt.stableFor)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Detect() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDetector_PerSideEyebrowThreshold(t *testing.T) {
	th := threshold.Defaults()
	th.EyebrowLeftThreshold = threshold.Float(0.1)

	d := NewDetector(DefaultConfig())
	got := d.Detect(t0, landmark.NeutralFace(
		landmark.WithEyebrowGap(landmark.Left, 0.12),
		landmark.WithEyebrowGap(landmark.Right, 0.12),
	), th, 0)

	if !got.EyebrowRaiseLeft {
		t.Error("expected left eyebrow raise with lowered left threshold")
	}
	if got.EyebrowRaiseRight {
		t.Error("expected right eyebrow to use the shared threshold")
	}
	if !got.EyebrowRaise {
		t.Error("expected eyebrowRaise when either side is raised")
	}
}

func TestDetector_Sustain(t *testing.T) {
	th := threshold.Defaults()
	open := landmark.NeutralFace(landmark.WithMouthGap(0.1))
	closed := landmark.NeutralFace()

	t.Run("one millisecond short", func(t *testing.T) {
		d := NewDetector(DefaultConfig())
		d.Detect(at(0), open, th, 0)
		if got := d.Detect(at(499), open, th, 0); got.MouthOpenSustained {
			t.Error("expected no sustained flag before 500ms")
		}
		if got := d.Detect(at(500), closed, th, 0); got.MouthOpenSustained {
			t.Error("expected release to clear the sustained flag")
		}
	})

	t.Run("one millisecond past", func(t *testing.T) {
		d := NewDetector(DefaultConfig())
		d.Detect(at(0), open, th, 0)
		if got := d.Detect(at(501), open, th, 0); !got.MouthOpenSustained {
			t.Error("expected sustained flag after 500ms")
		}
	})

	t.Run("brief drop resets the timer", func(t *testing.T) {
		d := NewDetector(DefaultConfig())
		d.Detect(at(0), open, th, 0)
		d.Detect(at(300), open, th, 0)
		d.Detect(at(333), closed, th, 0)
		d.Detect(at(366), open, th, 0)
		if got := d.Detect(at(600), open, th, 0); got.MouthOpenSustained {
			t.Error("expected the timer to restart after the drop")
		}
		if got := d.Detect(at(867), open, th, 0); !got.MouthOpenSustained {
			t.Error("expected sustained flag 500ms after the restart")
		}
	})

	t.Run("head tilt sustain", func(t *testing.T) {
		d := NewDetector(DefaultConfig())
		tilted := landmark.NeutralFace(landmark.WithTilt(-0.2))
		d.Detect(at(0), tilted, th, 0)
		if got := d.Detect(at(999), tilted, th, 0); got.HeadTiltRightSustained {
			t.Error("expected no sustained tilt before 1000ms")
		}
		got := d.Detect(at(1001), tilted, th, 0)
		if !got.HeadTiltRightSustained || got.HeadTiltLeftSustained {
			t.Errorf("expected right tilt sustained only, got %+v", got)
		}
	})

	t.Run("face loss resets timers", func(t *testing.T) {
		d := NewDetector(DefaultConfig())
		d.Detect(at(0), open, th, 0)
		d.Detect(at(400), nil, th, 0)
		d.Detect(at(450), open, th, 0)
		if got := d.Detect(at(600), open, th, 0); got.MouthOpenSustained {
			t.Error("expected face loss to reset the mouth timer")
		}
	})
}

func TestDetector_PauseCompound(t *testing.T) {
	th := threshold.Defaults()
	pause := landmark.NeutralFace(
		landmark.WithGaze(0, -0.2),
		landmark.WithEyebrowGap(landmark.Left, 0.2),
	)
	pauseWithMouth := landmark.NeutralFace(
		landmark.WithGaze(0, -0.2),
		landmark.WithEyebrowGap(landmark.Left, 0.2),
		landmark.WithMouthGap(0.1),
	)

	d := NewDetector(DefaultConfig())
	d.Detect(at(0), pause, th, 0)
	if got := d.Detect(at(999), pause, th, 0); got.PauseCompound {
		t.Error("expected no pause before 1000ms")
	}
	if got := d.Detect(at(1000), pause, th, 0); !got.PauseCompound {
		t.Error("expected pause at 1000ms")
	}

	if got := d.Detect(at(1100), pauseWithMouth, th, 0); got.PauseCompound {
		t.Error("expected open mouth to cancel the pause")
	}
	if got := d.Detect(at(1200), pause, th, 0); got.PauseCompound {
		t.Error("expected the pause timer to restart")
	}
}

func TestNewDetector_Defaults(t *testing.T) {
	d := NewDetector(Config{TiltSustain: 2 * time.Second})
	want := Config{
		MouthSustain: DefaultMouthSustain,
		TiltSustain:  2 * time.Second,
		PauseSustain: DefaultPauseSustain,
	}
	if diff := cmp.Diff(want, d.cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}
