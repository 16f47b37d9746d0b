package threshold

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/mukha/internal/landmark"
)

// Calibration constants.
const (
	// CalibrationWindow is how long samples are collected after the first face frame.
	CalibrationWindow = 3000 * time.Millisecond
	// MinCalibrationSamples is the smallest window that produces thresholds.
	MinCalibrationSamples = 10
	// MinHeadTiltFloor is the lower limit of the raw head tilt estimate.
	MinHeadTiltFloor = 0.05
)

// Calibration output ranges. Narrower than the hard bounds so that a
// degenerate window cannot make a gesture unreachable or hair-triggered.
var (
	CalibratedMouthBounds    = Bounds{0.05, 0.15}
	CalibratedEyebrowBounds  = Bounds{0.08, 0.25}
	CalibratedHeadTiltBounds = Bounds{0.02, 0.2}
)

// Sample is one frame of resting facial measurements.
type Sample struct {
	Tilt    float64
	Eyebrow float64
	Mouth   float64
}

// SampleFrame measures a frame for calibration.
func SampleFrame(f *landmark.Frame) Sample {
	return Sample{
		Tilt:    math.Abs(f.EarTilt()),
		Eyebrow: (f.EyebrowGap(landmark.Left) + f.EyebrowGap(landmark.Right)) / 2,
		Mouth:   f.MouthGap(),
	}
}

// Calibrate derives gesture thresholds from resting samples. It reports
// false when there are too few samples or none of the metrics varied.
func Calibrate(samples []Sample) (Calibrated, bool) {
	if len(samples) < MinCalibrationSamples {
		return Calibrated{}, false
	}

	tilt := make([]float64, len(samples))
	eyebrow := make([]float64, len(samples))
	mouth := make([]float64, len(samples))
	for i, s := range samples {
		tilt[i], eyebrow[i], mouth[i] = s.Tilt, s.Eyebrow, s.Mouth
	}

	_, tiltSD := stat.PopMeanStdDev(tilt, nil)
	eyebrowMean, eyebrowSD := stat.PopMeanStdDev(eyebrow, nil)
	mouthMean, mouthSD := stat.PopMeanStdDev(mouth, nil)

	if tiltSD == 0 && eyebrowSD == 0 && mouthSD == 0 {
		return Calibrated{}, false
	}

	return Calibrated{
		HeadTiltThreshold: CalibratedHeadTiltBounds.Clamp(math.Max(MinHeadTiltFloor, 3*tiltSD), DefaultHeadTiltThreshold),
		EyebrowThreshold:  CalibratedEyebrowBounds.Clamp(math.Max(0.6*eyebrowMean, 2.5*eyebrowSD), DefaultEyebrowThreshold),
		MouthThreshold:    CalibratedMouthBounds.Clamp(math.Max(0.8*mouthMean, 3*mouthSD), DefaultMouthThreshold),
	}, true
}

// CalibrationStatus is the outcome of feeding one frame to a Calibrator.
type CalibrationStatus int

const (
	// CalibrationIdle means the frame did not change the calibration state.
	CalibrationIdle CalibrationStatus = iota
	// CalibrationStarted means the sampling window just opened.
	CalibrationStarted
	// CalibrationCompleted means the window closed with usable thresholds.
	CalibrationCompleted
	// CalibrationAborted means the window closed without usable thresholds.
	CalibrationAborted
)

func (s CalibrationStatus) String() string {
	switch s {
	case CalibrationStarted:
		return "started"
	case CalibrationCompleted:
		return "completed"
	case CalibrationAborted:
		return "aborted"
	default:
		return "idle"
	}
}

// Calibrator collects samples over one window. It runs at most once until Reset.
type Calibrator struct {
	start   time.Time
	samples []Sample
	done    bool
}

// Active reports whether the window is open.
func (c *Calibrator) Active() bool {
	return !c.start.IsZero() && !c.done
}

// Done reports whether the window has closed, successfully or not.
func (c *Calibrator) Done() bool {
	return c.done
}

// Reset discards samples and allows a new window to open.
func (c *Calibrator) Reset() {
	c.start = time.Time{}
	c.samples = nil
	c.done = false
}

// Observe feeds one face frame. The first frame opens the window, frames
// inside the window are sampled and the first frame after it closes the
// window. The returned thresholds are only meaningful on CalibrationCompleted.
func (c *Calibrator) Observe(at time.Time, f *landmark.Frame) (CalibrationStatus, Calibrated) {
	if c.done {
		return CalibrationIdle, Calibrated{}
	}
	if c.start.IsZero() {
		c.start = at
		return CalibrationStarted, Calibrated{}
	}
	if at.Sub(c.start) < CalibrationWindow {
		c.samples = append(c.samples, SampleFrame(f))
		return CalibrationIdle, Calibrated{}
	}

	c.done = true
	cal, ok := Calibrate(c.samples)
	c.samples = nil
	if !ok {
		return CalibrationAborted, Calibrated{}
	}
	return CalibrationCompleted, cal
}
