package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Wake gate defaults.
const (
	// DefaultWakeThreshold is the percentage of changed pixels that wakes
	// the pipeline.
	DefaultWakeThreshold = 1.0
	// DefaultProbeEvery forces a wake after this many quiet frames so a
	// motionless face is still found.
	DefaultProbeEvery = 5

	blurSize      = 21
	diffThreshold = 25
)

// WakeGate decides, while idle, whether a frame is worth running face
// detection on. It wakes on scene change, and periodically regardless.
type WakeGate struct {
	threshold  float64
	probeEvery int
	quiet      int
	prevGray   gocv.Mat
	primed     bool
	mu         sync.Mutex
}

// NewWakeGate creates a WakeGate. Non-positive arguments use defaults.
func NewWakeGate(threshold float64, probeEvery int) *WakeGate {
	if threshold <= 0 {
		threshold = DefaultWakeThreshold
	}
	if probeEvery <= 0 {
		probeEvery = DefaultProbeEvery
	}
	return &WakeGate{
		threshold:  threshold,
		probeEvery: probeEvery,
		prevGray:   gocv.NewMat(),
	}
}

// Wake reports whether frame should be processed. The first frame after a
// reset always wakes.
func (w *WakeGate) Wake(frame *gocv.Mat) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false
	}

	changed, ok := w.changed(frame)
	if !ok || changed > w.threshold {
		w.quiet = 0
		return true
	}

	w.quiet++
	if w.quiet >= w.probeEvery {
		w.quiet = 0
		return true
	}
	return false
}

// changed returns the percentage of pixels that differ from the previous
// frame after blurring. ok is false when there was no previous frame.
func (w *WakeGate) changed(frame *gocv.Mat) (percent float64, ok bool) {
	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: blurSize, Y: blurSize}, 0, 0, gocv.BorderDefault)

	defer blurred.CopyTo(&w.prevGray)

	if !w.primed || w.prevGray.Rows() != blurred.Rows() || w.prevGray.Cols() != blurred.Cols() {
		w.primed = true
		return 0, false
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, w.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, diffThreshold, 255, gocv.ThresholdBinary)

	total := thresh.Rows() * thresh.Cols()
	if total == 0 {
		return 0, true
	}
	return float64(gocv.CountNonZero(thresh)) / float64(total) * 100.0, true
}

// Reset forgets the previous frame so the next one wakes.
func (w *WakeGate) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.primed = false
	w.quiet = 0
}

// Close releases resources used by the gate.
func (w *WakeGate) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.prevGray.Empty() {
		w.prevGray.Close()
		w.prevGray = gocv.NewMat()
	}
	w.primed = false
}
