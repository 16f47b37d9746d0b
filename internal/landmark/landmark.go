// Package landmark defines the per-frame face landmark set produced by the
// face mesh detector and the facial geometry derived from it.
package landmark

import "math"

// Face mesh landmark indices following the MediaPipe FaceMesh convention.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	NoseTip = 1

	MouthUpper       = 13
	MouthLower       = 14
	MouthLeftCorner  = 61
	MouthRightCorner = 291

	LeftEyebrow    = 70
	LeftEyeUpper   = 159
	LeftEyeLower   = 145
	LeftEyeOuter   = 33
	LeftEyeInner   = 133
	RightEyebrow   = 300
	RightEyeUpper  = 386
	RightEyeLower  = 374
	RightEyeInner  = 362
	RightEyeOuter  = 263
	LeftEar        = 234
	RightEar       = 454
	LeftIrisCenter = 468

	RightIrisCenter = 473

	// NumFaceLandmarks is the size of a mesh without refined iris points.
	NumFaceLandmarks = 468
	// NumWithIris is the size of a mesh with refined iris points.
	NumWithIris = 478
)

// RequiredIndices lists the points every frame must carry for gesture and
// motion computation. A frame missing any of them is dropped.
var RequiredIndices = []int{
	NoseTip,
	MouthUpper, MouthLower, MouthLeftCorner, MouthRightCorner,
	LeftEyebrow, LeftEyeUpper, LeftEyeLower,
	RightEyebrow, RightEyeUpper, RightEyeLower,
	LeftEar, RightEar,
}

// irisIndices are needed for gaze estimation only.
var irisIndices = []int{
	LeftIrisCenter, RightIrisCenter,
	LeftEyeOuter, LeftEyeInner, RightEyeInner, RightEyeOuter,
}

// Side selects the left or right half of the face.
type Side int

const (
	Left Side = iota
	Right
)

// Point is a landmark position normalized to the frame, y increasing downward.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Frame is one camera frame's worth of face landmarks, indexed by mesh index.
// A nil *Frame means no face was detected.
type Frame struct {
	Points []Point `json:"points"`
}

// At returns the point at index i. It reports false when the index is
// outside the frame or the point is not a finite number.
func (f *Frame) At(i int) (Point, bool) {
	if f == nil || i < 0 || i >= len(f.Points) {
		return Point{}, false
	}
	p := f.Points[i]
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return Point{}, false
	}
	return p, true
}

// Has reports whether every listed index is present and well formed.
func (f *Frame) Has(indices ...int) bool {
	for _, i := range indices {
		if _, ok := f.At(i); !ok {
			return false
		}
	}
	return true
}

// Complete reports whether the frame carries all RequiredIndices.
func (f *Frame) Complete() bool {
	return f.Has(RequiredIndices...)
}

// HasIris reports whether refined iris points are available.
func (f *Frame) HasIris() bool {
	return f.Has(irisIndices...)
}

// Nose returns the nose tip, the reference point for pointer motion.
func (f *Frame) Nose() Point {
	p, _ := f.At(NoseTip)
	return p
}

// y returns the vertical coordinate of index i, or 0 when missing.
func (f *Frame) y(i int) float64 {
	p, _ := f.At(i)
	return p.Y
}

// EarTilt returns the vertical offset of the left ear below the right ear.
// Positive values mean the head rolls toward the left shoulder.
func (f *Frame) EarTilt() float64 {
	return f.y(LeftEar) - f.y(RightEar)
}

// EyebrowGap returns the vertical gap between the upper eyelid and the eyebrow.
func (f *Frame) EyebrowGap(side Side) float64 {
	if side == Right {
		return f.y(RightEyeUpper) - f.y(RightEyebrow)
	}
	return f.y(LeftEyeUpper) - f.y(LeftEyebrow)
}

// MouthGap returns the absolute vertical gap between the lips.
func (f *Frame) MouthGap() float64 {
	return math.Abs(f.y(MouthUpper) - f.y(MouthLower))
}

// SmileLift returns how far a mouth corner sits above the mouth center line.
func (f *Frame) SmileLift(side Side) float64 {
	center := (f.y(MouthUpper) + f.y(MouthLower)) / 2
	if side == Right {
		return center - f.y(MouthRightCorner)
	}
	return center - f.y(MouthLeftCorner)
}

// GazeOffset returns the iris offset from the eye socket center, averaged
// over both eyes and expressed in eye widths. ok is false when the frame has
// no iris points or the eyes are degenerate.
func (f *Frame) GazeOffset() (dx, dy float64, ok bool) {
	if !f.HasIris() {
		return 0, 0, false
	}

	type eye struct{ iris, outer, inner, upper, lower int }
	eyes := []eye{
		{LeftIrisCenter, LeftEyeOuter, LeftEyeInner, LeftEyeUpper, LeftEyeLower},
		{RightIrisCenter, RightEyeOuter, RightEyeInner, RightEyeUpper, RightEyeLower},
	}

	var n int
	for _, e := range eyes {
		iris, _ := f.At(e.iris)
		outer, _ := f.At(e.outer)
		inner, _ := f.At(e.inner)
		width := math.Abs(inner.X - outer.X)
		if width < 1e-6 {
			continue
		}
		cx := (outer.X + inner.X) / 2
		cy := (f.y(e.upper) + f.y(e.lower)) / 2
		dx += (iris.X - cx) / width
		dy += (iris.Y - cy) / width
		n++
	}
	if n == 0 {
		return 0, 0, false
	}
	return dx / float64(n), dy / float64(n), true
}
