package landmark

import "math"

// FaceOption adjusts a synthetic face produced by NeutralFace.
// Options are applied in order.
type FaceOption func(f *Frame)

// NeutralFace returns a synthetic, level, relaxed face looking straight at
// the camera: mouth closed, eyebrows resting, iris points present.
// It is meant for tests and for the mock detector.
func NeutralFace(opts ...FaceOption) *Frame {
	f := &Frame{Points: make([]Point, NumWithIris)}
	for i := range f.Points {
		f.Points[i] = Point{X: 0.5, Y: 0.5}
	}

	f.Points[NoseTip] = Point{X: 0.5, Y: 0.5}

	f.Points[MouthUpper] = Point{X: 0.5, Y: 0.62}
	f.Points[MouthLower] = Point{X: 0.5, Y: 0.64}
	f.Points[MouthLeftCorner] = Point{X: 0.44, Y: 0.63}
	f.Points[MouthRightCorner] = Point{X: 0.56, Y: 0.63}

	f.Points[LeftEyebrow] = Point{X: 0.42, Y: 0.36}
	f.Points[LeftEyeUpper] = Point{X: 0.42, Y: 0.42}
	f.Points[LeftEyeLower] = Point{X: 0.42, Y: 0.44}
	f.Points[LeftEyeOuter] = Point{X: 0.38, Y: 0.43}
	f.Points[LeftEyeInner] = Point{X: 0.46, Y: 0.43}

	f.Points[RightEyebrow] = Point{X: 0.58, Y: 0.36}
	f.Points[RightEyeUpper] = Point{X: 0.58, Y: 0.42}
	f.Points[RightEyeLower] = Point{X: 0.58, Y: 0.44}
	f.Points[RightEyeInner] = Point{X: 0.54, Y: 0.43}
	f.Points[RightEyeOuter] = Point{X: 0.62, Y: 0.43}

	f.Points[LeftEar] = Point{X: 0.30, Y: 0.45}
	f.Points[RightEar] = Point{X: 0.70, Y: 0.45}

	f.Points[LeftIrisCenter] = Point{X: 0.42, Y: 0.43}
	f.Points[RightIrisCenter] = Point{X: 0.58, Y: 0.43}

	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WithNose moves the nose tip.
func WithNose(x, y float64) FaceOption {
	return func(f *Frame) {
		f.Points[NoseTip] = Point{X: x, Y: y}
	}
}

// WithMouthGap opens the mouth to the given lip gap, keeping the corners on
// the center line.
func WithMouthGap(gap float64) FaceOption {
	return func(f *Frame) {
		upper := f.Points[MouthUpper].Y
		f.Points[MouthLower].Y = upper + gap
		f.Points[MouthLeftCorner].Y = upper + gap/2
		f.Points[MouthRightCorner].Y = upper + gap/2
	}
}

// WithTilt rolls the head so that the left ear sits d below the right ear.
// Negative d rolls toward the right shoulder.
func WithTilt(d float64) FaceOption {
	return func(f *Frame) {
		f.Points[LeftEar].Y = 0.45 + d/2
		f.Points[RightEar].Y = 0.45 - d/2
	}
}

// WithEyebrowGap raises or lowers one eyebrow to the given gap above the lid.
func WithEyebrowGap(side Side, gap float64) FaceOption {
	return func(f *Frame) {
		if side == Right {
			f.Points[RightEyebrow].Y = f.Points[RightEyeUpper].Y - gap
			return
		}
		f.Points[LeftEyebrow].Y = f.Points[LeftEyeUpper].Y - gap
	}
}

// WithSmile lifts one mouth corner above the mouth center line.
func WithSmile(side Side, lift float64) FaceOption {
	return func(f *Frame) {
		center := (f.Points[MouthUpper].Y + f.Points[MouthLower].Y) / 2
		if side == Right {
			f.Points[MouthRightCorner].Y = center - lift
			return
		}
		f.Points[MouthLeftCorner].Y = center - lift
	}
}

// WithGaze moves both irises by (dx, dy) eye widths from the socket centers.
func WithGaze(dx, dy float64) FaceOption {
	return func(f *Frame) {
		shift := func(iris, outer, inner, upper, lower int) {
			width := math.Abs(f.Points[inner].X - f.Points[outer].X)
			cx := (f.Points[outer].X + f.Points[inner].X) / 2
			cy := (f.Points[upper].Y + f.Points[lower].Y) / 2
			f.Points[iris] = Point{X: cx + dx*width, Y: cy + dy*width}
		}
		shift(LeftIrisCenter, LeftEyeOuter, LeftEyeInner, LeftEyeUpper, LeftEyeLower)
		shift(RightIrisCenter, RightEyeOuter, RightEyeInner, RightEyeUpper, RightEyeLower)
	}
}

// WithoutIris truncates the mesh to the points produced without iris refinement.
func WithoutIris() FaceOption {
	return func(f *Frame) {
		f.Points = f.Points[:NumFaceLandmarks]
	}
}

// Without marks the given points as malformed.
func Without(indices ...int) FaceOption {
	return func(f *Frame) {
		for _, i := range indices {
			if i >= 0 && i < len(f.Points) {
				f.Points[i] = Point{X: math.NaN(), Y: math.NaN()}
			}
		}
	}
}
