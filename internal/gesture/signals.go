// Package gesture derives per-frame facial gesture signals from face
// landmarks and the current thresholds.
package gesture

import (
	"sort"
)

// Vocabulary is the version of the signal name set. Rule conditions written
// against an older vocabulary keep working as long as the names still exist;
// names that no longer exist are reported as unknown by Lookup.
const Vocabulary = 2

// Signals is the gesture state of a single frame. The JSON names are the
// ones rule conditions refer to.
type Signals struct {
	FaceDetected bool `json:"faceDetected"`

	MouthOpen          bool `json:"mouthOpen"`
	MouthOpenSustained bool `json:"mouthOpenSustained"`

	HeadTiltLeft           bool `json:"headTiltLeft"`
	HeadTiltRight          bool `json:"headTiltRight"`
	HeadTiltLeftSustained  bool `json:"headTiltLeftSustained"`
	HeadTiltRightSustained bool `json:"headTiltRightSustained"`

	EyebrowRaise      bool `json:"eyebrowRaise"`
	EyebrowRaiseLeft  bool `json:"eyebrowRaiseLeft"`
	EyebrowRaiseRight bool `json:"eyebrowRaiseRight"`

	SmileLeft  bool `json:"smileLeft"`
	SmileRight bool `json:"smileRight"`

	GazeUp           bool `json:"gazeUp"`
	GazeExtremeLeft  bool `json:"gazeExtremeLeft"`
	GazeExtremeRight bool `json:"gazeExtremeRight"`

	DwellGaze          bool `json:"dwellGaze"`
	PauseCompound      bool `json:"pauseCompound"`
	DwellPlusEyebrow   bool `json:"dwellPlusEyebrow"`
	DwellPlusMouthOpen bool `json:"dwellPlusMouthOpen"`
}

var accessors = map[string]func(Signals) bool{
	"faceDetected":           func(s Signals) bool { return s.FaceDetected },
	"mouthOpen":              func(s Signals) bool { return s.MouthOpen },
	"mouthOpenSustained":     func(s Signals) bool { return s.MouthOpenSustained },
	"headTiltLeft":           func(s Signals) bool { return s.HeadTiltLeft },
	"headTiltRight":          func(s Signals) bool { return s.HeadTiltRight },
	"headTiltLeftSustained":  func(s Signals) bool { return s.HeadTiltLeftSustained },
	"headTiltRightSustained": func(s Signals) bool { return s.HeadTiltRightSustained },
	"eyebrowRaise":           func(s Signals) bool { return s.EyebrowRaise },
	"eyebrowRaiseLeft":       func(s Signals) bool { return s.EyebrowRaiseLeft },
	"eyebrowRaiseRight":      func(s Signals) bool { return s.EyebrowRaiseRight },
	"smileLeft":              func(s Signals) bool { return s.SmileLeft },
	"smileRight":             func(s Signals) bool { return s.SmileRight },
	"gazeUp":                 func(s Signals) bool { return s.GazeUp },
	"gazeExtremeLeft":        func(s Signals) bool { return s.GazeExtremeLeft },
	"gazeExtremeRight":       func(s Signals) bool { return s.GazeExtremeRight },
	"dwellGaze":              func(s Signals) bool { return s.DwellGaze },
	"pauseCompound":          func(s Signals) bool { return s.PauseCompound },
	"dwellPlusEyebrow":       func(s Signals) bool { return s.DwellPlusEyebrow },
	"dwellPlusMouthOpen":     func(s Signals) bool { return s.DwellPlusMouthOpen },
}

// Lookup returns the value of the named signal. known is false when the
// name is not part of the vocabulary.
func (s Signals) Lookup(name string) (value, known bool) {
	fn, ok := accessors[name]
	if !ok {
		return false, false
	}
	return fn(s), true
}

// Active returns the names of all signals that are set, sorted.
func (s Signals) Active() []string {
	var names []string
	for name, fn := range accessors {
		if fn(s) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Names returns every signal name in the vocabulary, sorted.
func Names() []string {
	names := make([]string, 0, len(accessors))
	for name := range accessors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether name is part of the vocabulary.
func Known(name string) bool {
	_, ok := accessors[name]
	return ok
}
