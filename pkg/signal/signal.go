// Package signal defines the result record shared by every tamper detector.
// A Signal is created fresh per analysis call and never persisted on its own.
package signal

import "math"

// Name identifies which detector produced a signal.
type Name string

const (
	NameLayer         Name = "layer"
	NameOverlay       Name = "overlay"
	NameText          Name = "text"
	NameStructural    Name = "structural"
	NameRecompression Name = "recompression"
)

// Signal is the normalized output of a single detector.
type Signal struct {
	Name       Name               `json:"name"`
	Confidence float64            `json:"confidence"` // 0.0-1.0
	Presence   bool               `json:"presence"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Note       string             `json:"note,omitempty"` // diagnostic when the input was unusable
}

// New returns a Signal with its confidence clamped to [0,1].
func New(name Name, confidence float64, presence bool) Signal {
	return Signal{
		Name:       name,
		Confidence: Clamp(confidence, 0, 1),
		Presence:   presence,
		Metrics:    make(map[string]float64),
	}
}

// Absent returns a zero-confidence signal carrying a diagnostic note.
// Detectors use it for empty or unavailable input instead of failing.
func Absent(name Name, note string) Signal {
	return Signal{
		Name:    name,
		Metrics: make(map[string]float64),
		Note:    note,
	}
}

// Clamp bounds v to [lo, hi]. NaN clamps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Sigmoid is the standard logistic function.
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
