package vision

import "image"

// Box is a pixel-coordinate bounding region within a frame.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

// Center returns the box midpoint.
func (b Box) Center() (int, int) {
	return b.X + b.W/2, b.Y + b.H/2
}

// Detection is the result one pipeline stage reports for one frame.
type Detection struct {
	Stage      string  `json:"stage"`
	Label      string  `json:"label,omitempty"`
	Box        Box     `json:"box"`
	Confidence float64 `json:"confidence,omitempty"`
	// Available is false when the stage could not run at all, e.g. a
	// detector whose backing capability is not wired in this build.
	// Reason then says why.
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// NewDetection builds an available detection.
func NewDetection(stage, label string, box Box, confidence float64) Detection {
	return Detection{
		Stage:      stage,
		Label:      label,
		Box:        box,
		Confidence: confidence,
		Available:  true,
	}
}

// Unavailable records that a stage could not produce detections.
func Unavailable(stage, reason string) Detection {
	return Detection{Stage: stage, Reason: reason}
}
