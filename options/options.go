// Package options holds the processing options that change at runtime
// and the store that guards them. The pipeline reads one immutable
// snapshot per frame cycle; control surfaces mutate the store through
// validated partial updates.
package options

// Options is one snapshot of the tunable processing options. Values
// are plain fields, so a copy is a snapshot.
type Options struct {
	FaceDetection    bool    `json:"face_detection"`
	EdgeDetection    bool    `json:"edge_detection"`
	Blur             bool    `json:"blur"`
	Grayscale        bool    `json:"grayscale"`
	MotionDetection  bool    `json:"motion_detection"`
	ObjectTracking   bool    `json:"object_tracking"`
	AdvancedAnalysis bool    `json:"advanced_analysis"`
	Overlay          bool    `json:"overlay"`
	Brightness       int     `json:"brightness"`
	Contrast         float64 `json:"contrast"`
	Saturation       float64 `json:"saturation"`
	MotionThreshold  int     `json:"motion_threshold"`
	BlurSigma        float64 `json:"blur_sigma"`
	JPEGQuality      int     `json:"jpeg_quality"`
}

// Defaults returns the options the pipeline starts with: every filter
// off, the overlay on, and neutral color adjustments.
func Defaults() Options {
	return Options{
		Overlay:         true,
		Contrast:        1.0,
		Saturation:      1.0,
		MotionThreshold: 500,
		BlurSigma:       3.5,
		JPEGQuality:     85,
	}
}
