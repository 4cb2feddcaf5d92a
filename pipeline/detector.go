package pipeline

import (
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/errors"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/options"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/vision"
)

// Detector analyzes a frame and reports what it found. Implementations
// must treat the frame as read-only.
type Detector interface {
	Analyze(frame *vision.Frame, opts options.Options) ([]vision.Detection, error)
}

// DetectorFunc adapts a plain function to Detector.
type DetectorFunc func(frame *vision.Frame, opts options.Options) ([]vision.Detection, error)

// Analyze calls f.
func (f DetectorFunc) Analyze(frame *vision.Frame, opts options.Options) ([]vision.Detection, error) {
	return f(frame, opts)
}

// Capability binds a detection stage to an optional detector backend.
// It is resolved once at construction; the zero value is an
// unavailable capability with a generic reason.
type Capability struct {
	detector Detector
	reason   string
}

// Available wraps a working detector.
func Available(d Detector) Capability {
	return Capability{detector: d}
}

// Unavailable records why the stage cannot run in this deployment.
func Unavailable(reason string) Capability {
	return Capability{reason: reason}
}

// Ready reports whether a detector is wired.
func (c Capability) Ready() bool { return c.detector != nil }

// Reason explains an unavailable capability. Empty when ready.
func (c Capability) Reason() string {
	if c.detector != nil {
		return ""
	}
	if c.reason == "" {
		return "detector not configured"
	}
	return c.reason
}

// detectorStage delegates to a capability's detector. When the
// capability is not ready the stage emits an unavailable entry
// instead of an error, so an unwired detector never aborts a frame.
type detectorStage struct {
	name       string
	capability Capability
	enabled    func(options.Options) bool
}

func (d *detectorStage) Name() string { return d.name }

func (d *detectorStage) Enabled(opts options.Options) bool { return d.enabled(opts) }

func (d *detectorStage) Apply(frame *vision.Frame, opts options.Options) (*vision.Frame, []vision.Detection, error) {
	if !d.capability.Ready() {
		return nil, []vision.Detection{vision.Unavailable(d.name, d.capability.Reason())}, nil
	}
	dets, err := d.capability.detector.Analyze(frame, opts)
	if err != nil {
		return nil, nil, errors.Wrap(err, "pipeline", d.name, "analyze frame")
	}
	return nil, dets, nil
}
