// Package pipeline runs each captured frame through a fixed chain of
// filter, detection, and annotation stages.
//
// The chain order is geometric/color filters, then detection and
// analysis, then the overlay. One options snapshot is taken at the
// start of every cycle and governs the whole cycle, so a frame is
// never processed under a half-applied reconfiguration. Stages hand
// back fresh frames rather than mutating their input; subscribers can
// therefore hold earlier frames without observing later stages.
//
// Detection stages that need a model the process does not own (faces,
// object tracking, advanced analysis) run through a Capability that
// was resolved once at construction. A missing capability yields an
// "unavailable" detection entry; it never fails the frame.
package pipeline

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/errors"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/metric"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/options"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/vision"
)

// Stage names as they appear in timings, detections, metrics, and the
// overlay status line. They match the option keys that toggle them.
const (
	StageBrightness = "brightness_contrast"
	StageSaturation = "saturation"
	StageGrayscale  = "grayscale"
	StageBlur       = "blur"
	StageEdges      = "edge_detection"
	StageFaces      = "face_detection"
	StageMotion     = "motion_detection"
	StageTracking   = "object_tracking"
	StageAnalysis   = "advanced_analysis"
	StageAnnotation = "annotation"
)

// Stage is one link of the chain.
type Stage interface {
	// Name identifies the stage in timings, detections, and metrics.
	Name() string

	// Enabled reports whether the stage runs under opts.
	Enabled(opts options.Options) bool

	// Apply transforms frame under opts. A nil returned frame means
	// the input passes through unchanged. Apply must not mutate the
	// input frame's pixels.
	Apply(frame *vision.Frame, opts options.Options) (*vision.Frame, []vision.Detection, error)
}

// Result is one frame cycle's output.
type Result struct {
	Frame      *vision.Frame
	Detections []vision.Detection
	Timings    map[string]time.Duration
	Total      time.Duration
}

// Deps holds the pipeline's collaborators. Options is the store the
// per-cycle snapshot is read from; a nil store gets a fresh one with
// defaults. The three capabilities default to unavailable.
type Deps struct {
	Options *options.Store

	Faces    Capability
	Tracker  Capability
	Analyzer Capability

	Logger  *slog.Logger
	Metrics *metric.Metrics
}

// Pipeline is the fixed stage chain. Process is called from the
// single capture goroutine; the options store provides the only
// cross-goroutine coupling.
type Pipeline struct {
	store    *options.Store
	stages   []Stage
	faces    Capability
	tracker  Capability
	analyzer Capability
	logger   *slog.Logger
	metrics  *metric.Metrics

	stageErrors atomic.Int64
}

// New assembles the chain in its fixed order.
func New(deps Deps) *Pipeline {
	store := deps.Options
	if store == nil {
		store = options.NewStore()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "pipeline")
	}

	p := &Pipeline{
		store:    store,
		faces:    deps.Faces,
		tracker:  deps.Tracker,
		analyzer: deps.Analyzer,
		logger:   logger,
		metrics:  deps.Metrics,
	}
	p.stages = []Stage{
		brightnessContrastStage{},
		saturationStage{},
		grayscaleStage{},
		blurStage{},
		edgeStage{},
		&detectorStage{
			name:       StageFaces,
			capability: deps.Faces,
			enabled:    func(o options.Options) bool { return o.FaceDetection },
		},
		&motionStage{},
		&detectorStage{
			name:       StageTracking,
			capability: deps.Tracker,
			enabled:    func(o options.Options) bool { return o.ObjectTracking },
		},
		&detectorStage{
			name:       StageAnalysis,
			capability: deps.Analyzer,
			enabled:    func(o options.Options) bool { return o.AdvancedAnalysis },
		},
	}
	return p
}

// Process runs one frame through every enabled stage and the overlay.
// Stage errors are logged and counted; the frame continues through
// the rest of the chain unchanged.
func (p *Pipeline) Process(frame *vision.Frame) Result {
	opts := p.store.Snapshot()
	start := time.Now()

	current := frame
	var detections []vision.Detection
	var active []string
	timings := make(map[string]time.Duration, len(p.stages)+1)

	for _, stage := range p.stages {
		if !stage.Enabled(opts) {
			continue
		}
		active = append(active, stage.Name())

		stageStart := time.Now()
		next, dets, err := stage.Apply(current, opts)
		elapsed := time.Since(stageStart)
		timings[stage.Name()] = elapsed
		if p.metrics != nil {
			p.metrics.RecordStageDuration(stage.Name(), elapsed)
		}

		if err != nil {
			p.stageErrors.Add(1)
			if p.metrics != nil {
				p.metrics.RecordError("pipeline", errors.Classify(err).String())
			}
			p.logger.Warn("Stage failed, frame passes through",
				"stage", stage.Name(), "error", err)
			continue
		}

		if next != nil {
			current = next
		}
		detections = append(detections, dets...)
	}

	if opts.Overlay {
		stageStart := time.Now()
		current = annotate(current, detections, active)
		elapsed := time.Since(stageStart)
		timings[StageAnnotation] = elapsed
		if p.metrics != nil {
			p.metrics.RecordStageDuration(StageAnnotation, elapsed)
		}
	}

	if p.metrics != nil {
		p.metrics.RecordFrameProcessed("ok")
	}
	return Result{
		Frame:      current,
		Detections: detections,
		Timings:    timings,
		Total:      time.Since(start),
	}
}

// Reset clears inter-frame stage state, currently the motion differ's
// previous frame, ahead of a new capture session.
func (p *Pipeline) Reset() {
	for _, stage := range p.stages {
		if r, ok := stage.(interface{ Reset() }); ok {
			r.Reset()
		}
	}
}

// StageErrors reports how many stage applications have failed since
// construction.
func (p *Pipeline) StageErrors() int64 {
	return p.stageErrors.Load()
}

// CapabilityStatus describes one detection stage's availability.
type CapabilityStatus struct {
	Stage     string `json:"stage"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Capabilities reports which detection stages can actually run. The
// built-in stages are always available; the delegated ones depend on
// the capabilities resolved at construction.
func (p *Pipeline) Capabilities() []CapabilityStatus {
	return []CapabilityStatus{
		{Stage: StageEdges, Available: true},
		{Stage: StageMotion, Available: true},
		{Stage: StageFaces, Available: p.faces.Ready(), Reason: p.faces.Reason()},
		{Stage: StageTracking, Available: p.tracker.Ready(), Reason: p.tracker.Reason()},
		{Stage: StageAnalysis, Available: p.analyzer.Ready(), Reason: p.analyzer.Reason()},
	}
}

// CountEvents extracts the stats event counts from one cycle's
// detections. Motion counts at most one event per frame.
func CountEvents(detections []vision.Detection) (faces, objects, motion int) {
	for _, det := range detections {
		if !det.Available {
			continue
		}
		switch det.Stage {
		case StageFaces:
			faces++
		case StageTracking:
			objects++
		case StageMotion:
			motion = 1
		}
	}
	return faces, objects, motion
}
