package pipeline

import (
	"github.com/disintegration/imaging"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/options"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/vision"
)

// multiplierPercent converts a 1.0-neutral multiplier into the
// -100..100 percentage scale the imaging adjustments take.
func multiplierPercent(m float64) float64 {
	p := (m - 1.0) * 100
	if p > 100 {
		return 100
	}
	if p < -100 {
		return -100
	}
	return p
}

// brightnessContrastStage applies the additive brightness and the
// contrast multiplier in one pass. Neutral values skip the stage.
type brightnessContrastStage struct{}

func (brightnessContrastStage) Name() string { return StageBrightness }

func (brightnessContrastStage) Enabled(opts options.Options) bool {
	return opts.Brightness != 0 || opts.Contrast != 1.0
}

func (brightnessContrastStage) Apply(frame *vision.Frame, opts options.Options) (*vision.Frame, []vision.Detection, error) {
	img := frame.NRGBA()
	if opts.Brightness != 0 {
		img = imaging.AdjustBrightness(img, float64(opts.Brightness))
	}
	if opts.Contrast != 1.0 {
		img = imaging.AdjustContrast(img, multiplierPercent(opts.Contrast))
	}
	return frame.WithNRGBA(img), nil, nil
}

type saturationStage struct{}

func (saturationStage) Name() string { return StageSaturation }

func (saturationStage) Enabled(opts options.Options) bool {
	return opts.Saturation != 1.0
}

func (saturationStage) Apply(frame *vision.Frame, opts options.Options) (*vision.Frame, []vision.Detection, error) {
	img := imaging.AdjustSaturation(frame.NRGBA(), multiplierPercent(opts.Saturation))
	return frame.WithNRGBA(img), nil, nil
}

type grayscaleStage struct{}

func (grayscaleStage) Name() string { return StageGrayscale }

func (grayscaleStage) Enabled(opts options.Options) bool { return opts.Grayscale }

func (grayscaleStage) Apply(frame *vision.Frame, _ options.Options) (*vision.Frame, []vision.Detection, error) {
	return frame.WithNRGBA(imaging.Grayscale(frame.NRGBA())), nil, nil
}

type blurStage struct{}

func (blurStage) Name() string { return StageBlur }

func (blurStage) Enabled(opts options.Options) bool { return opts.Blur }

func (blurStage) Apply(frame *vision.Frame, opts options.Options) (*vision.Frame, []vision.Detection, error) {
	sigma := opts.BlurSigma
	if sigma <= 0 {
		sigma = 3.5
	}
	return frame.WithNRGBA(imaging.Blur(frame.NRGBA(), sigma)), nil, nil
}

// laplacian is the 3x3 edge kernel. Convolving the grayscale plane
// with it leaves intensity only where neighborhoods disagree.
var laplacian = [9]float64{
	-1, -1, -1,
	-1, 8, -1,
	-1, -1, -1,
}

// edgeStage renders the frame as its Laplacian edge map. It reports a
// whole-frame detection entry so downstream consumers can tell the
// stage ran without inspecting pixels.
type edgeStage struct{}

func (edgeStage) Name() string { return StageEdges }

func (edgeStage) Enabled(opts options.Options) bool { return opts.EdgeDetection }

func (edgeStage) Apply(frame *vision.Frame, _ options.Options) (*vision.Frame, []vision.Detection, error) {
	gray := imaging.Grayscale(frame.NRGBA())
	edges := imaging.Convolve3x3(gray, laplacian, &imaging.ConvolveOptions{Abs: true})
	det := vision.NewDetection(StageEdges, "edges", vision.Box{}, 0)
	return frame.WithNRGBA(edges), []vision.Detection{det}, nil
}
