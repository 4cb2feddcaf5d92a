package pipeline

import (
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/options"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/vision"
)

const (
	// motionCell is the cell edge in pixels for the block differ.
	motionCell = 8

	// cellDiffThreshold is the mean absolute luma difference above
	// which a cell counts as changed.
	cellDiffThreshold = 15
)

// grayPlane reduces a compact NRGBA buffer to one luma byte per pixel.
func grayPlane(frame *vision.Frame) []byte {
	gray := make([]byte, frame.Width*frame.Height)
	pix := frame.Pix
	for i, j := 0, 0; i < len(gray); i, j = i+1, j+4 {
		r := int(pix[j])
		g := int(pix[j+1])
		b := int(pix[j+2])
		gray[i] = byte((299*r + 587*g + 114*b) / 1000)
	}
	return gray
}

// motionStage differences consecutive frames' luma planes in 8x8
// cells. A cell whose mean difference clears cellDiffThreshold counts
// its pixels toward the changed area; motion is reported when the
// changed area clears the configured motion threshold. The previous
// plane is stage state, held without a lock: Process runs on the one
// capture goroutine.
type motionStage struct {
	prev   []byte
	pw, ph int
}

func (m *motionStage) Name() string { return StageMotion }

func (m *motionStage) Enabled(opts options.Options) bool { return opts.MotionDetection }

func (m *motionStage) Apply(frame *vision.Frame, opts options.Options) (*vision.Frame, []vision.Detection, error) {
	w, h := frame.Width, frame.Height
	if w == 0 || h == 0 {
		return nil, nil, nil
	}

	gray := grayPlane(frame)
	if m.prev == nil || m.pw != w || m.ph != h {
		m.prev, m.pw, m.ph = gray, w, h
		return nil, nil, nil
	}

	var changedArea int
	bx0, by0 := w, h
	bx1, by1 := 0, 0
	for cy := 0; cy < h; cy += motionCell {
		for cx := 0; cx < w; cx += motionCell {
			x1 := min(cx+motionCell, w)
			y1 := min(cy+motionCell, h)

			var sum, npx int
			for y := cy; y < y1; y++ {
				row := y * w
				for x := cx; x < x1; x++ {
					d := int(gray[row+x]) - int(m.prev[row+x])
					if d < 0 {
						d = -d
					}
					sum += d
					npx++
				}
			}
			if npx == 0 || sum/npx <= cellDiffThreshold {
				continue
			}
			changedArea += npx
			bx0 = min(bx0, cx)
			by0 = min(by0, cy)
			bx1 = max(bx1, x1)
			by1 = max(by1, y1)
		}
	}
	m.prev = gray

	if changedArea <= opts.MotionThreshold {
		return nil, nil, nil
	}
	box := vision.Box{X: bx0, Y: by0, W: bx1 - bx0, H: by1 - by0}
	fraction := float64(changedArea) / float64(w*h)
	return nil, []vision.Detection{vision.NewDetection(StageMotion, "motion", box, fraction)}, nil
}

// Reset drops the previous plane so the next frame starts a fresh
// baseline instead of diffing across a session boundary.
func (m *motionStage) Reset() {
	m.prev = nil
	m.pw, m.ph = 0, 0
}
