package capture

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/errors"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/vision"
)

const (
	minPatternSide = 16
	maxPatternSide = 4096
)

// testPatternDevice renders a synthetic moving pattern: a color
// gradient whose hue drifts frame to frame, with a bouncing white
// box. It lets the whole pipeline run on machines with no camera and
// no sample footage.
type testPatternDevice struct {
	width  int
	height int
	ticker *time.Ticker
	frames uint64
}

func openTestPattern(_ context.Context, desc Descriptor) (Device, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("testpattern needs a size target like 640x480, got %q", desc.Target),
			"capture", "Open", "size parsing")
	}
	if desc.Width < minPatternSide || desc.Width > maxPatternSide ||
		desc.Height < minPatternSide || desc.Height > maxPatternSide {
		return nil, errors.WrapInvalid(
			fmt.Errorf("testpattern size %dx%d outside [%d, %d]",
				desc.Width, desc.Height, minPatternSide, maxPatternSide),
			"capture", "Open", "size validation")
	}

	return &testPatternDevice{
		width:  desc.Width,
		height: desc.Height,
		ticker: time.NewTicker(desc.Interval()),
	}, nil
}

// ReadFrame waits one frame interval and renders the next pattern
// frame. It never fails transiently; the only error is a context end.
func (d *testPatternDevice) ReadFrame(ctx context.Context) (*vision.Frame, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.ticker.C:
	}

	n := d.frames
	d.frames++
	return vision.FromImage(d.render(n), 0, time.Now()), nil
}

func (d *testPatternDevice) Close() error {
	d.ticker.Stop()
	return nil
}

func (d *testPatternDevice) render(n uint64) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, d.width, d.height))
	shift := uint8(n * 2)

	i := 0
	for y := 0; y < d.height; y++ {
		g := uint8(y * 255 / d.height)
		for x := 0; x < d.width; x++ {
			img.Pix[i+0] = uint8(x*255/d.width) + shift
			img.Pix[i+1] = g
			img.Pix[i+2] = 255 - shift
			img.Pix[i+3] = 255
			i += 4
		}
	}

	// Bouncing box, one eighth of the smaller side.
	side := min(d.width, d.height) / 8
	if side > 0 {
		bx := bounce(int(n)*4, d.width-side)
		by := bounce(int(n)*3, d.height-side)
		white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		for y := by; y < by+side; y++ {
			for x := bx; x < bx+side; x++ {
				img.SetNRGBA(x, y, white)
			}
		}
	}

	return img
}

// bounce folds a growing offset onto a 0..limit triangle wave.
func bounce(pos, limit int) int {
	if limit <= 0 {
		return 0
	}
	period := 2 * limit
	p := pos % period
	if p > limit {
		p = period - p
	}
	return p
}
