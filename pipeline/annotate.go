package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/vision"
)

// stageColors assigns each detection stage its overlay color.
var stageColors = map[string]color.NRGBA{
	StageFaces:    {B: 255, A: 255},
	StageMotion:   {R: 255, G: 255, A: 255},
	StageTracking: {R: 255, A: 255},
	StageAnalysis: {G: 255, A: 255},
}

var hudColor = color.NRGBA{G: 255, A: 255}

const (
	boxStroke = 2

	// Face7x13 glyph metrics, used to place and right-align text.
	fontWidth  = 7
	fontHeight = 13

	hudMargin = 8
	hudTop    = 16
)

// annotate clones the frame and draws the detection boxes and the HUD
// into the clone. The input frame is left untouched.
func annotate(frame *vision.Frame, detections []vision.Detection, active []string) *vision.Frame {
	out := frame.Clone()
	img := out.NRGBA()

	for _, det := range detections {
		if !det.Available || det.Box.W <= 0 || det.Box.H <= 0 {
			continue
		}
		c, ok := stageColors[det.Stage]
		if !ok {
			c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		}
		drawBox(img, det.Box, c, boxStroke)
		if det.Label != "" {
			y := det.Box.Y - 4
			if y < fontHeight {
				y = det.Box.Y + fontHeight
			}
			drawLabel(img, det.Box.X, y, det.Label, c)
		}
	}

	drawHUD(img, out, active)
	return out
}

// drawHUD writes the status line top-left, the frame counter
// top-right, and the capture timestamp bottom-left.
func drawHUD(img *image.NRGBA, frame *vision.Frame, active []string) {
	status := "no filters"
	if len(active) > 0 {
		status = strings.Join(active, ",")
	}
	drawLabel(img, hudMargin, hudTop, status, hudColor)

	counter := fmt.Sprintf("#%d", frame.Seq)
	drawLabel(img, frame.Width-fontWidth*len(counter)-hudMargin, hudTop, counter, hudColor)

	ts := frame.Timestamp.Format("2006-01-02 15:04:05")
	drawLabel(img, hudMargin, frame.Height-hudMargin, ts, hudColor)
}

func drawLabel(img *image.NRGBA, x, y int, text string, c color.NRGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func drawBox(img *image.NRGBA, b vision.Box, c color.NRGBA, stroke int) {
	x0, y0 := b.X, b.Y
	x1, y1 := b.X+b.W, b.Y+b.H
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, c)
		drawHLine(img, y1-1-s, x0, x1, c)
		drawVLine(img, x0+s, y0, y1, c)
		drawVLine(img, x1-1-s, y0, y1, c)
	}
}

// drawHLine fills [x0, x1) on row y, clamped to the image.
func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if y < 0 || y >= h {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	x0 = max(x0, 0)
	x1 = min(x1, w)
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

// drawVLine fills [y0, y1) on column x, clamped to the image.
func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if x < 0 || x >= w {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	y0 = max(y0, 0)
	y1 = min(y1, h)
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
