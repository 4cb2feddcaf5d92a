// Package vision holds the value types shared across the video
// pipeline: frames, detections, and JPEG encoding.
package vision

import (
	"bytes"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
)

// FormatNRGBA is the only pixel format frames carry: 8-bit NRGBA,
// 4 bytes per pixel, row-major, no row padding.
const FormatNRGBA = "nrgba"

// Frame is one captured video frame.
//
// Frames are shared by reference between the pipeline, the hub, and
// the upload queue, so Pix must not be modified after the frame is
// created. Stages that draw clone first and emit a new frame.
type Frame struct {
	// Pix holds the pixel data. Read-only after creation.
	Pix []byte

	Width  int
	Height int
	Format string

	// Seq is the monotonic sequence number assigned by the capture
	// source. Used for ordering and drop detection downstream.
	Seq uint64

	// Timestamp is the capture time, not the processing time.
	Timestamp time.Time
}

// FromImage builds a frame from any image, copying the pixels into a
// fresh compact NRGBA buffer.
func FromImage(img image.Image, seq uint64, ts time.Time) *Frame {
	n := imaging.Clone(img)
	b := n.Bounds()
	return &Frame{
		Pix:       n.Pix,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Format:    FormatNRGBA,
		Seq:       seq,
		Timestamp: ts,
	}
}

// NRGBA wraps the pixel buffer as an *image.NRGBA without copying.
// The result shares the frame's buffer: treat it as read-only and
// clone before drawing.
func (f *Frame) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    f.Pix,
		Stride: 4 * f.Width,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// Clone returns a deep copy whose buffer is safe to draw into.
func (f *Frame) Clone() *Frame {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	clone := *f
	clone.Pix = pix
	return &clone
}

// WithNRGBA returns a frame carrying img's pixels and this frame's
// sequence number and timestamp. When img is compact, as every
// imaging operation returns, its buffer is adopted without a copy.
func (f *Frame) WithNRGBA(img *image.NRGBA) *Frame {
	b := img.Bounds()
	if img.Stride != 4*b.Dx() || !b.Min.Eq(image.Point{}) {
		img = imaging.Clone(img)
		b = img.Bounds()
	}
	return &Frame{
		Pix:       img.Pix,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Format:    f.Format,
		Seq:       f.Seq,
		Timestamp: f.Timestamp,
	}
}

// EncodeJPEG encodes the frame at the given quality (1..100).
func (f *Frame) EncodeJPEG(quality int) ([]byte, error) {
	if f == nil || len(f.Pix) == 0 {
		return nil, fmt.Errorf("cannot encode empty frame")
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, f.NRGBA(), imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode frame %d: %w", f.Seq, err)
	}
	return buf.Bytes(), nil
}
