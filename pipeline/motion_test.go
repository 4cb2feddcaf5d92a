package pipeline

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/options"
)

func motionOpts(threshold int) options.Options {
	opts := options.Defaults()
	opts.MotionDetection = true
	opts.MotionThreshold = threshold
	return opts
}

func TestMotion_FirstFrameIsBaseline(t *testing.T) {
	m := &motionStage{}

	out, dets, err := m.Apply(squareFrame(t, 1, image.Rect(8, 8, 40, 40)), motionOpts(10))
	require.NoError(t, err)
	assert.Nil(t, out, "motion never replaces the frame")
	assert.Empty(t, dets)
}

func TestMotion_StaticSceneStaysQuiet(t *testing.T) {
	m := &motionStage{}
	opts := motionOpts(10)

	for seq := uint64(1); seq <= 5; seq++ {
		_, dets, err := m.Apply(squareFrame(t, seq, image.Rect(8, 8, 40, 40)), opts)
		require.NoError(t, err)
		assert.Empty(t, dets, "frame %d", seq)
	}
}

func TestMotion_DetectsAppearingObject(t *testing.T) {
	m := &motionStage{}
	opts := motionOpts(100)

	_, _, err := m.Apply(solidFrame(t, 1, color.NRGBA{A: 255}), opts)
	require.NoError(t, err)

	_, dets, err := m.Apply(squareFrame(t, 2, image.Rect(16, 16, 48, 48)), opts)
	require.NoError(t, err)
	require.Len(t, dets, 1)

	det := dets[0]
	assert.Equal(t, StageMotion, det.Stage)
	assert.Equal(t, "motion", det.Label)
	assert.True(t, det.Available)

	// The union box covers the changed square, aligned to cells.
	assert.LessOrEqual(t, det.Box.X, 16)
	assert.LessOrEqual(t, det.Box.Y, 16)
	assert.GreaterOrEqual(t, det.Box.X+det.Box.W, 48)
	assert.GreaterOrEqual(t, det.Box.Y+det.Box.H, 48)
	assert.LessOrEqual(t, det.Box.X+det.Box.W, 64)
	assert.LessOrEqual(t, det.Box.Y+det.Box.H, 64)

	assert.Greater(t, det.Confidence, 0.0)
	assert.LessOrEqual(t, det.Confidence, 1.0)
}

func TestMotion_ThresholdSuppressesSmallChanges(t *testing.T) {
	m := &motionStage{}
	opts := motionOpts(100000)

	_, _, err := m.Apply(solidFrame(t, 1, color.NRGBA{A: 255}), opts)
	require.NoError(t, err)

	_, dets, err := m.Apply(squareFrame(t, 2, image.Rect(16, 16, 48, 48)), opts)
	require.NoError(t, err)
	assert.Empty(t, dets, "changed area stays under the threshold")
}

func TestMotion_ResolutionChangeResetsBaseline(t *testing.T) {
	m := &motionStage{}
	opts := motionOpts(10)

	_, _, err := m.Apply(squareFrame(t, 1, image.Rect(8, 8, 40, 40)), opts)
	require.NoError(t, err)

	small := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for i := 3; i < len(small.Pix); i += 4 {
		small.Pix[i] = 255
	}
	frame := frameFromNRGBA(t, small, 2)

	_, dets, err := m.Apply(frame, opts)
	require.NoError(t, err)
	assert.Empty(t, dets, "size change starts a fresh baseline")

	_, dets, err = m.Apply(frameFromNRGBA(t, small, 3), opts)
	require.NoError(t, err)
	assert.Empty(t, dets, "identical frame at the new size")
}

func TestMotion_ResetClearsBaseline(t *testing.T) {
	m := &motionStage{}
	opts := motionOpts(10)

	_, _, err := m.Apply(solidFrame(t, 1, color.NRGBA{A: 255}), opts)
	require.NoError(t, err)

	moved := squareFrame(t, 2, image.Rect(8, 8, 40, 40))
	_, dets, err := m.Apply(moved, opts)
	require.NoError(t, err)
	require.NotEmpty(t, dets)

	m.Reset()

	_, dets, err = m.Apply(moved, opts)
	require.NoError(t, err)
	assert.Empty(t, dets)
}
