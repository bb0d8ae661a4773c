package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// minAnchors pads synthetic heads with empty anchors so they keep the real
// head's shape, where anchors outnumber channels.
const minAnchors = 32

// buildOutput lays anchors out channel-major as the exported head does.
// Each anchor is {cx, cy, w, h, score_0, ..., score_n}.
func buildOutput(t *testing.T, anchors ...[]float32) Output {
	t.Helper()
	channels := len(anchors[0])
	n := max(len(anchors), minAnchors)
	data := make([]float32, channels*n)
	for i, a := range anchors {
		for c, v := range a {
			data[c*n+i] = v
		}
	}
	out, err := NewOutput(data, []int{1, channels, n})
	require.NoError(t, err)
	require.False(t, out.Transposed)
	return out
}

var squareFrame = Frame{InputWidth: 640, InputHeight: 640, ImageWidth: 1280, ImageHeight: 640}

func TestNewOutput_Layouts(t *testing.T) {
	out, err := NewOutput(make([]float32, 9*8400), []int{1, 9, 8400})
	require.NoError(t, err)
	require.Equal(t, 9, out.Channels)
	require.Equal(t, 8400, out.Anchors)
	require.False(t, out.Transposed)

	out, err = NewOutput(make([]float32, 9*8400), []int{1, 8400, 9})
	require.NoError(t, err)
	require.Equal(t, 9, out.Channels)
	require.True(t, out.Transposed)

	_, err = NewOutput(make([]float32, 10), []int{1, 9, 8400})
	require.Error(t, err)

	_, err = NewOutput(nil, []int{9, 8400})
	require.Error(t, err)
}

func TestDecode_ScalesAndLabels(t *testing.T) {
	out := buildOutput(t,
		[]float32{320, 320, 100, 200, 0.1, 0.0, 0.0, 0.0, 0.9}, // Pothole
		[]float32{100, 100, 20, 20, 0.3, 0.0, 0.2, 0.0, 0.0},   // below threshold
	)

	dets := Decode(out, squareFrame, DefaultClassNames, 0.5, IoUThreshold)
	require.Len(t, dets, 1)
	require.Equal(t, "Pothole", dets[0].Class)
	require.InDelta(t, 0.9, dets[0].Confidence, 1e-6)
	require.Equal(t, 540, dets[0].X1)
	require.Equal(t, 220, dets[0].Y1)
	require.Equal(t, 740, dets[0].X2)
	require.Equal(t, 420, dets[0].Y2)
}

func TestDecode_ThresholdIsExclusive(t *testing.T) {
	out := buildOutput(t,
		[]float32{320, 320, 100, 100, 0.5, 0, 0, 0, 0},
	)

	require.Empty(t, Decode(out, squareFrame, DefaultClassNames, 0.5, IoUThreshold))
}

func TestDecode_SuppressesOverlapsPerClass(t *testing.T) {
	out := buildOutput(t,
		[]float32{320, 320, 100, 100, 0, 0, 0.7, 0, 0},  // Garbage
		[]float32{322, 322, 100, 100, 0, 0, 0.95, 0, 0}, // Garbage, overlaps the first
		[]float32{321, 321, 100, 100, 0.8, 0, 0, 0, 0},  // Broken Pole, same place, other class
		[]float32{50, 50, 40, 40, 0, 0, 0.6, 0, 0},      // Garbage, elsewhere
	)

	dets := Decode(out, Frame{InputWidth: 640, InputHeight: 640, ImageWidth: 640, ImageHeight: 640}, DefaultClassNames, 0.5, IoUThreshold)
	require.Len(t, dets, 3)
	require.Equal(t, "Garbage", dets[0].Class)
	require.InDelta(t, 0.95, dets[0].Confidence, 1e-6)
	require.Equal(t, "Broken Pole", dets[1].Class)
	require.Equal(t, "Garbage", dets[2].Class)
	require.InDelta(t, 0.6, dets[2].Confidence, 1e-6)
}

func TestDecode_TransposedMatchesChannelMajor(t *testing.T) {
	// anchor-major: anchor i occupies data[i*9 : i*9+9]
	data := make([]float32, minAnchors*9)
	copy(data[3*9:], []float32{320, 320, 64, 64, 0, 0.8, 0, 0, 0})
	out, err := NewOutput(data, []int{1, minAnchors, 9})
	require.NoError(t, err)
	require.True(t, out.Transposed)

	dets := Decode(out, squareFrame, DefaultClassNames, 0.5, IoUThreshold)
	require.Len(t, dets, 1)
	require.Equal(t, "Fallen Tree", dets[0].Class)
}

func TestDecode_ClampsToImage(t *testing.T) {
	out := buildOutput(t,
		[]float32{10, 630, 60, 40, 0, 0, 0, 0.9, 0},
	)

	dets := Decode(out, Frame{InputWidth: 640, InputHeight: 640, ImageWidth: 640, ImageHeight: 640}, DefaultClassNames, 0.5, IoUThreshold)
	require.Len(t, dets, 1)
	require.Equal(t, 0, dets[0].X1)
	require.Equal(t, 640, dets[0].Y2)
}

func TestDecode_DropsBoxesOutsideImage(t *testing.T) {
	out := buildOutput(t,
		[]float32{700, 320, 40, 40, 0, 0, 0, 0, 0.9},
		[]float32{320, 320, 64, 64, 0.8, 0, 0, 0, 0},
	)

	frame := Frame{InputWidth: 640, InputHeight: 640, ImageWidth: 640, ImageHeight: 640}
	dets := Decode(out, frame, DefaultClassNames, 0.5, IoUThreshold)
	require.Len(t, dets, 1)
	require.Equal(t, "Broken Pole", dets[0].Class)
	require.Equal(t, 64, dets[0].Width())
}

func TestDecode_UnknownClassID(t *testing.T) {
	out := buildOutput(t,
		[]float32{320, 320, 64, 64, 0, 0, 0, 0, 0, 0.9},
	)

	dets := Decode(out, squareFrame, DefaultClassNames, 0.5, IoUThreshold)
	require.Len(t, dets, 1)
	require.Equal(t, "class_5", dets[0].Class)
}

func TestIoU(t *testing.T) {
	a := candidate{x1: 0, y1: 0, x2: 10, y2: 10}
	require.InDelta(t, 1.0, iou(a, a), 1e-9)
	require.Zero(t, iou(a, candidate{x1: 20, y1: 20, x2: 30, y2: 30}))
	require.InDelta(t, 25.0/175.0, iou(a, candidate{x1: 5, y1: 5, x2: 15, y2: 15}), 1e-9)
}
