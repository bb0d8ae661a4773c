package ai

import (
	"fmt"
	"sort"

	"infrascan/internal/model"
)

// Output is a raw YOLOv8 detection head: 4 box channels (cx, cy, w, h in
// network-input pixels) followed by one score channel per class, for each
// anchor. Exported models emit [1, 4+nc, anchors]; some converters transpose
// it to [1, anchors, 4+nc].
type Output struct {
	Data       []float32
	Channels   int
	Anchors    int
	Transposed bool
}

// NewOutput infers the layout from a [1, a, b] shape. The channel axis is the
// shorter one since anchors always outnumber classes.
func NewOutput(data []float32, shape []int) (Output, error) {
	if len(shape) != 3 || shape[0] != 1 {
		return Output{}, fmt.Errorf("unexpected output shape %v", shape)
	}
	out := Output{Data: data, Channels: shape[1], Anchors: shape[2]}
	if shape[1] > shape[2] {
		out.Channels, out.Anchors, out.Transposed = shape[2], shape[1], true
	}
	if out.Channels < 5 {
		return Output{}, fmt.Errorf("output has %d channels, need at least 5", out.Channels)
	}
	if len(data) < out.Channels*out.Anchors {
		return Output{}, fmt.Errorf("output has %d values, shape %v needs %d", len(data), shape, out.Channels*out.Anchors)
	}
	return out, nil
}

func (o Output) at(channel, anchor int) float32 {
	if o.Transposed {
		return o.Data[anchor*o.Channels+channel]
	}
	return o.Data[channel*o.Anchors+anchor]
}

// Frame describes how network-input coordinates map back to the source image.
type Frame struct {
	InputWidth  int
	InputHeight int
	ImageWidth  int
	ImageHeight int
}

type candidate struct {
	classID int
	score   float32
	x1, y1  float64
	x2, y2  float64
}

// Decode turns raw head output into detections: best class per anchor above
// threshold, per-class non-maximum suppression, boxes scaled to the source
// image and clamped to it, ordered by descending confidence. Boxes left with
// no area after clamping are dropped.
func Decode(out Output, frame Frame, classNames []string, threshold, iouThreshold float64) []model.Detection {
	scaleX := float64(frame.ImageWidth) / float64(frame.InputWidth)
	scaleY := float64(frame.ImageHeight) / float64(frame.InputHeight)

	var candidates []candidate
	for i := 0; i < out.Anchors; i++ {
		bestClass, bestScore := -1, float32(0)
		for c := 4; c < out.Channels; c++ {
			if s := out.at(c, i); s > bestScore {
				bestClass, bestScore = c-4, s
			}
		}
		if bestClass < 0 || float64(bestScore) <= threshold {
			continue
		}

		cx, cy := float64(out.at(0, i)), float64(out.at(1, i))
		w, h := float64(out.at(2, i)), float64(out.at(3, i))
		candidates = append(candidates, candidate{
			classID: bestClass,
			score:   bestScore,
			x1:      clamp((cx-w/2)*scaleX, float64(frame.ImageWidth)),
			y1:      clamp((cy-h/2)*scaleY, float64(frame.ImageHeight)),
			x2:      clamp((cx+w/2)*scaleX, float64(frame.ImageWidth)),
			y2:      clamp((cy+h/2)*scaleY, float64(frame.ImageHeight)),
		})
	}

	kept := nonMaxSuppression(candidates, iouThreshold)

	detections := make([]model.Detection, 0, len(kept))
	for _, c := range kept {
		d := model.Detection{
			Class:      className(classNames, c.classID),
			Confidence: float64(c.score),
			X1:         int(c.x1),
			Y1:         int(c.y1),
			X2:         int(c.x2),
			Y2:         int(c.y2),
		}
		// Boxes that fall outside the image collapse to nothing once clamped.
		if d.Width() <= 0 || d.Height() <= 0 {
			continue
		}
		detections = append(detections, d)
	}
	return detections
}

// nonMaxSuppression keeps the highest scoring box of every overlapping group
// within the same class.
func nonMaxSuppression(candidates []candidate, iouThreshold float64) []candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	kept := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		suppressed := false
		for _, k := range kept {
			if k.classID == c.classID && iou(k, c) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, c)
		}
	}
	return kept
}

func iou(a, b candidate) float64 {
	ix1, iy1 := max(a.x1, b.x1), max(a.y1, b.y1)
	ix2, iy2 := min(a.x2, b.x2), min(a.y2, b.y2)
	if ix2 <= ix1 || iy2 <= iy1 {
		return 0
	}
	inter := (ix2 - ix1) * (iy2 - iy1)
	union := (a.x2-a.x1)*(a.y2-a.y1) + (b.x2-b.x1)*(b.y2-b.y1) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func clamp(v, upper float64) float64 {
	if v < 0 {
		return 0
	}
	if v > upper {
		return upper
	}
	return v
}

func className(names []string, id int) string {
	if id >= 0 && id < len(names) {
		return names[id]
	}
	return fmt.Sprintf("class_%d", id)
}
