// Package scoring maps raw detector classes to canonical defect labels and
// accumulates a severity score.
package scoring

import (
	"fmt"
	"math"

	"infrascan/internal/apperror"
	"infrascan/internal/model"
)

const (
	DamagedPole = "Damaged Pole"
	Pothole     = "Pothole"
	Garbage     = "Garbage"
	FallenTree  = "Fallen Tree"
)

// MinConfidence is the exclusive lower bound for a detection to count.
const MinConfidence = 0.5

var aliases = map[string]string{
	"Broken Pole":   DamagedPole,
	"Inclined Pole": DamagedPole,
}

var weights = map[string]int{
	DamagedPole: 3,
	Pothole:     2,
	Garbage:     1,
}

// Normalize collapses raw class aliases onto their canonical label.
func Normalize(class string) string {
	if canonical, ok := aliases[class]; ok {
		return canonical
	}
	return class
}

// Weight returns the severity weight of a canonical label, 0 when unknown.
func Weight(label string) int {
	return weights[label]
}

// NormalizeAndScore drops excluded and low-confidence detections, normalizes
// the rest, and returns the unique labels in order of first appearance with
// the summed weight of every surviving detection.
func NormalizeAndScore(detections []model.Detection) ([]string, int, error) {
	labels := make([]string, 0, len(detections))
	seen := make(map[string]bool, len(detections))
	score := 0

	for i, det := range detections {
		if err := validate(det); err != nil {
			return nil, 0, apperror.NewValidationError(fmt.Sprintf("detection %d", i), err)
		}
		if det.Class == FallenTree || det.Confidence <= MinConfidence {
			continue
		}

		label := Normalize(det.Class)
		if !seen[label] {
			seen[label] = true
			labels = append(labels, label)
		}
		score += Weight(label)
	}

	return labels, score, nil
}

// Analyze is NormalizeAndScore packaged as an AnalysisResult.
func Analyze(detections []model.Detection) (*model.AnalysisResult, error) {
	labels, score, err := NormalizeAndScore(detections)
	if err != nil {
		return nil, err
	}
	return &model.AnalysisResult{Labels: labels, Score: score}, nil
}

// Priority buckets a score for report triage.
func Priority(score int) model.Priority {
	switch {
	case score >= 5:
		return model.PriorityHigh
	case score >= 2:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

func validate(det model.Detection) error {
	if det.Class == "" {
		return fmt.Errorf("empty class name")
	}
	if math.IsNaN(det.Confidence) || det.Confidence < 0 || det.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", det.Confidence)
	}
	if det.X2 < det.X1 || det.Y2 < det.Y1 {
		return fmt.Errorf("inverted box (%d,%d)-(%d,%d)", det.X1, det.Y1, det.X2, det.Y2)
	}
	return nil
}
