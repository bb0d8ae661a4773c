// Package analysis runs the fixed detect, score, describe sequence for one image.
package analysis

import (
	"context"

	"infrascan/internal/logger"
	"infrascan/internal/model"
	"infrascan/internal/service/scoring"
)

// Detector finds defects in an encoded image.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]model.Detection, error)
	Annotate(image []byte, detections []model.Detection) ([]byte, error)
}

// Describer produces a short text description of the problem in an image.
type Describer interface {
	Describe(ctx context.Context, image []byte, labels []string) (string, error)
}

// AnnotationSink receives annotated debug images.
type AnnotationSink interface {
	AddImage(data []byte, labels []string) bool
}

// Result is the outcome of a full analysis.
type Result struct {
	Labels      []string
	Score       int
	Description string
	Detections  []model.Detection
}

// Pipeline wires the detector, the scorer and the describer together.
type Pipeline struct {
	detector    Detector
	describer   Describer
	annotations AnnotationSink
	logger      *logger.Logger
}

// NewPipeline creates a Pipeline. annotations may be nil to disable debug images.
func NewPipeline(detector Detector, describer Describer, annotations AnnotationSink, logger *logger.Logger) *Pipeline {
	return &Pipeline{
		detector:    detector,
		describer:   describer,
		annotations: annotations,
		logger:      logger,
	}
}

// Analyze runs detection, scoring and description in that order. Any stage
// failure aborts the run with no partial result.
func (p *Pipeline) Analyze(ctx context.Context, image []byte) (*Result, error) {
	detections, err := p.detector.Detect(ctx, image)
	if err != nil {
		return nil, err
	}

	analysis, err := scoring.Analyze(detections)
	if err != nil {
		return nil, err
	}
	p.logger.Info("Detected labels %v, score %d", analysis.Labels, analysis.Score)

	p.annotate(image, detections, analysis.Labels)

	description, err := p.describer.Describe(ctx, image, analysis.Labels)
	if err != nil {
		return nil, err
	}

	return &Result{
		Labels:      analysis.Labels,
		Score:       analysis.Score,
		Description: description,
		Detections:  detections,
	}, nil
}

// annotate hands a boxed copy of the image to the debug sink. Failures are
// only logged.
func (p *Pipeline) annotate(image []byte, detections []model.Detection, labels []string) {
	if p.annotations == nil || len(detections) == 0 {
		return
	}
	annotated, err := p.detector.Annotate(image, detections)
	if err != nil {
		p.logger.Warning("Failed to annotate image: %v", err)
		return
	}
	p.annotations.AddImage(annotated, labels)
}
