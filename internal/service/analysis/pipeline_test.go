package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"infrascan/internal/apperror"
	"infrascan/internal/logger"
	"infrascan/internal/model"
)

type fakeDetector struct {
	detections  []model.Detection
	err         error
	annotateErr error
	calls       *[]string
}

func (f *fakeDetector) Detect(ctx context.Context, image []byte) ([]model.Detection, error) {
	*f.calls = append(*f.calls, "detect")
	return f.detections, f.err
}

func (f *fakeDetector) Annotate(image []byte, detections []model.Detection) ([]byte, error) {
	*f.calls = append(*f.calls, "annotate")
	if f.annotateErr != nil {
		return nil, f.annotateErr
	}
	return []byte("annotated"), nil
}

type fakeDescriber struct {
	text   string
	err    error
	labels []string
	calls  *[]string
}

func (f *fakeDescriber) Describe(ctx context.Context, image []byte, labels []string) (string, error) {
	*f.calls = append(*f.calls, "describe")
	f.labels = labels
	return f.text, f.err
}

type fakeSink struct {
	images [][]byte
}

func (f *fakeSink) AddImage(data []byte, labels []string) bool {
	f.images = append(f.images, data)
	return true
}

func det(class string, conf float64) model.Detection {
	return model.Detection{Class: class, Confidence: conf, X1: 1, Y1: 1, X2: 10, Y2: 10}
}

func TestAnalyze_Success(t *testing.T) {
	var calls []string
	detector := &fakeDetector{calls: &calls, detections: []model.Detection{
		det("Broken Pole", 0.9),
		det("Pothole", 0.8),
		det("Inclined Pole", 0.7),
		det("Fallen Tree", 0.99),
	}}
	describer := &fakeDescriber{calls: &calls, text: "A leaning pole and a pothole."}
	sink := &fakeSink{}

	res, err := NewPipeline(detector, describer, sink, logger.Discard()).Analyze(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Equal(t, []string{"Damaged Pole", "Pothole"}, res.Labels)
	require.Equal(t, 8, res.Score)
	require.Equal(t, "A leaning pole and a pothole.", res.Description)
	require.Equal(t, []string{"Damaged Pole", "Pothole"}, describer.labels)
	require.Equal(t, []string{"detect", "annotate", "describe"}, calls)
	require.Len(t, sink.images, 1)
}

func TestAnalyze_NoDetections(t *testing.T) {
	var calls []string
	describer := &fakeDescriber{calls: &calls, text: "Nothing obvious."}
	sink := &fakeSink{}

	res, err := NewPipeline(&fakeDetector{calls: &calls}, describer, sink, logger.Discard()).Analyze(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.NotNil(t, res.Labels)
	require.Empty(t, res.Labels)
	require.Zero(t, res.Score)
	require.Equal(t, []string{"detect", "describe"}, calls)
	require.Empty(t, sink.images)
}

func TestAnalyze_DetectorFailureStopsPipeline(t *testing.T) {
	var calls []string
	detector := &fakeDetector{calls: &calls, err: apperror.NewDecodeError("bad image", nil)}

	_, err := NewPipeline(detector, &fakeDescriber{calls: &calls}, nil, logger.Discard()).Analyze(context.Background(), nil)
	require.True(t, apperror.IsDecodeError(err))
	require.Equal(t, []string{"detect"}, calls)
}

func TestAnalyze_InvalidDetection(t *testing.T) {
	var calls []string
	detector := &fakeDetector{calls: &calls, detections: []model.Detection{det("", 0.9)}}

	_, err := NewPipeline(detector, &fakeDescriber{calls: &calls}, nil, logger.Discard()).Analyze(context.Background(), nil)
	require.True(t, apperror.IsValidationError(err))
	require.Equal(t, []string{"detect"}, calls)
}

func TestAnalyze_DescriberFailureReturnsNoResult(t *testing.T) {
	var calls []string
	detector := &fakeDetector{calls: &calls, detections: []model.Detection{det("Garbage", 0.9)}}
	describer := &fakeDescriber{calls: &calls, err: apperror.NewTimeoutError("slow", nil)}

	res, err := NewPipeline(detector, describer, nil, logger.Discard()).Analyze(context.Background(), nil)
	require.Nil(t, res)
	require.True(t, apperror.IsTimeout(err))
}

func TestAnalyze_AnnotationFailureIsIgnored(t *testing.T) {
	var calls []string
	detector := &fakeDetector{calls: &calls, detections: []model.Detection{det("Garbage", 0.9)}, annotateErr: errors.New("draw failed")}
	sink := &fakeSink{}

	res, err := NewPipeline(detector, &fakeDescriber{calls: &calls, text: "Litter."}, sink, logger.Discard()).Analyze(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, []string{"Garbage"}, res.Labels)
	require.Equal(t, 1, res.Score)
	require.Empty(t, sink.images)
}
