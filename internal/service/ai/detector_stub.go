//go:build !gocv

package ai

import (
	"context"

	"infrascan/internal/apperror"
	"infrascan/internal/logger"
	"infrascan/internal/model"
)

var errNoOpenCV = apperror.NewStartupError("built without the gocv tag; rebuild with -tags gocv", nil)

// DetectorService is unavailable in builds without OpenCV.
type DetectorService struct{}

// NewDetectorService always fails with a startup error in builds without OpenCV.
func NewDetectorService(opts Options, logger *logger.Logger) (*DetectorService, error) {
	return nil, errNoOpenCV
}

func (s *DetectorService) Detect(ctx context.Context, imageBytes []byte) ([]model.Detection, error) {
	return nil, errNoOpenCV
}

func (s *DetectorService) Annotate(imageBytes []byte, detections []model.Detection) ([]byte, error) {
	return nil, errNoOpenCV
}

func (s *DetectorService) Close() error {
	return nil
}
