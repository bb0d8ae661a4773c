//go:build gocv

package ai

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"

	"gocv.io/x/gocv"

	"infrascan/internal/apperror"
	"infrascan/internal/logger"
	"infrascan/internal/model"
)

// DetectorService runs the defect detection network. Each loaded network is
// used by one request at a time.
type DetectorService struct {
	nets       chan gocv.Net
	all        []gocv.Net
	classNames []string
	threshold  float64
	logger     *logger.Logger
}

// NewDetectorService loads opts.Workers copies of the network. Any load
// failure is a startup error.
func NewDetectorService(opts Options, logger *logger.Logger) (*DetectorService, error) {
	opts.applyDefaults()

	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, apperror.NewStartupError("model file not found: "+opts.ModelPath, err)
	}

	s := &DetectorService{
		nets:       make(chan gocv.Net, opts.Workers),
		classNames: opts.ClassNames,
		threshold:  opts.Threshold,
		logger:     logger,
	}

	for i := 0; i < opts.Workers; i++ {
		net, err := initializeNet(opts.ModelPath)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.all = append(s.all, net)
		s.nets <- net
	}

	s.logger.Info("Detection network initialized: %d worker(s), %d classes", opts.Workers, len(opts.ClassNames))
	return s, nil
}

// initializeNet loads the ONNX network and sets backend/target preferences.
func initializeNet(modelPath string) (gocv.Net, error) {
	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return net, apperror.NewStartupError("failed to load network "+modelPath, nil)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return gocv.Net{}, apperror.NewStartupError("failed to set preferable backend or target", nil)
	}
	return net, nil
}

// Detect decodes the image and runs a single inference pass over it.
func (s *DetectorService) Detect(ctx context.Context, imageBytes []byte) ([]model.Detection, error) {
	mat, err := decode(imageBytes)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	var net gocv.Net
	select {
	case net = <-s.nets:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { s.nets <- net }()

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(InputSize, InputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	net.SetInput(blob, "")
	output := net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read network output: %w", err)
	}
	out, err := NewOutput(data, output.Size())
	if err != nil {
		return nil, err
	}

	detections := Decode(out, Frame{
		InputWidth:  InputSize,
		InputHeight: InputSize,
		ImageWidth:  mat.Cols(),
		ImageHeight: mat.Rows(),
	}, s.classNames, s.threshold, IoUThreshold)

	for _, d := range detections {
		s.logger.Info("Detected %s: %.2f at [%d,%d,%d,%d]", d.Class, d.Confidence, d.X1, d.Y1, d.X2, d.Y2)
	}
	return detections, nil
}

// Annotate draws detections onto a copy of the image and returns it as JPEG.
func (s *DetectorService) Annotate(imageBytes []byte, detections []model.Detection) ([]byte, error) {
	green := color.RGBA{G: 255, A: 255}

	mat, err := decode(imageBytes)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	for _, d := range detections {
		if err := gocv.Rectangle(&mat, image.Rect(d.X1, d.Y1, d.X2, d.Y2), green, 2); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %w", err)
		}

		label := fmt.Sprintf("%s: %.2f", d.Class, d.Confidence)
		if err := gocv.PutText(&mat, label, image.Pt(d.X1, d.Y1-10), gocv.FontHersheySimplex, 0.5, green, 2); err != nil {
			return nil, fmt.Errorf("failed to draw text: %w", err)
		}
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	encoded := make([]byte, buf.Len())
	copy(encoded, buf.GetBytes())
	return encoded, nil
}

// Close releases every loaded network.
func (s *DetectorService) Close() error {
	for _, net := range s.all {
		net.Close()
	}
	s.all = nil
	return nil
}

func decode(imageBytes []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(imageBytes, gocv.IMReadColor)
	if err != nil {
		return mat, apperror.NewDecodeError("failed to decode image", err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), apperror.NewDecodeError("decoded image is empty", nil)
	}
	return mat, nil
}
