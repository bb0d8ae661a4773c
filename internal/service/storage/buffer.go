package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"infrascan/internal/logger"
)

const (
	// AnnotationBufferLimit caps how many annotated images are held between flushes.
	AnnotationBufferLimit = 10
	// AnnotationFlushInterval is how often buffered images are written to disk.
	AnnotationFlushInterval = 30 * time.Second

	timestampLayout = "2006-01-02_15-04-05.000"
)

// BufferedImage is an annotated debug image waiting to be flushed.
type BufferedImage struct {
	Timestamp time.Time
	Labels    []string
	Data      []byte
}

// BufferService keeps annotated images in memory and periodically writes them
// to disk. Images added past the limit are dropped until the next flush.
type BufferService struct {
	imagesDir     string
	limit         int
	flushInterval time.Duration
	images        []BufferedImage
	dropped       int
	mu            sync.Mutex
	logger        *logger.Logger
}

// NewBufferService creates a BufferService writing into imagesDir.
func NewBufferService(imagesDir string, limit int, flushInterval time.Duration, logger *logger.Logger) *BufferService {
	if limit <= 0 {
		limit = AnnotationBufferLimit
	}
	if flushInterval <= 0 {
		flushInterval = AnnotationFlushInterval
	}
	return &BufferService{
		imagesDir:     imagesDir,
		limit:         limit,
		flushInterval: flushInterval,
		images:        make([]BufferedImage, 0, limit),
		logger:        logger,
	}
}

// Run flushes on every tick until ctx is cancelled, then flushes once more.
func (s *BufferService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.FlushImages()
		case <-ctx.Done():
			s.FlushImages()
			return
		}
	}
}

// AddImage appends an annotated image. It reports whether the image was kept.
func (s *BufferService) AddImage(data []byte, labels []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.images) >= s.limit {
		s.dropped++
		return false
	}

	s.images = append(s.images, BufferedImage{
		Timestamp: time.Now(),
		Labels:    append([]string(nil), labels...),
		Data:      data,
	})
	s.logger.Info("Annotation buffer size: %d/%d", len(s.images), s.limit)
	return true
}

// Len returns the number of buffered images.
func (s *BufferService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// FlushImages writes buffered images to disk and resets the buffer. It
// returns how many files were written.
func (s *BufferService) FlushImages() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.images) == 0 {
		return 0
	}

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return 0
	}

	savedCount := 0
	for i, image := range s.images {
		filename := annotationFilename(image, i)
		if err := os.WriteFile(filepath.Join(s.imagesDir, filename), image.Data, 0644); err != nil {
			s.logger.Error("Error saving image %s: %v", filename, err)
			continue
		}
		savedCount++
	}

	if s.dropped > 0 {
		s.logger.Warning("Annotation buffer full, dropped %d image(s)", s.dropped)
	}
	s.logger.Info("Flushed %d annotated images to %s", savedCount, s.imagesDir)
	s.images = s.images[:0]
	s.dropped = 0
	return savedCount
}

// annotationFilename builds "<timestamp>_<n>_<label>_<label>.jpg" with spaces
// in labels replaced by dashes.
func annotationFilename(image BufferedImage, index int) string {
	parts := []string{image.Timestamp.Format(timestampLayout), fmt.Sprint(index)}
	for _, label := range image.Labels {
		parts = append(parts, strings.ReplaceAll(label, " ", "-"))
	}
	return strings.Join(parts, "_") + ".jpg"
}
