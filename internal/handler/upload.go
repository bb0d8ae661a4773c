package handler

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"infrascan/internal/apperror"
	"infrascan/internal/logger"
	"infrascan/internal/model"
	"infrascan/internal/repository"
	"infrascan/internal/service/analysis"
	"infrascan/internal/service/scoring"
	"infrascan/internal/service/storage"
)

const (
	fileField = "file"
	// multipartMemory is how much of a multipart body is held in memory
	// before spilling to temp files.
	multipartMemory = 8 << 20
)

// Analyzer runs the full analysis of one image.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte) (*analysis.Result, error)
}

// ReportBroadcaster pushes new reports to live viewers.
type ReportBroadcaster interface {
	BroadcastReport(report *model.Report)
}

type uploadResponse struct {
	Result      []string `json:"result"`
	Description string   `json:"description"`
	Score       int      `json:"score"`
}

// UploadHandler accepts a multipart image under "file", analyzes it and
// responds with the labels, description and score. The stored upload is
// removed before the response is written. The outcome is then recorded as a
// report; recording failures do not affect the response.
func UploadHandler(analyzer Analyzer, uploads *storage.UploadStore, reports repository.ReportRepository,
	broadcaster ReportBroadcaster, maxUploadSize int64, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeError(w, logger, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, logger, http.StatusRequestEntityTooLarge, "File exceeds the upload limit")
				return
			}
			writeError(w, logger, http.StatusBadRequest, "No file part in the request")
			return
		}
		defer r.MultipartForm.RemoveAll()

		files := r.MultipartForm.File[fileField]
		if len(files) == 0 {
			// A file input submitted without a selection arrives as an empty plain value.
			if slices.Contains(r.MultipartForm.Value[fileField], "") {
				writeError(w, logger, http.StatusBadRequest, "No selected file")
				return
			}
			writeError(w, logger, http.StatusBadRequest, "No file part in the request")
			return
		}
		header := files[0]
		if header.Filename == "" {
			writeError(w, logger, http.StatusBadRequest, "No selected file")
			return
		}

		src, err := header.Open()
		if err != nil {
			writeAppError(w, logger, apperror.NewIOError("failed to open uploaded file", err))
			return
		}
		upload, err := uploads.Save(src, header.Filename)
		src.Close()
		if err != nil {
			writeAppError(w, logger, err)
			return
		}
		defer release(upload, logger)

		image, err := upload.Read()
		if err != nil {
			writeAppError(w, logger, err)
			return
		}

		logger.Info("Analyzing upload %q (%d bytes)", header.Filename, upload.Size)
		result, err := analyzer.Analyze(r.Context(), image)
		if err != nil {
			writeAppError(w, logger, err)
			return
		}

		release(upload, logger)
		writeJSON(w, logger, http.StatusOK, uploadResponse{
			Result:      result.Labels,
			Description: result.Description,
			Score:       result.Score,
		})

		recordReport(header.Filename, result, reports, broadcaster, logger)
	}
}

func release(upload *storage.Upload, logger *logger.Logger) {
	if err := upload.Release(); err != nil {
		logger.Error("Failed to remove upload: %v", err)
	}
}

func recordReport(filename string, result *analysis.Result, reports repository.ReportRepository,
	broadcaster ReportBroadcaster, logger *logger.Logger) {
	if reports == nil {
		return
	}

	report := &model.Report{
		Filename:    filename,
		Labels:      result.Labels,
		Score:       result.Score,
		Priority:    scoring.Priority(result.Score),
		Description: result.Description,
		Status:      model.StatusOpen,
	}
	if _, err := reports.Insert(report); err != nil {
		logger.Error("Failed to save report for %q: %v", filename, err)
		return
	}
	logger.Info("Report %d saved (%s priority)", report.ID, report.Priority)

	if broadcaster != nil {
		broadcaster.BroadcastReport(report)
	}
}
