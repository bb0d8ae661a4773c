package route

import (
	"context"
	"net/http"

	"infrascan/internal/handler"
	"infrascan/internal/logger"
	"infrascan/internal/middleware"
	"infrascan/internal/repository"
	"infrascan/internal/service/storage"
)

// Dependencies are the services the HTTP layer is built from.
type Dependencies struct {
	Analyzer      handler.Analyzer
	Uploads       *storage.UploadStore
	Reports       repository.ReportRepository
	Hub           handler.LiveHub
	Broadcaster   handler.ReportBroadcaster
	MaxUploadSize int64
	Logger        *logger.Logger
}

// SetupRoutes registers the upload, report and log endpoints and wraps the
// mux with recovery, request logging and CORS. ctx bounds websocket sessions.
func SetupRoutes(ctx context.Context, deps Dependencies) http.Handler {
	mux := http.NewServeMux()
	log := deps.Logger

	upload := handler.UploadHandler(deps.Analyzer, deps.Uploads, deps.Reports, deps.Broadcaster, deps.MaxUploadSize, log)
	mux.HandleFunc("/upload/{$}", upload)
	mux.HandleFunc("/upload", upload)

	// Report endpoints
	mux.HandleFunc("/api/reports", handler.GetReportsHandler(deps.Reports, log))
	mux.HandleFunc("GET /api/reports/{id}", handler.GetReportHandler(deps.Reports, log))
	mux.HandleFunc("GET /api/reports/live", handler.LiveReportsHandler(ctx, deps.Hub, log))

	// Log endpoints
	mux.HandleFunc("GET /logs/info", handler.ShowLogsHandler(log, logger.InfoFile))
	mux.HandleFunc("GET /logs/warning", handler.ShowLogsHandler(log, logger.WarningFile))
	mux.HandleFunc("GET /logs/error", handler.ShowLogsHandler(log, logger.ErrorFile))

	mux.HandleFunc("POST /logs/info/clear", handler.ClearLogsHandler(log, logger.InfoFile))
	mux.HandleFunc("POST /logs/warning/clear", handler.ClearLogsHandler(log, logger.WarningFile))
	mux.HandleFunc("POST /logs/error/clear", handler.ClearLogsHandler(log, logger.ErrorFile))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}` + "\n"))
	})

	return middleware.Chain(mux,
		middleware.CORS,
		middleware.Logging(log),
		middleware.Recover(log),
	)
}
