package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"infrascan/internal/logger"
)

// ShowLogsHandler serves one of the logger's files as text/plain.
func ShowLogsHandler(log *logger.Logger, fileName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveLogFile(w, r, log.Dir(), fileName)
	}
}

// serveLogFile is a helper that sets headers and serves a log file if it exists.
func serveLogFile(w http.ResponseWriter, r *http.Request, logDir, filename string) {
	filePath := filepath.Join(logDir, filename)

	if _, err := os.Stat(filePath); logDir == "" || os.IsNotExist(err) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Log file not found: " + filename))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	http.ServeFile(w, r, filePath)
}

// ClearLogsHandler truncates one of the logger's files.
func ClearLogsHandler(log *logger.Logger, fileName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := log.CleanLogs(fileName); err != nil {
			log.Error("Failed to clear %s: %v", fileName, err)
			writeError(w, log, http.StatusInternalServerError, "Failed to clear log")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
