package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"infrascan/internal/apperror"
	"infrascan/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, logger *logger.Logger, status int, message string) {
	writeJSON(w, logger, status, errorResponse{Error: message})
}

// writeAppError maps err to its status code and writes {"error": err}.
func writeAppError(w http.ResponseWriter, logger *logger.Logger, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed (%s): %v", apperror.KindOf(err), err)
	} else {
		logger.Warning("Request rejected (%s): %v", apperror.KindOf(err), err)
	}
	writeError(w, logger, status, err.Error())
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
