package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-touch/internal/classifier"
	"github.com/kozaktomas/face-touch/internal/embedding"
	"github.com/kozaktomas/face-touch/internal/frame"
	"github.com/kozaktomas/face-touch/internal/session"
)

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrWrongPhase),
		errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, frame.ErrInvalidFrame):
		return http.StatusBadRequest
	case errors.Is(err, frame.ErrDeviceUnavailable),
		errors.Is(err, embedding.ErrModelLoad),
		errors.Is(err, embedding.ErrNotLoaded):
		return http.StatusServiceUnavailable
	case errors.Is(err, classifier.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondErr sends err with the status statusFor picks.
func respondErr(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
