package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/kozaktomas/face-touch/internal/journal"
	"github.com/sirupsen/logrus"
)

// JournalReader lists recorded touches.
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]journal.TouchEvent, error)
}

// JournalHandler serves the touch journal.
type JournalHandler struct {
	journal JournalReader
	log     logrus.FieldLogger
}

// NewJournalHandler creates a journal handler. j is nil when no database is configured.
func NewJournalHandler(j JournalReader, log logrus.FieldLogger) *JournalHandler {
	return &JournalHandler{journal: j, log: log}
}

// List returns recent touch events, newest first.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		respondError(w, http.StatusNotFound, "journal is not configured")
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	events, err := h.journal.Recent(r.Context(), journal.ClampLimit(limit))
	if err != nil {
		h.log.WithError(err).WithField("query", sanitizeForLog(r.URL.RawQuery)).Error("failed to list journal")
		respondError(w, http.StatusInternalServerError, "failed to list journal")
		return
	}
	respondJSON(w, http.StatusOK, events)
}
