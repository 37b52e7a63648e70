package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/kozaktomas/face-touch/internal/constants"
	"github.com/kozaktomas/face-touch/internal/frame"
)

// FramesHandler receives webcam frames pushed by the browser.
type FramesHandler struct {
	push *frame.PushSource
}

// NewFramesHandler creates a frames handler. push is nil when the server
// reads frames from another source.
func NewFramesHandler(push *frame.PushSource) *FramesHandler {
	return &FramesHandler{push: push}
}

// FrameResponse acknowledges a pushed frame.
type FrameResponse struct {
	Seq        uint64 `json:"seq"`
	Overwrites uint64 `json:"overwrites"` // frames replaced before the session read them
}

// CameraErrorRequest reports that the browser cannot capture.
type CameraErrorRequest struct {
	Reason string `json:"reason"`
}

// Push stores the request body as the current frame.
func (h *FramesHandler) Push(w http.ResponseWriter, r *http.Request) {
	if h.push == nil {
		respondError(w, http.StatusConflict, "frames are not pushed in this camera mode")
		return
	}

	body := http.MaxBytesReader(w, r.Body, constants.MaxFrameBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "frame too large")
		return
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, "empty frame")
		return
	}

	f, err := h.push.Push(data)
	if err != nil {
		respondErr(w, err)
		return
	}
	_, overwrites := h.push.Stats()
	respondJSON(w, http.StatusOK, FrameResponse{Seq: f.Seq, Overwrites: overwrites})
}

// CameraError marks the browser camera as unavailable, e.g. after camera
// permission was denied. A pending initialization fails right away.
func (h *FramesHandler) CameraError(w http.ResponseWriter, r *http.Request) {
	if h.push == nil {
		respondError(w, http.StatusConflict, "frames are not pushed in this camera mode")
		return
	}

	var req CameraErrorRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.push.Fail(sanitizeForLog(req.Reason))
	w.WriteHeader(http.StatusNoContent)
}
