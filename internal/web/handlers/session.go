package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/kozaktomas/face-touch/internal/classifier"
	"github.com/kozaktomas/face-touch/internal/session"
	"github.com/sirupsen/logrus"
)

// SessionHandler exposes the session controller. Triggers are accepted
// synchronously and executed in the background on the server context, so a
// burst or detection loop outlives the request that started it.
type SessionHandler struct {
	ctrl    *session.Controller
	ctx     context.Context
	autoRun bool
	log     logrus.FieldLogger
}

// NewSessionHandler creates a new session handler. ctx bounds all background work.
func NewSessionHandler(ctx context.Context, ctrl *session.Controller, autoRun bool, log logrus.FieldLogger) *SessionHandler {
	return &SessionHandler{ctrl: ctrl, ctx: ctx, autoRun: autoRun, log: log}
}

// TriggerResponse is returned when a trigger was accepted.
type TriggerResponse struct {
	Accepted bool          `json:"accepted"`
	State    session.State `json:"state"`
}

// State returns the current session state.
func (h *SessionHandler) State(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ctrl.State())
}

// Events streams session events as SSE until the client disconnects.
func (h *SessionHandler) Events(w http.ResponseWriter, r *http.Request) {
	eventCh := h.ctrl.Subscribe()
	defer h.ctrl.Unsubscribe(eventCh)

	flusher, ok := setupSSEConnection(w)
	if !ok {
		return
	}

	s := h.ctrl.State()
	sendSSEEvent(w, flusher, session.EventState, session.Event{Type: session.EventState, Message: s.Message, Data: s})

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, event.Type, event)
		}
	}
}

func (h *SessionHandler) accepted(w http.ResponseWriter) {
	respondJSON(w, http.StatusAccepted, TriggerResponse{Accepted: true, State: h.ctrl.State()})
}

// Initialize retries loading the camera and model after a failed start.
func (h *SessionHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	err := h.ctrl.InitializeAsync(h.ctx, func(err error) {
		if err != nil {
			h.log.WithError(err).Warn("session initialization failed")
		}
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	h.accepted(w)
}

func (h *SessionHandler) train(w http.ResponseWriter, label classifier.Label) {
	err := h.ctrl.TrainAsync(h.ctx, label, func(err error) {
		switch {
		case errors.Is(err, context.Canceled):
		case err != nil:
			h.log.WithError(err).WithField("label", label).Warn("training burst failed")
		case label == classifier.Touching && h.autoRun:
			if err := h.ctrl.RunAsync(h.ctx, h.runEnded); err != nil {
				h.log.WithError(err).Warn("auto run not started")
			}
		}
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	h.accepted(w)
}

// TrainNotTouching starts the first training burst.
func (h *SessionHandler) TrainNotTouching(w http.ResponseWriter, r *http.Request) {
	h.train(w, classifier.NotTouching)
}

// TrainTouching starts the second training burst.
func (h *SessionHandler) TrainTouching(w http.ResponseWriter, r *http.Request) {
	h.train(w, classifier.Touching)
}

func (h *SessionHandler) runEnded(err error) {
	if err != nil {
		h.log.WithError(err).Error("detection loop ended with error")
	}
}

// Run starts the detection loop.
func (h *SessionHandler) Run(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.RunAsync(h.ctx, h.runEnded); err != nil {
		respondErr(w, err)
		return
	}
	h.accepted(w)
}

// Stop cancels the active training burst or detection loop.
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if !h.ctrl.Stop() {
		respondError(w, http.StatusConflict, "nothing to stop")
		return
	}
	h.accepted(w)
}
