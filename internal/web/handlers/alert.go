package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-touch/internal/alert"
)

// AlertHandler receives the browser's sound-finished signal.
type AlertHandler struct {
	player *alert.BrowserPlayer
	gate   *alert.Gate
}

// NewAlertHandler creates an alert handler. player is nil when the server
// plays the sound itself.
func NewAlertHandler(player *alert.BrowserPlayer, gate *alert.Gate) *AlertHandler {
	return &AlertHandler{player: player, gate: gate}
}

// AlertResponse reports the gate after a finished signal.
type AlertResponse struct {
	Rearmed bool        `json:"rearmed"`
	State   alert.State `json:"state"`
	Fired   uint64      `json:"fired"`
}

// Finished rearms the gate once the browser's alert sound ended.
func (h *AlertHandler) Finished(w http.ResponseWriter, r *http.Request) {
	if h.player == nil {
		respondError(w, http.StatusConflict, "alert sound is played by the server")
		return
	}

	rearmed := h.player.Finished()
	respondJSON(w, http.StatusOK, AlertResponse{
		Rearmed: rearmed,
		State:   h.gate.State(),
		Fired:   h.gate.Fired(),
	})
}

// Status returns the gate state.
func (h *AlertHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, AlertResponse{State: h.gate.State(), Fired: h.gate.Fired()})
}
