package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-touch/internal/config"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config         *config.Config
	journalEnabled bool
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config, journalEnabled bool) *ConfigHandler {
	return &ConfigHandler{
		config:         cfg,
		journalEnabled: journalEnabled,
	}
}

// ConfigResponse represents the non-secret session parameters
type ConfigResponse struct {
	BurstSize        int     `json:"burst_size"`
	SampleIntervalMs int64   `json:"sample_interval_ms"`
	RunIntervalMs    int64   `json:"run_interval_ms"`
	AutoRun          bool    `json:"auto_run"`
	K                int     `json:"k"`
	Index            string  `json:"index"`
	TouchConfidence  float64 `json:"touch_confidence"`
	CameraSource     string  `json:"camera_source"`
	InputSize        int     `json:"input_size"`
	BrowserSound     bool    `json:"browser_sound"`
	NotifyCooldownMs int64   `json:"notify_cooldown_ms"`
	Language         string  `json:"language"`
	JournalEnabled   bool    `json:"journal_enabled"`
}

// Get returns the session parameters the browser needs
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	c := h.config
	respondJSON(w, http.StatusOK, ConfigResponse{
		BurstSize:        c.Session.BurstSize,
		SampleIntervalMs: c.Session.SampleInterval.Milliseconds(),
		RunIntervalMs:    c.Session.RunInterval.Milliseconds(),
		AutoRun:          c.Session.AutoRun,
		K:                c.Classifier.K,
		Index:            c.Classifier.Index,
		TouchConfidence:  c.Classifier.TouchConfidence,
		CameraSource:     c.Camera.Source,
		InputSize:        c.Embedding.InputSize,
		BrowserSound:     c.Alert.SoundCommand == "",
		NotifyCooldownMs: c.Notify.Cooldown.Milliseconds(),
		Language:         c.Notify.Language,
		JournalEnabled:   h.journalEnabled,
	})
}
