package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-touch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigHandler_Get(t *testing.T) {
	cfg := &config.Config{}
	cfg.Session.BurstSize = 50
	cfg.Session.SampleInterval = 100 * time.Millisecond
	cfg.Session.RunInterval = 200 * time.Millisecond
	cfg.Classifier.K = 3
	cfg.Classifier.Index = "exact"
	cfg.Classifier.TouchConfidence = 0.8
	cfg.Camera.Source = "push"
	cfg.Notify.Cooldown = 3 * time.Second
	cfg.Notify.Language = "vi"
	cfg.Notify.WebhookURL = "https://hooks.example.com/secret"

	recorder := httptest.NewRecorder()
	NewConfigHandler(cfg, true).Get(recorder, httptest.NewRequest(http.MethodGet, "/config", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp ConfigResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))

	assert.Equal(t, 50, resp.BurstSize)
	assert.Equal(t, int64(100), resp.SampleIntervalMs)
	assert.Equal(t, int64(200), resp.RunIntervalMs)
	assert.Equal(t, int64(3000), resp.NotifyCooldownMs)
	assert.InDelta(t, 0.8, resp.TouchConfidence, 1e-9)
	assert.True(t, resp.BrowserSound)
	assert.True(t, resp.JournalEnabled)
	assert.NotContains(t, recorder.Body.String(), "secret")
}
