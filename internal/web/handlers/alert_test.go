package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-touch/internal/alert"
	"github.com/kozaktomas/face-touch/internal/classifier"
	"github.com/kozaktomas/face-touch/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touching(conf float64) classifier.Result {
	return classifier.Result{
		Label: classifier.Touching,
		Confidences: map[classifier.Label]float64{
			classifier.Touching:    conf,
			classifier.NotTouching: 1 - conf,
		},
	}
}

func finished(t *testing.T, h *AlertHandler) (int, AlertResponse) {
	t.Helper()
	recorder := httptest.NewRecorder()
	h.Finished(recorder, httptest.NewRequest(http.MethodPost, "/alert/finished", nil))
	var resp AlertResponse
	if recorder.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	}
	return recorder.Code, resp
}

func TestAlertHandler_Finished(t *testing.T) {
	player := alert.NewBrowserPlayer(nil)
	gate := alert.NewGate(alert.Options{Threshold: 0.8}, player, nil, logging.Discard())
	h := NewAlertHandler(player, gate)

	code, resp := finished(t, h)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, resp.Rearmed, "nothing was playing")
	assert.Equal(t, alert.Armed, resp.State)

	d := gate.Observe(context.Background(), touching(0.9))
	require.True(t, d.Fired)
	require.Equal(t, alert.Cooling, gate.State())

	code, resp = finished(t, h)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Rearmed)
	assert.Equal(t, alert.Armed, resp.State)
	assert.Equal(t, uint64(1), resp.Fired)
}

func TestAlertHandler_ServerSidePlayer(t *testing.T) {
	gate := alert.NewGate(alert.Options{}, alert.NewBrowserPlayer(nil), nil, logging.Discard())
	h := NewAlertHandler(nil, gate)

	code, _ := finished(t, h)
	assert.Equal(t, http.StatusConflict, code)
}

func TestAlertHandler_Status(t *testing.T) {
	player := alert.NewBrowserPlayer(nil)
	gate := alert.NewGate(alert.Options{}, player, nil, logging.Discard())
	gate.Observe(context.Background(), touching(0.95))
	h := NewAlertHandler(player, gate)

	recorder := httptest.NewRecorder()
	h.Status(recorder, httptest.NewRequest(http.MethodGet, "/alert", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"rearmed":false,"state":"cooling","fired":1}`, recorder.Body.String())
}
