package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kozaktomas/face-touch/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	got []Notification
	err error
}

func (r *recorder) Notify(_ context.Context, n Notification) error {
	r.got = append(r.got, n)
	return r.err
}

func TestThrottled_Cooldown(t *testing.T) {
	rec := &recorder{}
	th := NewThrottled(rec, 3*time.Second)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	th.now = func() time.Time { return now }

	require.NoError(t, th.Notify(context.Background(), Notification{ID: "1"}))

	now = now.Add(2999 * time.Millisecond)
	assert.ErrorIs(t, th.Notify(context.Background(), Notification{ID: "2"}), ErrThrottled)

	now = now.Add(time.Millisecond)
	require.NoError(t, th.Notify(context.Background(), Notification{ID: "3"}))

	require.Len(t, rec.got, 2)
	assert.Equal(t, "1", rec.got[0].ID)
	assert.Equal(t, "3", rec.got[1].ID)
}

func TestThrottled_FailedDeliveryStillOpensWindow(t *testing.T) {
	rec := &recorder{err: errors.New("permission not granted")}
	th := NewThrottled(rec, time.Minute)

	err := th.Notify(context.Background(), Notification{ID: "1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrThrottled)

	assert.ErrorIs(t, th.Notify(context.Background(), Notification{ID: "2"}), ErrThrottled)
	assert.Len(t, rec.got, 1)
}

func TestMulti_JoinsErrors(t *testing.T) {
	ok := &recorder{}
	bad := &recorder{err: errors.New("broker down")}

	err := Multi{bad, ok}.Notify(context.Background(), Notification{ID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Len(t, ok.got, 1, "a failing notifier must not stop the others")
}

func TestWebhook_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var n Notification
		if err := json.NewDecoder(r.Body).Decode(&n); err != nil || n.Title != "Touching face" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	wh := NewWebhook(server.URL, time.Second)
	wh.backoff = time.Millisecond

	err := wh.Notify(context.Background(), Notification{ID: "1", Title: "Touching face"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWebhook_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	wh := NewWebhook(server.URL, time.Second)
	wh.backoff = time.Millisecond

	err := wh.Notify(context.Background(), Notification{ID: "1"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWebhook_GivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	wh := NewWebhook(server.URL, time.Second)
	wh.backoff = time.Millisecond

	require.Error(t, wh.Notify(context.Background(), Notification{ID: "1"}))
	assert.Equal(t, int32(webhookAttempts), calls.Load())
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWithOutput(&buf, "info", "json")
	require.NoError(t, err)

	require.NoError(t, NewLogNotifier(logger).Notify(context.Background(), Notification{
		ID: "n-1", Title: "Touching face", Body: "hand on face", Confidence: 0.9,
	}))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "n-1", entry["notification_id"])
	assert.Equal(t, "warning", entry["level"])
}

func TestMessages(t *testing.T) {
	tests := []struct {
		lang  string
		title string
		body  string
	}{
		{"en", "Touching face", "A hand is touching the face (85% confidence)"},
		{"vi", "Bé đang chạm tay vào mặt", "Bé đang chạm tay vào mặt (độ tin cậy 85%)"},
		{"vi-VN", "Bé đang chạm tay vào mặt", "Bé đang chạm tay vào mặt (độ tin cậy 85%)"},
		{"de", "Touching face", "A hand is touching the face (85% confidence)"},
		{"not a tag", "Touching face", "A hand is touching the face (85% confidence)"},
	}

	for _, tc := range tests {
		t.Run(tc.lang, func(t *testing.T) {
			m := NewMessages(tc.lang)
			assert.Equal(t, tc.title, m.Title())
			assert.Equal(t, tc.body, m.Body(0.85))
		})
	}
}
