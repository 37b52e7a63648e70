package frame

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// SnapshotSource polls a still-image URL, as exposed by most IP cameras.
type SnapshotSource struct {
	url    string
	fps    int
	client *http.Client
	buf    *Buffer
	log    logrus.FieldLogger
}

// NewSnapshotSource creates a source polling url fps times per second.
func NewSnapshotSource(url string, fps int, log logrus.FieldLogger) *SnapshotSource {
	if fps <= 0 {
		fps = 10
	}
	return &SnapshotSource{
		url:    url,
		fps:    fps,
		client: &http.Client{Timeout: 5 * time.Second},
		buf:    NewBuffer(),
		log:    log,
	}
}

func (s *SnapshotSource) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("camera returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty snapshot")
	}
	return data, nil
}

// Open fetches the first snapshot synchronously and then keeps polling until ctx is done.
func (s *SnapshotSource) Open(ctx context.Context) error {
	data, err := s.fetch(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	s.buf.Publish(data)
	go s.poll(ctx)
	return nil
}

// poll keeps the last good frame when a fetch fails.
func (s *SnapshotSource) poll(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(s.fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			data, err := s.fetch(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.log.WithError(err).Warn("snapshot fetch failed, keeping previous frame")
				}
				continue
			}
			s.buf.Publish(data)
		}
	}
}

// Current implements Source.
func (s *SnapshotSource) Current(ctx context.Context) (Frame, error) {
	return s.buf.Latest(ctx)
}
