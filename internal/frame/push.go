package frame

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"
	"time"
)

// DefaultOpenTimeout bounds how long Open waits for the first pushed frame.
const DefaultOpenTimeout = 30 * time.Second

// PushSource receives frames pushed by a remote client, typically a browser
// uploading webcam snapshots. The device lives on the client: it counts as
// available once the first frame arrives, and the client can report that it
// has none.
type PushSource struct {
	buf         *Buffer
	openTimeout time.Duration

	mu      sync.Mutex
	failure string
	failed  chan struct{} // closed while failure is set
}

// NewPushSource creates a push source with an empty buffer. Open gives up after
// openTimeout without a frame; zero means DefaultOpenTimeout.
func NewPushSource(openTimeout time.Duration) *PushSource {
	if openTimeout <= 0 {
		openTimeout = DefaultOpenTimeout
	}
	return &PushSource{
		buf:         NewBuffer(),
		openTimeout: openTimeout,
		failed:      make(chan struct{}),
	}
}

// Open waits for the first pushed frame. It fails with ErrDeviceUnavailable
// when the client reported a camera failure or no frame arrived in time.
func (s *PushSource) Open(ctx context.Context) error {
	reason, failed := s.failureState()
	if reason != "" {
		return fmt.Errorf("%w: %s", ErrDeviceUnavailable, reason)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.openTimeout)
	defer cancel()
	go func() {
		select {
		case <-failed:
			cancel()
		case <-waitCtx.Done():
		}
	}()

	if _, err := s.buf.Latest(waitCtx); err == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if reason, _ := s.failureState(); reason != "" {
		return fmt.Errorf("%w: %s", ErrDeviceUnavailable, reason)
	}
	return fmt.Errorf("%w: no frame received within %s", ErrDeviceUnavailable, s.openTimeout)
}

// Current implements Source.
func (s *PushSource) Current(ctx context.Context) (Frame, error) {
	return s.buf.Latest(ctx)
}

// Push validates data as an image and makes it the latest frame. A frame
// clears any reported failure.
func (s *PushSource) Push(data []byte) (Frame, error) {
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	f := s.buf.Publish(data)

	s.mu.Lock()
	if s.failure != "" {
		s.failure = ""
		s.failed = make(chan struct{})
	}
	s.mu.Unlock()
	return f, nil
}

// Fail records that the client cannot capture, e.g. camera permission was
// denied. A waiting Open returns immediately.
func (s *PushSource) Fail(reason string) {
	if reason == "" {
		reason = "camera failed on the client"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure == "" {
		close(s.failed)
	}
	s.failure = reason
}

func (s *PushSource) failureState() (string, chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure, s.failed
}

// Stats reports published and overwritten frame counts.
func (s *PushSource) Stats() (published, overwrites uint64) {
	return s.buf.Stats()
}
