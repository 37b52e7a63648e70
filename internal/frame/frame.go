// Package frame provides the live frame sources the session reads from.
//
// A source keeps only the latest frame. Readers never consume or queue frames:
// Current returns whatever was captured last, blocking only until the very first
// frame arrives.
package frame

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDeviceUnavailable is returned by Open when no capture device can be reached
	// or access to it was denied.
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrInvalidFrame is returned when pushed data is not a decodable image.
	ErrInvalidFrame = errors.New("invalid frame")
)

// Frame is one captured image.
type Frame struct {
	Seq        uint64    `json:"seq"`
	Data       []byte    `json:"-"` // encoded JPEG/PNG
	CapturedAt time.Time `json:"captured_at"`
}

// Source is a continuously updated frame buffer backed by a capture device.
type Source interface {
	// Open acquires the device. The context bounds the lifetime of any
	// background capture started by the source.
	Open(ctx context.Context) error
	// Current returns the latest frame, waiting for the first one if needed.
	Current(ctx context.Context) (Frame, error)
}
