// Package embedding maps camera frames to feature vectors using a pretrained
// image model served over HTTP.
package embedding

import (
	"context"
	"errors"

	"github.com/kozaktomas/face-touch/internal/frame"
)

var (
	// ErrModelLoad is returned by Load when the model cannot be reached or reports an error.
	ErrModelLoad = errors.New("embedding model load failed")

	// ErrNotLoaded is returned by Embed when Load has not succeeded yet.
	ErrNotLoaded = errors.New("embedding model not loaded")
)

// Embedding is a fixed-length feature vector of one frame.
type Embedding []float32

// Extractor turns frames into embeddings. Load must succeed once before Embed is used.
type Extractor interface {
	Load(ctx context.Context) error
	Embed(ctx context.Context, f frame.Frame) (Embedding, error)
}
