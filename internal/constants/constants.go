// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Session constants
const (
	// DefaultBurstSize is the number of samples captured per training burst
	DefaultBurstSize = 50

	// DefaultTouchConfidence is the minimum (exclusive) confidence of the touching
	// label required to raise an alert
	DefaultTouchConfidence = 0.8

	// DefaultNeighbors is the k used for nearest-neighbour voting
	DefaultNeighbors = 3
)

// Neighbour index constants
const (
	// HNSWMaxNeighbors is the M parameter of the HNSW graph
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the size of the candidate list during HNSW search
	HNSWEfSearch = 64
)

// Frame constants
const (
	// DefaultInputSize is the square input size expected by the embedding model
	DefaultInputSize = 224

	// JPEGQuality is the quality used when re-encoding frames
	JPEGQuality = 85
)
