// Package classifier implements the few-shot example store: labelled embeddings
// collected during training and k-nearest-neighbour voting over them.
package classifier

import (
	"errors"
)

var (
	// ErrInsufficientData is returned by Classify when the store is empty or an
	// expected label has no examples yet.
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrDimensionMismatch is returned when an embedding does not match the
	// dimension of the examples already stored.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUnknownLabel is returned when adding an example under a label the
	// store was not created for.
	ErrUnknownLabel = errors.New("unknown label")
)

// Label identifies an example class.
type Label string

// Labels used by the face touch session.
const (
	NotTouching Label = "not_touch"
	Touching    Label = "touched"
)

// Result is the outcome of one classification.
type Result struct {
	Label       Label             `json:"label"`
	Confidences map[Label]float64 `json:"confidences"`
}

// Confidence returns the confidence for label, zero if absent.
func (r Result) Confidence(label Label) float64 {
	return r.Confidences[label]
}
