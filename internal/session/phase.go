// Package session drives one face touch session: two training bursts followed
// by the detection loop.
package session

import "errors"

var (
	// ErrWrongPhase is returned when a trigger does not belong to the current phase.
	ErrWrongPhase = errors.New("trigger not allowed in current phase")

	// ErrBusy is returned when initialization or a training burst is already in progress.
	ErrBusy = errors.New("session busy")

	// ErrAlreadyRunning is returned when a second detection loop is requested.
	ErrAlreadyRunning = errors.New("detection loop already running")
)

// Phase is a stage of the session lifecycle. Phases only move forward.
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseTrainNotTouch
	PhaseTrainTouch
	PhaseRunning
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseTrainNotTouch:
		return "train_not_touch"
	case PhaseTrainTouch:
		return "train_touch"
	case PhaseRunning:
		return "running"
	default:
		return "unknown"
	}
}

// MarshalText lets Phase render as its name in JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// instructions shown to the user when a phase is entered.
var instructions = map[Phase]string{
	PhaseInitializing:  "Loading camera and model...",
	PhaseTrainNotTouch: "Step 1: look at the camera without touching your face, then start Train 1.",
	PhaseTrainTouch:    "Train 1 is complete. Step 2: touch your face with your hand, then start Train 2.",
	PhaseRunning:       "Train 2 is complete. Start detection when ready.",
}
