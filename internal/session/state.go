package session

import "github.com/kozaktomas/face-touch/internal/classifier"

// State is a snapshot of the session as shown to the user. Button availability
// is derived from the phase instead of being stored separately.
type State struct {
	SessionID  string             `json:"session_id"`
	Phase      Phase              `json:"phase"`
	Message    string             `json:"message"`
	Touched    bool               `json:"touched"`
	Progress   float64            `json:"progress"` // fraction of the current burst, 0..1
	Loading    bool               `json:"loading"`  // camera and model are being opened
	Training   bool               `json:"training"`
	Running    bool               `json:"running"`
	Examples   int                `json:"examples"`
	LastResult *classifier.Result `json:"last_result,omitempty"`
}

func (s State) idle() bool {
	return !s.Loading && !s.Training && !s.Running
}

// CanTrainNotTouching reports whether the first training burst may start.
func (s State) CanTrainNotTouching() bool {
	return s.Phase == PhaseTrainNotTouch && s.idle()
}

// CanTrainTouching reports whether the second training burst may start.
func (s State) CanTrainTouching() bool {
	return s.Phase == PhaseTrainTouch && s.idle()
}

// CanRun reports whether the detection loop may start.
func (s State) CanRun() bool {
	return s.Phase == PhaseRunning && s.idle()
}
