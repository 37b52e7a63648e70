package session

import (
	"sync"

	"github.com/kozaktomas/face-touch/internal/constants"
)

// Event types sent to subscribers.
const (
	EventState     = "state"
	EventProgress  = "progress"
	EventDetection = "detection"
	EventAlert     = "alert"
	EventError     = "error"
)

// Event is one session event.
type Event struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Progress is the payload of a progress event.
type Progress struct {
	Label string `json:"label"`
	Done  int    `json:"done"`
	Total int    `json:"total"`
}

// Detection is the payload of detection and alert events.
type Detection struct {
	Label       string             `json:"label"`
	Confidences map[string]float64 `json:"confidences"`
	Confidence  float64            `json:"confidence"` // touching confidence
	Touched     bool               `json:"touched"`
	Fired       bool               `json:"fired"`
}

// Broadcaster fans events out to listeners. Slow listeners miss events
// rather than blocking the session.
type Broadcaster struct {
	listeners []chan Event
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *Broadcaster) AddListener() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes and closes an event listener.
func (b *Broadcaster) RemoveListener(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners. It returns how many listeners
// missed the event because their buffer was full.
func (b *Broadcaster) SendEvent(event Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	dropped := 0
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			dropped++
		}
	}
	return dropped
}

// Listeners returns the number of attached listeners.
func (b *Broadcaster) Listeners() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}
