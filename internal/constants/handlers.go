// Package constants provides shared constants used across the codebase.
package constants

import "time"

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// Frame upload constants
const (
	// MaxFrameBytes is the largest frame body accepted by the frames endpoint (8 MB)
	MaxFrameBytes = 8 << 20
)

// Journal constants
const (
	// DefaultJournalLimit is the default number of journal entries to return
	DefaultJournalLimit = 50

	// MaxJournalLimit caps the journal limit query parameter
	MaxJournalLimit = 1000
)

// Background work constants
const (
	// NotifyWorkers caps notification deliveries in flight
	NotifyWorkers = 2

	// JournalWorkers caps journal writes in flight
	JournalWorkers = 4

	// BackgroundTaskTimeout bounds one notification delivery or journal write
	BackgroundTaskTimeout = 30 * time.Second
)
