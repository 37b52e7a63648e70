package frame

import (
	"context"
	"sync"
	"time"
)

// Buffer holds the most recent frame. Publish overwrites, Latest reads in place.
type Buffer struct {
	mu         sync.Mutex
	cond       *sync.Cond
	frame      Frame
	has        bool
	read       bool
	seq        uint64
	overwrites uint64
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	b := &Buffer{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Publish stores data as the latest frame and wakes waiting readers.
// Replacing a frame nobody read is counted as an overwrite.
func (b *Buffer) Publish(data []byte) Frame {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.has && !b.read {
		b.overwrites++
	}
	b.seq++
	b.frame = Frame{Seq: b.seq, Data: data, CapturedAt: time.Now()}
	b.has = true
	b.read = false
	b.cond.Broadcast()
	return b.frame
}

// Latest returns the newest frame. It blocks until the first frame is published
// or ctx is done; afterwards it never blocks.
func (b *Buffer) Latest(ctx context.Context) (Frame, error) {
	stop := context.AfterFunc(ctx, func() {
		b.mu.Lock()
		b.cond.Broadcast()
		b.mu.Unlock()
	})
	defer stop()

	b.mu.Lock()
	defer b.mu.Unlock()
	for !b.has {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		b.cond.Wait()
	}
	b.read = true
	return b.frame, nil
}

// Stats returns the number of published frames and how many were overwritten unread.
func (b *Buffer) Stats() (published, overwrites uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq, b.overwrites
}
