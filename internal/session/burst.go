package session

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-touch/internal/classifier"
	"github.com/kozaktomas/face-touch/internal/embedding"
	"github.com/kozaktomas/face-touch/internal/frame"
)

// Adder stores labelled examples.
type Adder interface {
	Add(emb embedding.Embedding, label classifier.Label) error
}

// BurstOptions configures a training burst.
type BurstOptions struct {
	Count    int           // samples to collect
	Interval time.Duration // pause between samples
}

// TrainBurst collects opts.Count examples of label: read the current frame,
// embed it, store it, then pause before the next sample. progress, if set, is
// called with (i+1, Count) after every stored sample. Any failure aborts the
// burst; examples stored before it are kept.
func TrainBurst(ctx context.Context, label classifier.Label, src frame.Source, ext embedding.Extractor,
	store Adder, opts BurstOptions, progress func(done, total int)) error {
	if opts.Count <= 0 {
		return fmt.Errorf("burst count must be positive, got %d", opts.Count)
	}

	for i := range opts.Count {
		f, err := src.Current(ctx)
		if err != nil {
			return fmt.Errorf("sample %d/%d: read frame: %w", i+1, opts.Count, err)
		}
		emb, err := ext.Embed(ctx, f)
		if err != nil {
			return fmt.Errorf("sample %d/%d: embed frame: %w", i+1, opts.Count, err)
		}
		if err := store.Add(emb, label); err != nil {
			return fmt.Errorf("sample %d/%d: add example: %w", i+1, opts.Count, err)
		}
		if progress != nil {
			progress(i+1, opts.Count)
		}
		if i < opts.Count-1 {
			if err := sleep(ctx, opts.Interval); err != nil {
				return err
			}
		}
	}
	return nil
}

// sleep pauses for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
