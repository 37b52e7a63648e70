package alert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// CommandPlayer plays the alert by running an external command, e.g.
// "aplay assets/eh.wav". The sound is finished when the process exits.
type CommandPlayer struct {
	name string
	args []string
	log  logrus.FieldLogger
}

// NewCommandPlayer creates a player running name with args.
func NewCommandPlayer(name string, args []string, log logrus.FieldLogger) *CommandPlayer {
	return &CommandPlayer{name: name, args: args, log: log}
}

// Play implements Player. The process is not tied to ctx: a started sound
// always plays to the end so that finished is reported.
func (p *CommandPlayer) Play(_ context.Context, finished func()) error {
	cmd := exec.Command(p.name, p.args...) //nolint:gosec // command is from trusted config
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.name, err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			p.log.WithError(err).WithField("command", p.name).Warn("alert sound command failed")
		}
		finished()
	}()
	return nil
}

// ErrNoListener is returned by BrowserPlayer.Play when no browser is
// listening for the alert.
var ErrNoListener = errors.New("no browser listening for alerts")

// BrowserPlayer delegates playback to the browser. The session announces the
// alert to the browser, which reports back through Finished once its audio
// element ends.
type BrowserPlayer struct {
	attached func() bool

	mu      sync.Mutex
	pending func()
}

// NewBrowserPlayer creates a browser-side player. attached reports whether a
// browser currently receives session events; nil means always.
func NewBrowserPlayer(attached func() bool) *BrowserPlayer {
	return &BrowserPlayer{attached: attached}
}

// Play implements Player. Without a listening browser nobody could report the
// end of the sound, so Play fails and the gate stays armed.
func (p *BrowserPlayer) Play(_ context.Context, finished func()) error {
	if p.attached != nil && !p.attached() {
		return ErrNoListener
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = finished
	return nil
}

// Finished reports the end of the browser's sound. It returns false when no
// sound was pending.
func (p *BrowserPlayer) Finished() bool {
	p.mu.Lock()
	f := p.pending
	p.pending = nil
	p.mu.Unlock()

	if f == nil {
		return false
	}
	f()
	return true
}

// BellPlayer rings the terminal bell and treats the sound as lasting hold.
type BellPlayer struct {
	out  io.Writer
	hold time.Duration
}

// NewBellPlayer creates a bell player writing to out.
func NewBellPlayer(out io.Writer, hold time.Duration) *BellPlayer {
	return &BellPlayer{out: out, hold: hold}
}

// Play implements Player.
func (p *BellPlayer) Play(_ context.Context, finished func()) error {
	if _, err := io.WriteString(p.out, "\a"); err != nil {
		return fmt.Errorf("ring bell: %w", err)
	}
	time.AfterFunc(p.hold, finished)
	return nil
}
