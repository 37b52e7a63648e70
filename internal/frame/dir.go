package frame

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DirSource replays the images of a directory in name order, looping forever.
// Useful for demos and for recording a session once and replaying it.
type DirSource struct {
	dir    string
	fps    int
	buf    *Buffer
	frames [][]byte
}

// NewDirSource creates a source over dir publishing fps frames per second.
func NewDirSource(dir string, fps int) *DirSource {
	if fps <= 0 {
		fps = 10
	}
	return &DirSource{dir: dir, fps: fps, buf: NewBuffer()}
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".bmp", ".webp":
		return true
	}
	return false
}

// Open loads every image of the directory and starts the replay loop.
// The first image is published before Open returns.
func (s *DirSource) Open(ctx context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && isImageFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return fmt.Errorf("%w: no images in %s", ErrDeviceUnavailable, s.dir)
	}

	s.frames = make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.dir, name)) //nolint:gosec // dir is from trusted config
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		s.frames = append(s.frames, data)
	}

	s.buf.Publish(s.frames[0])
	go s.replay(ctx)
	return nil
}

func (s *DirSource) replay(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(s.fps))
	defer ticker.Stop()

	next := 1
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.buf.Publish(s.frames[next%len(s.frames)])
			next++
		}
	}
}

// Current implements Source.
func (s *DirSource) Current(ctx context.Context) (Frame, error) {
	return s.buf.Latest(ctx)
}
