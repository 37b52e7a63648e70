package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-touch/internal/classifier"
	"github.com/kozaktomas/face-touch/internal/session"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// bellHold is how long a terminal bell counts as playing.
const bellHold = time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run a session in the terminal",
	Long: `Run a face touch session in the terminal, reading frames from a directory
of images or an IP camera snapshot URL. You are prompted before each training
burst; detection runs until Ctrl+C.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("dir", "", "Directory of images to replay as the camera")
	watchCmd.Flags().String("snapshot-url", "", "IP camera snapshot URL to poll")
	watchCmd.Flags().Int("fps", 0, "Frames per second to read (overrides CAMERA_FPS)")
	watchCmd.Flags().Bool("yes", false, "Start each training burst without waiting for Enter")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if dir := mustGetString(cmd, "dir"); dir != "" {
		cfg.Camera.Source = "dir"
		cfg.Camera.Dir = dir
	}
	if url := mustGetString(cmd, "snapshot-url"); url != "" {
		cfg.Camera.Source = "snapshot"
		cfg.Camera.SnapshotURL = url
	}
	if fps := mustGetInt(cmd, "fps"); fps > 0 {
		cfg.Camera.FPS = fps
	}
	if cfg.Camera.Source == "push" {
		return errors.New("watch needs a camera: use --dir or --snapshot-url")
	}
	noPrompt := mustGetBool(cmd, "yes")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := buildSession(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer c.Close()

	events := c.ctrl.Subscribe()
	defer c.ctrl.Unsubscribe(events)
	go printEvents(events)

	fmt.Println("Loading camera and model...")
	if err := c.ctrl.Initialize(ctx); err != nil {
		return err
	}

	in := bufio.NewReader(os.Stdin)
	for _, label := range []classifier.Label{classifier.NotTouching, classifier.Touching} {
		fmt.Println(c.ctrl.State().Message)
		if !noPrompt {
			fmt.Print("Press Enter to start training...")
			if err := waitEnter(ctx, in); err != nil {
				return err
			}
		}
		if err := c.ctrl.Train(ctx, label); err != nil {
			return err
		}
	}

	fmt.Println("Detecting face touches, press Ctrl+C to stop")
	if err := c.ctrl.Run(ctx); err != nil {
		return err
	}

	fmt.Printf("\nAlerts fired: %d\n", c.gate.Fired())
	if c.journal != nil {
		summaryCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if s, err := c.journal.Summary(summaryCtx, c.sessionID); err == nil {
			fmt.Printf("Touches recorded: %d\n", s.Touches)
		}
	}
	return nil
}

// waitEnter blocks until a line is read from in or ctx is done. A closed
// stdin counts as Enter.
func waitEnter(ctx context.Context, in *bufio.Reader) error {
	done := make(chan error, 1)
	go func() {
		_, err := in.ReadString('\n')
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading stdin: %w", err)
		}
		return nil
	}
}

// printEvents renders burst progress as a progress bar and prints touch
// transitions and alerts.
func printEvents(events <-chan session.Event) {
	var bar *progressbar.ProgressBar
	touched := false

	for ev := range events {
		switch ev.Type {
		case session.EventProgress:
			p, ok := ev.Data.(session.Progress)
			if !ok {
				continue
			}
			if p.Done == 1 || bar == nil {
				bar = progressbar.NewOptions(p.Total,
					progressbar.OptionSetDescription("Training "+p.Label),
					progressbar.OptionShowCount(),
					progressbar.OptionShowIts(),
					progressbar.OptionSetItsString("frames"),
					progressbar.OptionShowElapsedTimeOnFinish(),
					progressbar.OptionFullWidth(),
				)
			}
			bar.Set(p.Done)
			if p.Done == p.Total {
				fmt.Println()
			}
		case session.EventDetection:
			d, ok := ev.Data.(session.Detection)
			if !ok || d.Touched == touched {
				continue
			}
			touched = d.Touched
			if touched {
				fmt.Printf("[%s] touching (%.0f%%)\n", time.Now().Format(time.TimeOnly), d.Confidence*100)
			} else {
				fmt.Printf("[%s] hands off\n", time.Now().Format(time.TimeOnly))
			}
		case session.EventAlert:
			fmt.Println("Touching face!")
		case session.EventError:
			fmt.Fprintln(os.Stderr, ev.Message)
		}
	}
}
