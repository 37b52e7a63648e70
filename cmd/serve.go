package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-touch/internal/web"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the face-touch web server.
The browser page streams webcam frames to the server, triggers the two
training bursts and detection, and plays the alert sound.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().Bool("auto-run", false, "Start detection as soon as training 2 completes")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if mustGetBool(cmd, "auto-run") {
		cfg.Session.AutoRun = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := buildSession(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer c.Close()

	deps := web.Deps{
		Controller: c.ctrl,
		Gate:       c.gate,
		Push:       c.push,
		Player:     c.browser,
	}
	if c.journal != nil {
		deps.Journal = c.journal
	}
	server := web.NewServer(cfg, deps, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Start)

	g.Go(func() error {
		// A failed start leaves the session initializing; the page can retry.
		if err := c.ctrl.Initialize(server.Context()); err != nil {
			log.WithError(err).Warn("session not initialized")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Println("\nShutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	fmt.Printf("Starting face-touch on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}
