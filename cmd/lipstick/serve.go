package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/lipstick/internal/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the camera pipeline and the HTTP viewer",
	Long: `Start the HTTP viewer. The composited feed is served as MJPEG on
/api/stream and per-frame tracking state on the /api/state websocket.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("no-start", false, "Wait for POST /api/processing/start before opening the camera")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	noStart, _ := cmd.Flags().GetBool("no-start")

	rt, err := newViewer(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	if !noStart {
		if err := rt.start(); err != nil {
			// The viewer still comes up so processing can be retried.
			log.Warn("failed to start processing", "err", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rt.serve(ctx)
}
