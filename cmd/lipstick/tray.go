package main

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ayusman/lipstick/internal/log"
	"github.com/ayusman/lipstick/internal/tray"
)

var trayCmd = &cobra.Command{
	Use:   "tray",
	Short: "Run the viewer with a system tray menu",
	RunE:  runTray,
}

func init() {
	rootCmd.AddCommand(trayCmd)
}

func runTray(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := newViewer(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := rt.serve(ctx); err != nil {
			log.Error("server failed", "err", err)
		}
	}()

	t := tray.New()
	t.OnProcessing(func(on bool) error {
		if !on {
			rt.app.StopProcessing()
			return nil
		}
		if err := rt.start(); err != nil {
			log.Warn("failed to start processing", "err", err)
			return err
		}
		return nil
	})
	t.OnCompare(rt.app.SetCompareEnabled)
	t.OnViewer(func() {
		if err := openBrowser(viewerURL(cfg.Server.Addr)); err != nil {
			log.Warn("failed to open viewer", "err", err)
		}
	})
	t.OnQuit(cancel)

	reports, unsubscribe := rt.app.Subscribe()
	defer unsubscribe()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case rep := <-reports:
				t.SetStatus(rep)
			}
		}
	}()

	t.Run()
	return nil
}

func viewerURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}
