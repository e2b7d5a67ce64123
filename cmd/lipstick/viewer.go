package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ayusman/lipstick/internal/app"
	"github.com/ayusman/lipstick/internal/capture"
	"github.com/ayusman/lipstick/internal/config"
	"github.com/ayusman/lipstick/internal/log"
	"github.com/ayusman/lipstick/internal/server"
	"github.com/ayusman/lipstick/internal/shade"
	"github.com/ayusman/lipstick/internal/store"
	"github.com/ayusman/lipstick/internal/surface"
)

// viewer holds what serve and tray share.
type viewer struct {
	cfg    config.Config
	store  *store.Store
	app    *app.App
	frames *surface.Buffer
	server *server.Server
}

func newViewer(cfg config.Config) (*viewer, error) {
	dbPath, err := resolveDBPath(cfg.Server.DBPath)
	if err != nil {
		return nil, err
	}
	st, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if n, err := store.SeedShades(st, shade.DefaultCatalog()); err != nil {
		st.Close()
		return nil, fmt.Errorf("seed shades: %w", err)
	} else if n > 0 {
		log.Info("seeded shade catalog", "shades", n)
	}

	rt := &viewer{
		cfg:    cfg,
		store:  st,
		app:    app.New(app.Config{Config: cfg, Store: st}),
		frames: surface.NewBuffer(),
	}

	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		log.Info("serving static files", "dir", staticDir)
	}
	rt.server = server.New(server.Config{
		StaticDir: staticDir,
		App:       rt.app,
		Frames:    rt.frames,
		Source:    rt.newCamera,
	})
	return rt, nil
}

func (rt *viewer) newCamera() capture.Camera {
	return capture.NewCamera(rt.cfg.Camera)
}

// start begins processing from the configured camera.
func (rt *viewer) start() error {
	return rt.app.StartProcessing(rt.newCamera(), rt.frames)
}

// serve runs the HTTP viewer until ctx is cancelled.
func (rt *viewer) serve(ctx context.Context) error {
	log.Info("starting server", "addr", rt.cfg.Server.Addr)
	return rt.server.Run(ctx, rt.cfg.Server.Addr)
}

func (rt *viewer) close() {
	if err := rt.app.Close(); err != nil {
		log.Warn("failed to close app", "err", err)
	}
	rt.frames.Clear()
	if err := rt.store.Close(); err != nil {
		log.Warn("failed to close store", "err", err)
	}
}

// resolveDBPath returns path, or ~/.lipstick/lipstick.db when it is empty.
func resolveDBPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(homeDir, ".lipstick")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return filepath.Join(dir, "lipstick.db"), nil
}

// findWebDir looks for the viewer's static files in "web", "../web",
// "../../web" and ~/.lipstick/web.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	homeWebDir := filepath.Join(homeDir, ".lipstick", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}
	return ""
}
