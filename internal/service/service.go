// Package service assembles palmscroll from its configuration and runs it
// until the context is cancelled or the user quits.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/palmscroll/internal/app"
	"github.com/ayusman/palmscroll/internal/capture"
	"github.com/ayusman/palmscroll/internal/classifier"
	"github.com/ayusman/palmscroll/internal/config"
	"github.com/ayusman/palmscroll/internal/detector"
	"github.com/ayusman/palmscroll/internal/logger"
	"github.com/ayusman/palmscroll/internal/overlay"
	"github.com/ayusman/palmscroll/internal/plugin"
	"github.com/ayusman/palmscroll/internal/scroll"
	"github.com/ayusman/palmscroll/internal/server"
	"github.com/ayusman/palmscroll/internal/store"
	"github.com/ayusman/palmscroll/internal/tray"
)

// WindowTitle is the title of the local preview window.
const WindowTitle = "palmscroll"

// Options carries settings that are not part of the config file.
type Options struct {
	// StaticDir is served at / by the HTTP server when set.
	StaticDir string
}

// Run validates cfg, builds every component and runs the frame loop. A
// model that cannot be loaded is fatal before the camera is touched. Run
// must be called from the main goroutine when the preview window or the
// tray is enabled.
func Run(ctx context.Context, cfg *config.Config, opts Options) error {
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := logger.ParseLogLevel(cfg.LogLevel)
	logger.SetLevel(level)

	if cfg.Tray && cfg.Preview {
		logger.Warnf(ctx, "preview window disabled: the tray owns the main thread")
		cfg.Preview = false
	}

	model, err := classifier.Open(cfg.Model.Path, cfg.Model.Classes)
	if err != nil {
		return err
	}
	defer model.Close()

	logger.InfoKV(ctx, "model loaded", "path", model.Path(), "classes", model.Classes())

	det, err := detector.NewMediaPipeDetector(cfg.DetectorConfig())
	if err != nil {
		return fmt.Errorf("hand detector: %w", err)
	}
	defer det.Close()

	scroller, err := NewScroller(cfg.Dispatch)
	if err != nil {
		return err
	}

	journal, err := OpenJournal(cfg.Journal.Path)
	if err != nil {
		return err
	}
	if journal != nil {
		defer journal.Close()
	}

	appConfig := app.Config{
		Camera: capture.NewCamera(capture.Config{
			Device: cfg.Camera.Device,
			Width:  cfg.Camera.Width,
			Height: cfg.Camera.Height,
			FPS:    cfg.Camera.FPS,
			Mirror: cfg.Camera.Mirror,
		}),
		Detector:   det,
		Classifier: model,
		Scroller:   scroller,
		Debounce:   cfg.DebounceConfig(),
		Journal:    journal,
		ModelPath:  cfg.Model.Path,
		Dispatch:   cfg.Dispatch.Mode,
	}

	var (
		hub    *server.StatusHub
		stream *server.FrameStream
	)
	if cfg.Server.Addr != "" {
		hub = server.NewStatusHub()
		stream = server.NewFrameStream()
		appConfig.Observers = append(appConfig.Observers, hub)
		appConfig.Frames = stream
	}

	var menu *tray.Tray
	if cfg.Tray {
		menu = tray.New()
		appConfig.Observers = append(appConfig.Observers, menu)
	}

	if cfg.Preview {
		window := overlay.NewWindow(WindowTitle)
		defer window.Close()
		appConfig.Viewer = window
	}

	loop, err := app.New(appConfig)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Server.Addr != "" {
		srv := server.New(server.Config{
			StaticDir: opts.StaticDir,
			Store:     journal,
			Hub:       hub,
			Stream:    stream,
			Controls:  loop,
		})
		g.Go(func() error {
			return srv.Run(gctx, cfg.Server.Addr)
		})
	}

	if menu == nil {
		// The preview window, when open, must be driven from this goroutine.
		err := loop.Run(gctx)
		cancel()
		return errors.Join(err, g.Wait())
	}

	menu.OnToggle(func(enabled bool) {
		loop.SetEnabled(enabled)
		logger.InfoKV(ctx, "loop state changed from tray", "enabled", enabled)
	})
	menu.OnQuit(cancel)
	if open := dashboardAction(ctx, cfg, opts); open != nil {
		menu.OnDashboard(open)
	}

	// The loop runs off the main goroutine so systray can own it.
	g.Go(func() error {
		defer menu.Quit()
		defer cancel()
		return loop.Run(gctx)
	})
	menu.Run()
	cancel()

	return g.Wait()
}

// NewScroller builds the dispatcher for cfg.Mode.
func NewScroller(cfg config.DispatchConfig) (scroll.Scroller, error) {
	switch cfg.Mode {
	case config.DispatchRobot:
		return scroll.NewRobotScroller(), nil
	case config.DispatchLog:
		return scroll.LogScroller{}, nil
	case config.DispatchPlugin:
		manager := plugin.NewManager(PluginDir(cfg.PluginDir))
		if err := manager.Discover(); err != nil {
			return nil, fmt.Errorf("discover plugins: %w", err)
		}
		return scroll.NewPluginScroller(manager, plugin.NewExecutor(cfg.Timeout), cfg.Plugin)
	default:
		return nil, fmt.Errorf("unknown dispatch mode %q", cfg.Mode)
	}
}

// PluginDir returns dir, or the first plugins directory found next to the
// working directory or under ~/.palmscroll.
func PluginDir(dir string) string {
	if dir != "" {
		return dir
	}

	for _, p := range []string{"plugins", "../plugins"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "plugins"
	}
	return filepath.Join(home, ".palmscroll", "plugins")
}

// OpenJournal opens the session journal at path, creating its directory.
// An empty path disables the journal and returns a nil store.
func OpenJournal(path string) (*store.Store, error) {
	if path == "" {
		return nil, nil
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	s, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return s, nil
}

// DefaultJournalPath is ~/.palmscroll/palmscroll.db.
func DefaultJournalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("cannot locate home directory for the journal")
	}
	return filepath.Join(home, ".palmscroll", "palmscroll.db"), nil
}
