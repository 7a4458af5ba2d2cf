package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ayusman/palmscroll/internal/config"
	"github.com/ayusman/palmscroll/internal/logger"
	"github.com/ayusman/palmscroll/internal/service"
)

// Version is the application version.
const Version = "0.1.0"

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// staticDir is served at / by the HTTP server.
	staticDir string

	// overrides are bound to flags and applied only when set.
	overrides = config.Default()

	rootCmd = &cobra.Command{
		Use:   "palmscroll",
		Short: "Scroll with your hand in front of a webcam.",
		Long: `palmscroll watches the webcam, classifies the pose of one hand and
scrolls the focused window: an open palm held steady scrolls up, a fist
scrolls down. A pose has to be held for a number of consecutive frames
before it fires, and actions are rate limited.

Settings come from palmscroll.yaml (or --config), PALMSCROLL_* environment
variables and the flags below, in that order.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}

			return service.Run(cmd.Context(), cfg, service.Options{StaticDir: staticDir})
		},
	}
)

// Execute runs the palmscroll CLI and exits with non-zero status on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Errorf(ctx, "%v", err)
		stop()
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (default "+config.DefaultConfigFilename+")")
	rootCmd.PersistentFlags().StringVar(&overrides.LogLevel, "log-level", overrides.LogLevel, "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVarP(&overrides.Model.Path, "model", "m", overrides.Model.Path, "keypoint classifier model")
	rootCmd.PersistentFlags().IntVar(&overrides.Model.Classes, "classes", overrides.Model.Classes, "expected number of model outputs, 0 accepts any")
	rootCmd.PersistentFlags().StringVar(&overrides.Journal.Path, "journal", overrides.Journal.Path, "session journal database, empty disables it")

	f := rootCmd.Flags()
	f.IntVar(&overrides.Camera.Device, "device", overrides.Camera.Device, "camera device index")
	f.IntVar(&overrides.Camera.Width, "width", overrides.Camera.Width, "requested capture width")
	f.IntVar(&overrides.Camera.Height, "height", overrides.Camera.Height, "requested capture height")
	f.BoolVar(&overrides.Camera.Mirror, "mirror", overrides.Camera.Mirror, "flip frames horizontally")
	f.IntVar(&overrides.Debounce.StableFrames, "stable-frames", overrides.Debounce.StableFrames, "frames a pose must be held before it fires")
	f.DurationVar(&overrides.Debounce.Interval, "interval", overrides.Debounce.Interval, "minimum time between two actions")
	f.IntVar(&overrides.Debounce.Magnitude, "magnitude", overrides.Debounce.Magnitude, "scroll amount per action")
	f.IntVar(&overrides.Debounce.OpenClass, "open-class", overrides.Debounce.OpenClass, "classifier output meaning open palm")
	f.IntVar(&overrides.Debounce.FistClass, "fist-class", overrides.Debounce.FistClass, "classifier output meaning fist")
	f.StringVar(&overrides.Dispatch.Mode, "dispatch", overrides.Dispatch.Mode, "robot, plugin or log")
	f.StringVar(&overrides.Dispatch.Plugin, "plugin", overrides.Dispatch.Plugin, "plugin name for plugin dispatch")
	f.StringVar(&overrides.Dispatch.PluginDir, "plugin-dir", overrides.Dispatch.PluginDir, "directory holding plugins")
	f.StringVar(&overrides.Server.Addr, "addr", overrides.Server.Addr, "status server address, empty disables it")
	f.StringVar(&staticDir, "static", "", "directory served at / by the status server")
	f.BoolVar(&overrides.Preview, "preview", overrides.Preview, "show the preview window")
	f.BoolVar(&overrides.Tray, "tray", overrides.Tray, "show the system tray menu")

	rootCmd.AddCommand(probeCmd, journalCmd, initCmd)
}

// loadConfig loads the layered configuration and applies the flags the
// user actually set.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	applyOverrides(cfg, flags)

	return cfg, nil
}

func applyOverrides(cfg *config.Config, flags *pflag.FlagSet) {
	set := map[string]func(){
		"log-level":     func() { cfg.LogLevel = overrides.LogLevel },
		"model":         func() { cfg.Model.Path = overrides.Model.Path },
		"classes":       func() { cfg.Model.Classes = overrides.Model.Classes },
		"journal":       func() { cfg.Journal.Path = overrides.Journal.Path },
		"device":        func() { cfg.Camera.Device = overrides.Camera.Device },
		"width":         func() { cfg.Camera.Width = overrides.Camera.Width },
		"height":        func() { cfg.Camera.Height = overrides.Camera.Height },
		"mirror":        func() { cfg.Camera.Mirror = overrides.Camera.Mirror },
		"stable-frames": func() { cfg.Debounce.StableFrames = overrides.Debounce.StableFrames },
		"interval":      func() { cfg.Debounce.Interval = overrides.Debounce.Interval },
		"magnitude":     func() { cfg.Debounce.Magnitude = overrides.Debounce.Magnitude },
		"open-class":    func() { cfg.Debounce.OpenClass = overrides.Debounce.OpenClass },
		"fist-class":    func() { cfg.Debounce.FistClass = overrides.Debounce.FistClass },
		"dispatch":      func() { cfg.Dispatch.Mode = overrides.Dispatch.Mode },
		"plugin":        func() { cfg.Dispatch.Plugin = overrides.Dispatch.Plugin },
		"plugin-dir":    func() { cfg.Dispatch.PluginDir = overrides.Dispatch.PluginDir },
		"addr":          func() { cfg.Server.Addr = overrides.Server.Addr },
		"preview":       func() { cfg.Preview = overrides.Preview },
		"tray":          func() { cfg.Tray = overrides.Tray },
	}

	flags.Visit(func(f *pflag.Flag) {
		if apply, ok := set[f.Name]; ok {
			apply()
		}
	})
}

// journalPath returns the configured journal, falling back to the default
// location so read-only commands work without configuration.
func journalPath(flags *pflag.FlagSet) (string, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return "", err
	}
	if cfg.Journal.Path != "" {
		return filepath.Clean(cfg.Journal.Path), nil
	}
	return service.DefaultJournalPath()
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05.000")
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
