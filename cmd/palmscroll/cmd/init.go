package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ayusman/palmscroll/internal/config"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to a YAML file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultConfigFilename
		}

		cfg := config.Default()
		_, err := os.Stat(path)
		switch {
		case err == nil && !forceInit:
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		case err == nil:
			if cfg, err = loadConfig(cmd.Flags()); err != nil {
				return err
			}
		case errors.Is(err, os.ErrNotExist):
			if err := config.ApplyEnv(cfg); err != nil {
				return err
			}
			applyOverrides(cfg, cmd.Flags())
		default:
			return err
		}

		if err := config.Save(path, cfg); err != nil {
			return err
		}

		printf(cmd, "wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite an existing file")
}
