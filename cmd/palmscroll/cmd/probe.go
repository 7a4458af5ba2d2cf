package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ayusman/palmscroll/internal/classifier"
	"github.com/ayusman/palmscroll/internal/config"
	"github.com/ayusman/palmscroll/internal/detector"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Load the classifier model and report its outputs.",
	Long: `Loads the configured keypoint classifier, runs the three built-in
reference hands through it and prints the class each one lands in. Use it
to check which outputs mean open palm and fist before setting
--open-class and --fist-class.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}
		if err := config.Validate(cfg); err != nil {
			return err
		}

		model, err := classifier.Open(cfg.Model.Path, cfg.Model.Classes)
		if err != nil {
			return err
		}
		defer model.Close()

		printf(cmd, "model:   %s\nclasses: %d\n", model.Path(), model.Classes())

		for _, ref := range []struct {
			name string
			hand detector.HandLandmarks
		}{
			{"open palm", detector.OpenPalmLandmarks()},
			{"fist", detector.FistLandmarks()},
			{"pointing", detector.PointingLandmarks()},
		} {
			class, err := model.Classify(ref.hand.Normalize())
			if err != nil {
				return err
			}
			printf(cmd, "%-10s -> %d\n", ref.name, class)
		}

		return nil
	},
}
