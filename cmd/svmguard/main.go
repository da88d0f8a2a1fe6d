// Command svmguard trains one-class anomaly detectors and scores data
// against them.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rkaram/svmguard/internal/config"
	"github.com/rkaram/svmguard/pkg/detectors"
	"github.com/rkaram/svmguard/pkg/detectors/iforest"
	"github.com/rkaram/svmguard/pkg/detectors/ocsvm"
)

var (
	cfgFile string
	cfg     *config.Config
)

func main() {
	root := &cobra.Command{
		Use:           "svmguard",
		Short:         "One-class SVM anomaly detection toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return err
			}
			setupLogging(cfg.Logging)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file")

	root.AddCommand(
		newDemoCmd(),
		newTrainCmd(),
		newDetectCmd(),
		newEvalCmd(),
	)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func setupLogging(lc config.LoggingConfig) {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if lc.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// newDetector builds the configured detector. algo overrides the
// configured algorithm when non-empty.
func newDetector(dc config.DetectorConfig, algo string) (detectors.StreamDetector, error) {
	if algo == "" {
		algo = dc.Algorithm
	}

	switch algo {
	case "ocsvm":
		return ocsvm.New(
			ocsvm.WithNu(dc.Nu),
			ocsvm.WithGamma(dc.Gamma),
			ocsvm.WithFourierFeatures(dc.FourierFeatures),
			ocsvm.WithEpochs(dc.Epochs),
			ocsvm.WithContamination(dc.Contamination),
			ocsvm.WithSeed(dc.Seed),
		), nil
	case "iforest":
		return iforest.New(
			iforest.WithTrees(dc.Trees),
			iforest.WithSampleSize(dc.SampleSize),
			iforest.WithContamination(dc.Contamination),
			iforest.WithSeed(dc.Seed),
		), nil
	default:
		return nil, fmt.Errorf("unknown detector algorithm %q", algo)
	}
}

// loadDetector restores a saved model of the given algorithm.
func loadDetector(dc config.DetectorConfig, algo, path string) (detectors.StreamDetector, error) {
	d, err := newDetector(dc, algo)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	if err := d.Load(raw); err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return d, nil
}
