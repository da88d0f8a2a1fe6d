package main

import (
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rkaram/svmguard/pkg/io/csv"
	"github.com/rkaram/svmguard/pkg/io/pcap"
)

func newTrainCmd() *cobra.Command {
	var (
		input     string
		pcapInput bool
		labeled   bool
		noHeader  bool
		algo      string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit a detector on CSV or PCAP data and save the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return errors.New("--input is required")
			}

			data, err := readFeatures(input, pcapInput, labeled, noHeader)
			if err != nil {
				return err
			}
			if len(data) == 0 {
				return errors.New("no training samples")
			}

			detector, err := newDetector(cfg.Detector, algo)
			if err != nil {
				return err
			}

			log.Info().Int("samples", len(data)).Int("features", len(data[0])).Msg("training")
			start := time.Now()
			if err := detector.Fit(data); err != nil {
				return err
			}
			log.Info().
				Dur("elapsed", time.Since(start)).
				Float64("threshold", detector.Threshold()).
				Msg("training complete")

			raw, err := detector.Save()
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, raw, 0o644); err != nil {
				return err
			}
			log.Info().Str("path", output).Int("bytes", len(raw)).Msg("model saved")
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "training data: CSV file, or PCAP with --pcap")
	cmd.Flags().BoolVar(&pcapInput, "pcap", false, "treat input as a packet capture")
	cmd.Flags().BoolVar(&labeled, "labeled", false, "CSV has a trailing label column to drop")
	cmd.Flags().BoolVar(&noHeader, "no-header", false, "CSV has no header row")
	cmd.Flags().StringVar(&algo, "algo", "", "detector algorithm (overrides config)")
	cmd.Flags().StringVarP(&output, "output", "o", "model.bin", "model output path")

	return cmd
}

// readFeatures loads the feature matrix from a CSV or PCAP file.
func readFeatures(input string, pcapInput, labeled, noHeader bool) ([][]float64, error) {
	if pcapInput {
		reader, err := pcap.NewFileReader(input)
		if err != nil {
			return nil, err
		}
		defer reader.Close()
		return reader.Read()
	}

	opts := []csv.Option{csv.WithHeader(!noHeader)}
	if labeled {
		opts = append(opts, csv.WithLabelColumn())
	}
	reader, err := csv.NewReader(input, opts...)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return reader.Read()
}
