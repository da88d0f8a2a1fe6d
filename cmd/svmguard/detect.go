package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	guardio "github.com/rkaram/svmguard/pkg/io"
	"github.com/rkaram/svmguard/pkg/io/csv"
	"github.com/rkaram/svmguard/pkg/io/jsonl"
)

func newDetectCmd() *cobra.Command {
	var (
		input     string
		pcapInput bool
		noHeader  bool
		model     string
		algo      string
		output    string
		format    string
		threshold float64
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Score data against a saved model and write results",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return errors.New("--input is required")
			}
			if model == "" {
				return errors.New("--model is required")
			}

			detector, err := loadDetector(cfg.Detector, algo, model)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("threshold") {
				detector.SetThreshold(threshold)
			}

			data, err := readFeatures(input, pcapInput, false, noHeader)
			if err != nil {
				return err
			}

			scores, err := detector.Predict(data)
			if err != nil {
				return err
			}

			writer, err := newResultWriter(format, output)
			if err != nil {
				return err
			}
			defer writer.Close()

			now := time.Now()
			anomalies := 0
			results := make([]guardio.Result, len(scores))
			for i, score := range scores {
				anomaly := score >= detector.Threshold()
				if anomaly {
					anomalies++
				}
				results[i] = guardio.Result{
					Time:     now,
					Score:    score,
					Anomaly:  anomaly,
					Features: data[i],
					Source:   input,
				}
			}
			if err := writer.WriteAll(results); err != nil {
				return err
			}

			log.Info().
				Int("samples", len(scores)).
				Int("anomalies", anomalies).
				Float64("threshold", detector.Threshold()).
				Str("output", output).
				Msg("detection complete")
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "data to score: CSV file, or PCAP with --pcap")
	cmd.Flags().BoolVar(&pcapInput, "pcap", false, "treat input as a packet capture")
	cmd.Flags().BoolVar(&noHeader, "no-header", false, "CSV has no header row")
	cmd.Flags().StringVarP(&model, "model", "m", "", "saved model path")
	cmd.Flags().StringVar(&algo, "algo", "", "detector algorithm (overrides config)")
	cmd.Flags().StringVarP(&output, "output", "o", "results.jsonl", "results output path")
	cmd.Flags().StringVar(&format, "format", "jsonl", "output format: jsonl or csv")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "override the trained threshold")

	return cmd
}

func newResultWriter(format, output string) (guardio.Writer, error) {
	switch format {
	case "jsonl":
		return jsonl.NewWriter(output)
	case "csv":
		return csv.NewWriter(output)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
