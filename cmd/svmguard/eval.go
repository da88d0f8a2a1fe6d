package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rkaram/svmguard/pkg/eval"
	"github.com/rkaram/svmguard/pkg/io/csv"
)

func newEvalCmd() *cobra.Command {
	var (
		input    string
		noHeader bool
		model    string
		algo     string
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score a labeled CSV file and report evaluation metrics",
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

			reader, err := csv.NewReader(input, csv.WithHeader(!noHeader), csv.WithLabelColumn())
			if err != nil {
				return err
			}
			defer reader.Close()

			set, err := reader.ReadLabeled()
			if err != nil {
				return err
			}

			scores, err := detector.Predict(set.X)
			if err != nil {
				return err
			}

			result, err := eval.Evaluate(scores, set.AnomalyFlags(), detector.Threshold())
			if err != nil {
				return err
			}

			fmt.Println(result.Summary())
			result.Matrix.Render(os.Stdout)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "labeled CSV file (trailing label column, 1/-1)")
	cmd.Flags().BoolVar(&noHeader, "no-header", false, "CSV has no header row")
	cmd.Flags().StringVarP(&model, "model", "m", "", "saved model path")
	cmd.Flags().StringVar(&algo, "algo", "", "detector algorithm (overrides config)")

	return cmd
}
