// Package eval scores detector output against ground truth labels.
//
// The positive class is the anomaly: a true positive is an anomaly the
// detector flagged. Inputs are plain slices; pair scores with the
// boolean anomaly flags from dataset.Set.AnomalyFlags.
package eval

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// ConfusionMatrix counts thresholded predictions against ground truth.
type ConfusionMatrix struct {
	TruePositives  int
	FalsePositives int
	TrueNegatives  int
	FalseNegatives int
}

// Confusion builds a confusion matrix from predicted and true anomaly
// flags.
func Confusion(predicted, truth []bool) (ConfusionMatrix, error) {
	if len(predicted) == 0 {
		return ConfusionMatrix{}, errors.New("no predictions")
	}
	if len(predicted) != len(truth) {
		return ConfusionMatrix{}, fmt.Errorf("got %d predictions for %d labels", len(predicted), len(truth))
	}

	var cm ConfusionMatrix
	for i, p := range predicted {
		switch {
		case p && truth[i]:
			cm.TruePositives++
		case p && !truth[i]:
			cm.FalsePositives++
		case !p && truth[i]:
			cm.FalseNegatives++
		default:
			cm.TrueNegatives++
		}
	}
	return cm, nil
}

// Total returns the number of classified samples.
func (cm ConfusionMatrix) Total() int {
	return cm.TruePositives + cm.FalsePositives + cm.TrueNegatives + cm.FalseNegatives
}

// Accuracy is the fraction of correct classifications.
func (cm ConfusionMatrix) Accuracy() float64 {
	total := cm.Total()
	if total == 0 {
		return 0
	}
	return float64(cm.TruePositives+cm.TrueNegatives) / float64(total)
}

// Precision is the fraction of flagged samples that are anomalies.
// Returns 0 rather than NaN when nothing was flagged.
func (cm ConfusionMatrix) Precision() float64 {
	flagged := cm.TruePositives + cm.FalsePositives
	if flagged == 0 {
		return 0
	}
	return float64(cm.TruePositives) / float64(flagged)
}

// Recall is the fraction of anomalies that were flagged. Returns 0
// rather than NaN when the truth contains no anomalies.
func (cm ConfusionMatrix) Recall() float64 {
	anomalies := cm.TruePositives + cm.FalseNegatives
	if anomalies == 0 {
		return 0
	}
	return float64(cm.TruePositives) / float64(anomalies)
}

// F1 is the harmonic mean of precision and recall.
func (cm ConfusionMatrix) F1() float64 {
	p, r := cm.Precision(), cm.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// Result is a complete evaluation of detector scores at a threshold.
type Result struct {
	Matrix    ConfusionMatrix
	Threshold float64
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	AUC       float64
}

// Summary renders the one-line evaluation report.
func (r Result) Summary() string {
	return fmt.Sprintf(
		"accuracy=%.3f precision=%.3f recall=%.3f f1=%.3f auc=%.3f threshold=%.3f n=%d",
		r.Accuracy, r.Precision, r.Recall, r.F1, r.AUC, r.Threshold, r.Matrix.Total(),
	)
}

// Evaluate thresholds the scores, builds the confusion matrix, and
// computes the summary metrics. AUC is threshold-free and is left at 0
// when the truth contains a single class.
func Evaluate(scores []float64, truth []bool, threshold float64) (Result, error) {
	if len(scores) == 0 {
		return Result{}, errors.New("no scores")
	}
	if len(scores) != len(truth) {
		return Result{}, fmt.Errorf("got %d scores for %d labels", len(scores), len(truth))
	}

	predicted := make([]bool, len(scores))
	for i, score := range scores {
		predicted[i] = score >= threshold
	}

	cm, err := Confusion(predicted, truth)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Matrix:    cm,
		Threshold: threshold,
		Accuracy:  cm.Accuracy(),
		Precision: cm.Precision(),
		Recall:    cm.Recall(),
		F1:        cm.F1(),
	}

	if auc, err := AUC(scores, truth); err == nil {
		res.AUC = auc
	}

	return res, nil
}

// AUC computes the area under the ROC curve, treating higher scores as
// more anomalous. Both classes must be present.
func AUC(scores []float64, truth []bool) (float64, error) {
	if len(scores) == 0 {
		return 0, errors.New("no scores")
	}
	if len(scores) != len(truth) {
		return 0, fmt.Errorf("got %d scores for %d labels", len(scores), len(truth))
	}

	var positives int
	for _, t := range truth {
		if t {
			positives++
		}
	}
	if positives == 0 || positives == len(truth) {
		return 0, errors.New("need both classes for AUC")
	}

	y := make([]float64, len(scores))
	copy(y, scores)
	classes := make([]bool, len(truth))
	copy(classes, truth)

	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)

	return integrate.Trapezoidal(fpr, tpr), nil
}
