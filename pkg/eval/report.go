package eval

import (
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// Render writes the confusion matrix as a table. Rows are the ground
// truth, columns the predicted class.
func (cm ConfusionMatrix) Render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"", "pred normal", "pred anomaly"})
	table.Append([]string{
		"true normal",
		strconv.Itoa(cm.TrueNegatives),
		strconv.Itoa(cm.FalsePositives),
	})
	table.Append([]string{
		"true anomaly",
		strconv.Itoa(cm.FalseNegatives),
		strconv.Itoa(cm.TruePositives),
	})
	table.Render()
}

// String returns the rendered confusion matrix table.
func (cm ConfusionMatrix) String() string {
	var sb strings.Builder
	cm.Render(&sb)
	return sb.String()
}
