package evaluation

import (
	"fmt"
	"math"
	"strings"
)

// Report describes one completed comparison.
type Report struct {
	SessionName string
	Window      float64
	Offset      float64

	Matches   []Match
	Unmatched []Event
	Tally     Tally
	Metrics   Metrics
}

// systematicSkew is the mean time difference past which the report suggests
// re-running with an offset.
const systematicSkew = 0.05

// Markdown renders the comparison as a markdown session report.
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Ground Truth Comparison Report\n\n")
	fmt.Fprintf(&b, "**Session**: `%s`\n", r.SessionName)
	fmt.Fprintf(&b, "**Match Window**: ±%gs\n", r.Window)
	fmt.Fprintf(&b, "**Time Offset**: %+.3fs\n\n", r.Offset)

	t, m := r.Tally, r.Metrics
	fmt.Fprintf(&b, "## Summary Metrics\n\n")
	fmt.Fprintf(&b, "- **Precision**: %.2f%% (%d/%d detections were correct)\n",
		m.Precision*100, t.TruePositives, t.TruePositives+t.FalsePositives)
	fmt.Fprintf(&b, "- **Recall**: %.2f%% (%d/%d labeled punches were detected)\n",
		m.Recall*100, t.TruePositives, t.TruePositives+t.FalseNegatives)
	fmt.Fprintf(&b, "- **F1 Score**: %.3f\n\n", m.F1)
	fmt.Fprintf(&b, "- **True Positives (TP)**: %d\n", t.TruePositives)
	fmt.Fprintf(&b, "- **False Positives (FP)**: %d\n", t.FalsePositives)
	fmt.Fprintf(&b, "- **False Negatives (FN)**: %d\n\n", t.FalseNegatives)

	r.writeMatched(&b)
	r.writeMisses(&b)
	r.writeExtras(&b)
	r.writeSuggestions(&b)

	return b.String()
}

func (r *Report) writeMatched(b *strings.Builder) {
	matched := 0
	for _, m := range r.Matches {
		if m.Detection != nil {
			matched++
		}
	}
	if matched == 0 {
		return
	}

	fmt.Fprintf(b, "## Matched Events\n\n")
	fmt.Fprintf(b, "| Label Time | Detection Time | Time Diff | Confidence |\n")
	fmt.Fprintf(b, "|------------|----------------|-----------|------------|\n")
	for _, m := range r.Matches {
		if m.Detection == nil {
			continue
		}
		fmt.Fprintf(b, "| %6.3fs | %6.3fs | %+.3fs | %.3f |\n",
			m.GroundTruth.Timestamp, m.Detection.Timestamp, m.TimeDiff, m.Detection.Confidence)
	}
	if mean, ok := MeanTimeDiff(r.Matches); ok {
		fmt.Fprintf(b, "\n**Average Time Difference**: %+.3fs\n", mean)
	}
	fmt.Fprintf(b, "\n")
}

func (r *Report) writeMisses(b *strings.Builder) {
	misses := 0
	for _, m := range r.Matches {
		if m.Detection == nil {
			misses++
		}
	}
	if misses == 0 {
		return
	}

	fmt.Fprintf(b, "## False Negatives (Missed Detections)\n\n")
	fmt.Fprintf(b, "Labeled punches that were NOT detected:\n\n")
	fmt.Fprintf(b, "| Time |\n|------|\n")
	for _, m := range r.Matches {
		if m.Detection == nil {
			fmt.Fprintf(b, "| %6.3fs |\n", m.GroundTruth.Timestamp)
		}
	}
	fmt.Fprintf(b, "\n")
}

func (r *Report) writeExtras(b *strings.Builder) {
	if len(r.Unmatched) == 0 {
		return
	}

	fmt.Fprintf(b, "## False Positives (Extra Detections)\n\n")
	fmt.Fprintf(b, "Detections that did NOT match any labeled punch:\n\n")
	fmt.Fprintf(b, "| Time | Confidence |\n|------|------------|\n")
	for _, det := range r.Unmatched {
		fmt.Fprintf(b, "| %6.3fs | %.3f |\n", det.Timestamp, det.Confidence)
	}
	fmt.Fprintf(b, "\n")
}

func (r *Report) writeSuggestions(b *strings.Builder) {
	fmt.Fprintf(b, "## Tuning Suggestions\n\n")

	fn := r.Tally.FalseNegatives
	fp := r.Tally.FalsePositives
	switch {
	case fn > 0 && fp == 0:
		fmt.Fprintf(b, "- **High False Negatives, Low False Positives**: "+
			"Detection threshold may be too strict. Consider lowering thresholds.\n")
	case fp > 0 && fn == 0:
		fmt.Fprintf(b, "- **High False Positives, Low False Negatives**: "+
			"Detection may be too sensitive. Consider raising thresholds.\n")
	case fn > 0 && fp > 0:
		if mean, ok := MeanTimeDiff(r.Matches); ok && math.Abs(mean) > systematicSkew {
			fmt.Fprintf(b, "- **Systematic Time Offset**: Average difference is %+.3fs. "+
				"Try re-running with -offset %.3f\n", mean, -mean)
		}
		fmt.Fprintf(b, "- **Both FP and FN present**: Review detection parameters "+
			"and ground truth accuracy.\n")
	default:
		fmt.Fprintf(b, "- **Perfect Detection**: All labeled punches matched "+
			"with no false positives!\n")
	}
}
