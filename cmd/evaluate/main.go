// Command evaluate scores a recorded session against its ground-truth labels
// and writes a markdown report with precision, recall and tuning suggestions.
//
// Usage:
//
//	evaluate -session recordings/session_20250601_120000_abcd1234
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/teslashibe/go-punch/internal/log"
	"github.com/teslashibe/go-punch/pkg/evaluation"
)

func main() {
	session := flag.String("session", "", "Path to a recorded session directory (required)")
	window := flag.Float64("window", 0.3, "Match tolerance in seconds between a label and a detection")
	offset := flag.Float64("offset", 0, "Seconds to add to label timestamps before matching")
	output := flag.String("output", "", "Write the report to this file instead of stdout")
	flag.Parse()

	log.Init("info")

	if *session == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*session, *window, *offset, *output); err != nil {
		log.Error("evaluation failed", "session", *session, "error", err)
		os.Exit(1)
	}
}

func run(session string, window, offset float64, output string) error {
	detections, err := evaluation.LoadDetections(session)
	if err != nil {
		return err
	}
	groundTruth, err := evaluation.LoadGroundTruth(session)
	if err != nil {
		return fmt.Errorf("load ground truth: %w (was the session recorded with labels?)", err)
	}
	if len(groundTruth) == 0 {
		return fmt.Errorf("session %s has no punch labels to score against", session)
	}

	matches, unmatched, tally := evaluation.MatchEvents(detections, groundTruth, window, offset)
	metrics := evaluation.ComputeMetrics(tally)

	report := &evaluation.Report{
		SessionName: filepath.Base(session),
		Window:      window,
		Offset:      offset,
		Matches:     matches,
		Unmatched:   unmatched,
		Tally:       tally,
		Metrics:     metrics,
	}

	log.Info("session scored",
		"labels", len(groundTruth),
		"detections", len(detections),
		"precision", fmt.Sprintf("%.2f", metrics.Precision),
		"recall", fmt.Sprintf("%.2f", metrics.Recall),
		"f1", fmt.Sprintf("%.3f", metrics.F1))

	markdown := report.Markdown()
	if output == "" {
		fmt.Print(markdown)
		return nil
	}
	if err := os.WriteFile(output, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	log.Info("report written", "path", output)
	return nil
}
