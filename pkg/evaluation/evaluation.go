// Package evaluation scores a recorded session against its ground-truth
// labels: detections are matched to labeled punches within a tolerance
// window, yielding precision/recall/F1 and a session report.
package evaluation

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
)

// Session file names written by the recorder.
const (
	detectionsFilename = "detections.jsonl"
	labelsFilename     = "labels.json"
)

// punchLabel is the ground-truth marker value that counts as a punch.
const punchLabel = "punch"

// Event is one punch event, either a detection or a ground-truth label.
// Timestamps are seconds since session start.
type Event struct {
	Timestamp  float64
	Confidence float64
	Source     string // "detection" or "label"
}

// Match pairs a ground-truth event with its closest detection. Detection is
// nil for a miss (false negative).
type Match struct {
	GroundTruth Event
	Detection   *Event
	TimeDiff    float64 // detection minus ground truth, seconds
}

// Tally is the confusion-count summary of a matching pass.
type Tally struct {
	TruePositives  int
	FalsePositives int
	FalseNegatives int
}

// Metrics are the derived accuracy scores.
type Metrics struct {
	Precision float64
	Recall    float64
	F1        float64
}

// LoadDetections reads the punch detections from a session directory,
// sorted by timestamp. A session with no detections file yields an empty
// slice: the recorder only creates it when something was detected.
func LoadDetections(sessionDir string) ([]Event, error) {
	path := filepath.Join(sessionDir, detectionsFilename)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("evaluation: open detections: %w", err)
	}
	defer f.Close()

	var events []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec struct {
			Timestamp  float64 `json:"timestamp"`
			Type       string  `json:"type"`
			Confidence float64 `json:"confidence"`
		}
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("evaluation: parse detections: %w", err)
		}
		if rec.Type != punchLabel {
			continue
		}
		events = append(events, Event{
			Timestamp:  rec.Timestamp,
			Confidence: rec.Confidence,
			Source:     "detection",
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("evaluation: read detections: %w", err)
	}

	sortByTime(events)
	return events, nil
}

// LoadGroundTruth reads labels.json and keeps the punch markers, sorted by
// timestamp.
func LoadGroundTruth(sessionDir string) ([]Event, error) {
	path := filepath.Join(sessionDir, labelsFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("evaluation: read labels: %w", err)
	}

	var labels []struct {
		Timestamp float64 `json:"timestamp"`
		Label     string  `json:"label"`
	}
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("evaluation: parse labels: %w", err)
	}

	var events []Event
	for _, l := range labels {
		if l.Label != punchLabel {
			continue
		}
		events = append(events, Event{Timestamp: l.Timestamp, Source: "label"})
	}

	sortByTime(events)
	return events, nil
}

// MatchEvents pairs each ground-truth event with the closest unused
// detection within the window. offset is added to every ground-truth
// timestamp before matching, compensating a systematic clock skew between
// the labeling phone and the host. Each detection matches at most once;
// leftovers are false positives.
func MatchEvents(detections, groundTruth []Event, window, offset float64) ([]Match, []Event, Tally) {
	used := make([]bool, len(detections))
	matches := make([]Match, 0, len(groundTruth))

	var tally Tally
	for _, gt := range groundTruth {
		gt.Timestamp += offset

		bestIdx := -1
		var bestDiff float64
		for i, det := range detections {
			if used[i] {
				continue
			}
			diff := det.Timestamp - gt.Timestamp
			if math.Abs(diff) > window {
				continue
			}
			if bestIdx < 0 || math.Abs(diff) < math.Abs(bestDiff) {
				bestIdx = i
				bestDiff = diff
			}
		}

		if bestIdx < 0 {
			tally.FalseNegatives++
			matches = append(matches, Match{GroundTruth: gt})
			continue
		}

		used[bestIdx] = true
		tally.TruePositives++
		det := detections[bestIdx]
		matches = append(matches, Match{
			GroundTruth: gt,
			Detection:   &det,
			TimeDiff:    bestDiff,
		})
	}

	var unmatched []Event
	for i, det := range detections {
		if !used[i] {
			unmatched = append(unmatched, det)
		}
	}
	tally.FalsePositives = len(unmatched)

	return matches, unmatched, tally
}

// ComputeMetrics derives precision, recall and F1 from a tally. Empty
// denominators yield zero, not NaN.
func ComputeMetrics(t Tally) Metrics {
	var m Metrics
	if t.TruePositives+t.FalsePositives > 0 {
		m.Precision = float64(t.TruePositives) / float64(t.TruePositives+t.FalsePositives)
	}
	if t.TruePositives+t.FalseNegatives > 0 {
		m.Recall = float64(t.TruePositives) / float64(t.TruePositives+t.FalseNegatives)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

// MeanTimeDiff averages the detection-minus-label offset across the
// successful matches. Returns false when nothing matched.
func MeanTimeDiff(matches []Match) (float64, bool) {
	var sum float64
	var n int
	for _, m := range matches {
		if m.Detection == nil {
			continue
		}
		sum += m.TimeDiff
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func sortByTime(events []Event) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})
}
