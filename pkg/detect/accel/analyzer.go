// Package accel implements punch detection from a handheld phone
// accelerometer: gravity-compensated magnitude scoring over a bounded sample
// history fed by the websocket ingestion server.
package accel

import (
	"math"

	"github.com/teslashibe/go-punch/pkg/detect"
)

// Gravity is the standard gravitational constant in m/s², subtracted from the
// raw magnitude to isolate voluntary motion from the gravity bias.
const Gravity = 9.81

// Sample is one raw accelerometer reading in m/s² per axis.
type Sample struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Timestamp float64 `json:"timestamp"` // unix seconds, client clock
}

// Valid rejects samples with non-finite axis values. Packets missing fields
// decode to zeros and are still scoreable, so only NaN/Inf are malformed.
func (s Sample) Valid() bool {
	for _, v := range []float64{s.X, s.Y, s.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MotionAnalyzer scores accelerometer samples. It is a pure function of its
// thresholds and carries no state.
type MotionAnalyzer struct {
	// Threshold is the minimum post-gravity motion (m/s²) that registers
	// any score at all.
	Threshold float64
	// ScoringMax is the motion value (m/s²) mapped to a score of 1.0.
	ScoringMax float64
	// ConfidenceCutoff is the score above which the result is confident.
	ConfidenceCutoff float64
}

// Analyze scores a single sample. The returned metrics expose the raw
// magnitude, the gravity-compensated motion, the axis values, and the
// threshold used.
func (a MotionAnalyzer) Analyze(s Sample) (float64, bool, *detect.Metrics) {
	magnitude := math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
	motion := math.Abs(magnitude - Gravity)

	score := 0.0
	if motion > a.Threshold {
		score = math.Min(motion/a.ScoringMax, 1.0)
	}
	confident := score > a.ConfidenceCutoff

	metrics := detect.NewMetrics()
	metrics.Set("magnitude", magnitude)
	metrics.Set("motion", motion)
	metrics.Set("x", s.X)
	metrics.Set("y", s.Y)
	metrics.Set("z", s.Z)
	metrics.Set("threshold", a.Threshold)

	return score, confident, metrics
}
