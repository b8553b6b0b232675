// Package recording captures evaluation sessions: detection events, raw
// sensor samples and ground-truth labels, written per session under a
// recordings directory for offline scoring.
package recording

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-punch/internal/config"
	"github.com/teslashibe/go-punch/internal/log"
	"github.com/teslashibe/go-punch/pkg/detect"
	"github.com/teslashibe/go-punch/pkg/events"
)

const (
	metadataFilename   = "metadata.json"
	detectionsFilename = "detections.jsonl"
	sensorDataFilename = "sensor_data.jsonl"
	labelsFilename     = "labels.json"

	timestampFormat = "20060102_150405"
)

// ErrAlreadyRecording is returned by Start while a session is open.
var ErrAlreadyRecording = errors.New("recording: session already in progress")

// DetectionRecord is one detection event in detections.jsonl. Timestamps
// are seconds since session start.
type DetectionRecord struct {
	Timestamp  float64         `json:"timestamp"`
	Type       string          `json:"type"`
	Confidence float64         `json:"confidence"`
	Points     int             `json:"points,omitempty"`
	Combo      int             `json:"combo,omitempty"`
	Metrics    *detect.Metrics `json:"strategy_scores,omitempty"`
}

// SensorRecord is one accelerometer sample in sensor_data.jsonl.
type SensorRecord struct {
	Timestamp float64 `json:"timestamp"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
}

// LabelRecord is one ground-truth marker in labels.json.
type LabelRecord struct {
	Timestamp float64 `json:"timestamp"`
	Label     string  `json:"label"`
}

// Metadata is written to metadata.json when the session closes.
type Metadata struct {
	SessionID       string   `json:"session_id"`
	StartTime       string   `json:"start_time"`
	DurationSeconds float64  `json:"duration_seconds"`
	Strategies      []string `json:"strategies"`
	DetectionConfig any      `json:"detection_config,omitempty"`
}

// Recorder buffers session records and flushes them to JSONL files. All
// methods are safe for concurrent use; writes happen on the caller's
// goroutine when a buffer fills.
type Recorder struct {
	mu sync.Mutex

	cfg config.RecordingConfig

	recording  bool
	sessionDir string
	meta       Metadata
	start      time.Time

	detections []DetectionRecord
	samples    []SensorRecord
	labels     []LabelRecord

	now func() time.Time
}

// New creates a recorder. Nothing is written until Start.
func New(cfg config.RecordingConfig) *Recorder {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100
	}
	return &Recorder{cfg: cfg, now: time.Now}
}

// RegisterHooks subscribes the recorder to punch detections. Low priority
// so scoring hooks observe the event first.
func (r *Recorder) RegisterHooks(bus *events.Bus) {
	bus.Register(events.EventPunchDetected, r.handlePunch, 1)
}

// Start opens a new session directory and begins buffering.
// detectionConfig is stored verbatim in the session metadata.
func (r *Recorder) Start(detectionConfig any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return ErrAlreadyRecording
	}

	now := r.now()
	sessionID := fmt.Sprintf("session_%s_%s", now.Format(timestampFormat), uuid.NewString()[:8])
	dir := filepath.Join(r.cfg.Dir, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("recording: create session dir: %w", err)
	}

	r.recording = true
	r.sessionDir = dir
	r.start = now
	r.meta = Metadata{
		SessionID:       sessionID,
		StartTime:       now.Format(time.RFC3339),
		DetectionConfig: detectionConfig,
	}
	r.detections = r.detections[:0]
	r.samples = r.samples[:0]
	r.labels = make([]LabelRecord, 0)

	log.Info("recording started", "session", sessionID)
	return nil
}

// Stop flushes everything, writes metadata and labels, and returns the
// session directory. Returns an empty path when no session was open.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return "", nil
	}

	if err := r.flushDetectionsLocked(); err != nil {
		return "", err
	}
	if err := r.flushSamplesLocked(); err != nil {
		return "", err
	}

	r.meta.DurationSeconds = r.now().Sub(r.start).Seconds()
	if err := writeJSON(filepath.Join(r.sessionDir, metadataFilename), r.meta); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(r.sessionDir, labelsFilename), r.labels); err != nil {
		return "", err
	}

	dir := r.sessionDir
	log.Info("recording stopped",
		"session", r.meta.SessionID,
		"duration_seconds", r.meta.DurationSeconds,
		"labels", len(r.labels))

	r.recording = false
	r.sessionDir = ""
	return dir, nil
}

// IsRecording reports whether a session is open.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Elapsed returns the open session's duration, zero otherwise.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return 0
	}
	return r.now().Sub(r.start)
}

// RecordSample buffers one accelerometer sample. Dropped when no session
// is open.
func (r *Recorder) RecordSample(x, y, z float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return
	}
	r.samples = append(r.samples, SensorRecord{
		Timestamp: r.elapsedLocked(),
		X:         x, Y: y, Z: z,
	})
	if len(r.samples) >= r.cfg.BufferSize {
		if err := r.flushSamplesLocked(); err != nil {
			log.Error("sensor flush failed", "error", err)
		}
	}
}

// RecordLabel buffers one ground-truth marker.
func (r *Recorder) RecordLabel(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return
	}
	r.labels = append(r.labels, LabelRecord{
		Timestamp: r.elapsedLocked(),
		Label:     label,
	})
}

// RecordDetection buffers one detection event and tracks which strategies
// contributed to the session.
func (r *Recorder) RecordDetection(score float64, points, combo int, metrics *detect.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return
	}

	if metrics != nil {
		for _, key := range metrics.Keys() {
			if name, ok := strategyFromKey(key); ok {
				r.trackStrategyLocked(name)
			}
		}
	}

	r.detections = append(r.detections, DetectionRecord{
		Timestamp:  r.elapsedLocked(),
		Type:       "punch",
		Confidence: score,
		Points:     points,
		Combo:      combo,
		Metrics:    metrics,
	})
	if len(r.detections) >= r.cfg.BufferSize {
		if err := r.flushDetectionsLocked(); err != nil {
			log.Error("detection flush failed", "error", err)
		}
	}
}

// handlePunch receives (detect.Decision, game snapshot points, combo) from
// the punch_detected trigger.
func (r *Recorder) handlePunch(payload ...any) (any, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	decision, ok := payload[0].(detect.Decision)
	if !ok {
		return nil, nil
	}

	var points, combo int
	if len(payload) > 1 {
		points, _ = payload[1].(int)
	}
	if len(payload) > 2 {
		combo, _ = payload[2].(int)
	}

	r.RecordDetection(decision.Score, points, combo, decision.Metrics)
	return nil, nil
}

func (r *Recorder) elapsedLocked() float64 {
	return r.now().Sub(r.start).Seconds()
}

func (r *Recorder) trackStrategyLocked(name string) {
	for _, s := range r.meta.Strategies {
		if s == name {
			return
		}
	}
	r.meta.Strategies = append(r.meta.Strategies, name)
}

func (r *Recorder) flushDetectionsLocked() error {
	if len(r.detections) == 0 {
		return nil
	}
	if err := appendJSONL(filepath.Join(r.sessionDir, detectionsFilename), r.detections); err != nil {
		return err
	}
	r.detections = r.detections[:0]
	return nil
}

func (r *Recorder) flushSamplesLocked() error {
	if len(r.samples) == 0 {
		return nil
	}
	if err := appendJSONL(filepath.Join(r.sessionDir, sensorDataFilename), r.samples); err != nil {
		return err
	}
	r.samples = r.samples[:0]
	return nil
}

// strategyFromKey extracts the strategy name from a prefixed fusion metric
// key such as "accelerometer.magnitude".
func strategyFromKey(key string) (string, bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			return key[:i], true
		}
	}
	return "", false
}

func appendJSONL[T any](path string, records []T) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("recording: open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("recording: write %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("recording: marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("recording: write %s: %w", filepath.Base(path), err)
	}
	return nil
}
