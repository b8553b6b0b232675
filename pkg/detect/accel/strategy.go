package accel

import (
	"sync"
	"time"

	"github.com/teslashibe/go-punch/internal/log"
	"github.com/teslashibe/go-punch/pkg/detect"
	"github.com/teslashibe/go-punch/pkg/events"
)

// ingestQueueSize bounds the handoff channel between the websocket goroutine
// and the per-tick drain. One producer, one consumer.
const ingestQueueSize = 256

// connectedWindow is how long after the last sample the sensor still counts
// as connected for fusion purposes.
const connectedWindow = 2 * time.Second

// Config tunes the accelerometer strategy.
type Config struct {
	Analyzer   MotionAnalyzer
	BufferSize int           // bounded sample history length
	Freshness  time.Duration // how long to hold a result with no new sample
}

// Strategy scores phone accelerometer samples. Raw packets arrive on a
// background websocket goroutine through Ingest; the sensor_drain event is
// the single point that moves them into the history and recomputes the
// result, so the history needs no locking against the producer.
type Strategy struct {
	cfg   Config
	queue chan Sample

	mu        sync.RWMutex
	lifecycle bool // Setup ran and Cleanup has not
	result    detect.Result
	lastSample time.Time

	// history is touched only by the drain handler.
	history []Sample

	now func() time.Time
}

// NewStrategy creates an accelerometer strategy.
func NewStrategy(cfg Config) *Strategy {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 30
	}
	return &Strategy{
		cfg:    cfg,
		queue:  make(chan Sample, ingestQueueSize),
		result: detect.ZeroResult(),
		now:    time.Now,
	}
}

// Name identifies the strategy in fusion metrics.
func (s *Strategy) Name() string { return "accelerometer" }

// RegisterHooks subscribes to lifecycle and drain events.
func (s *Strategy) RegisterHooks(bus *events.Bus) {
	bus.Register(events.EventSetup, s.handleSetup, 10)
	bus.Register(events.EventSensorDrain, s.handleDrain, 10)
	bus.Register(events.EventDrawHUD, s.handleDrawHUD, 10)
	bus.Register(events.EventCleanup, s.handleCleanup, 10)
}

// Setup transitions the strategy to its running state.
func (s *Strategy) Setup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lifecycle {
		return nil
	}
	s.history = make([]Sample, 0, s.cfg.BufferSize)
	s.result = detect.ZeroResult()
	s.lifecycle = true
	log.Info("accelerometer strategy ready", "buffer", s.cfg.BufferSize)
	return nil
}

// Cleanup releases buffered state. Idempotent.
func (s *Strategy) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle {
		return
	}
	s.lifecycle = false
	s.result = detect.ZeroResult()
	s.lastSample = time.Time{}
	s.history = nil

	// Drop anything still queued so a later Setup starts clean.
	for {
		select {
		case <-s.queue:
		default:
			log.Info("accelerometer strategy stopped")
			return
		}
	}
}

// Active reports whether the sensor currently has meaningful data: the
// lifecycle has run and a sample arrived recently.
func (s *Strategy) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.lifecycle {
		return false
	}
	return !s.lastSample.IsZero() && s.now().Sub(s.lastSample) <= connectedWindow
}

// CurrentResult returns the most recent analysis.
func (s *Strategy) CurrentResult() detect.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// Ingest hands a raw sample from the websocket goroutine to the strategy.
// Malformed samples are dropped silently; a full queue drops the newest
// sample rather than blocking the network reader.
func (s *Strategy) Ingest(sample Sample) {
	if !sample.Valid() {
		log.Debug("dropping malformed accelerometer sample")
		return
	}
	select {
	case s.queue <- sample:
	default:
		log.Debug("accelerometer queue full, dropping sample")
	}
}

// LatestSample returns the newest buffered sample for HUD display.
func (s *Strategy) LatestSample() (Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.history) == 0 {
		return Sample{}, false
	}
	return s.history[len(s.history)-1], true
}

// handleSetup adapts Setup to the bus so a failure surfaces in the trigger
// results without crashing dispatch.
func (s *Strategy) handleSetup(payload ...any) (any, error) {
	return nil, s.Setup()
}

func (s *Strategy) handleCleanup(payload ...any) (any, error) {
	s.Cleanup()
	return nil, nil
}

// handleDrain moves queued samples into the bounded history and recomputes
// the result from the newest one. This is the only place the history mutates.
func (s *Strategy) handleDrain(payload ...any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle {
		return nil, nil
	}

	var latest *Sample
	for draining := true; draining; {
		select {
		case sample := <-s.queue:
			s.history = append(s.history, sample)
			if len(s.history) > s.cfg.BufferSize {
				s.history = s.history[len(s.history)-s.cfg.BufferSize:]
			}
			latest = &sample
		default:
			draining = false
		}
	}

	now := s.now()
	if latest != nil {
		score, confident, metrics := s.cfg.Analyzer.Analyze(*latest)
		s.result = detect.Result{
			Score:     score,
			Confident: confident,
			Metrics:   metrics,
			Timestamp: unixSeconds(now),
		}
		s.lastSample = now
		return *latest, nil
	}

	// No sample this tick: hold the previous result inside the freshness
	// window, decay to zero after it.
	if !s.lastSample.IsZero() && now.Sub(s.lastSample) <= s.cfg.Freshness {
		held := s.result
		held.Timestamp = unixSeconds(now)
		s.result = held
	} else if s.result.Score != 0 || s.result.Confident {
		s.result = detect.ZeroResult()
	}
	return nil, nil
}

// handleDrawHUD contributes the sensor line to the chained HUD context.
func (s *Strategy) handleDrawHUD(payload ...any) (any, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	ctx, ok := payload[0].(events.Context)
	if !ok {
		return nil, nil
	}

	status := "Sensor: Disconnected"
	if s.Active() {
		status = "Sensor: Connected"
	}

	lines, _ := ctx["lines"].([]string)
	lines = append(lines, status)

	nextY, _ := ctx["next_y"].(int)
	return events.Context{
		"lines":  lines,
		"next_y": nextY + 30,
	}, nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
