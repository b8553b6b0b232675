package pose

import (
	"sync"
	"time"

	"github.com/teslashibe/go-punch/internal/config"
	"github.com/teslashibe/go-punch/internal/log"
	"github.com/teslashibe/go-punch/pkg/detect"
	"github.com/teslashibe/go-punch/pkg/events"
)

// frameQueueSize bounds the handoff channel from the websocket goroutine.
// Frames arrive at camera rate; only the newest matters per tick.
const frameQueueSize = 8

// visibleWindow is how long after the last landmark-bearing frame the pose
// modality still counts as having meaningful data.
const visibleWindow = 2 * time.Second

// Strategy scores landmark frames from the opaque pose backend. Frames are
// handed off from the network goroutine through IngestFrame; the
// frame_received event drains them and scores the newest one.
type Strategy struct {
	queue chan Frame

	mu         sync.RWMutex
	lifecycle  bool
	analyzer   *Analyzer
	result     detect.Result
	lastSeen   time.Time // last frame that contained a person
	lastOrient Orientation

	cfg             config.PoseConfig
	visualThreshold float64

	now func() time.Time
}

// NewStrategy creates a pose strategy.
func NewStrategy(cfg config.PoseConfig, visualThreshold float64) *Strategy {
	return &Strategy{
		queue:           make(chan Frame, frameQueueSize),
		cfg:             cfg,
		visualThreshold: visualThreshold,
		result:          detect.ZeroResult(),
		now:             time.Now,
	}
}

// Name identifies the strategy in fusion metrics.
func (s *Strategy) Name() string { return "pose" }

// RegisterHooks subscribes to lifecycle and frame events.
func (s *Strategy) RegisterHooks(bus *events.Bus) {
	bus.Register(events.EventSetup, s.handleSetup, 10)
	bus.Register(events.EventFrameReceived, s.handleFrame, 10)
	bus.Register(events.EventDrawHUD, s.handleDrawHUD, 5)
	bus.Register(events.EventCleanup, s.handleCleanup, 10)
}

// Setup builds the analyzer pipeline and transitions to the running state.
func (s *Strategy) Setup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lifecycle {
		return nil
	}
	s.analyzer = NewAnalyzer(s.cfg, s.visualThreshold)
	s.result = detect.ZeroResult()
	s.lastOrient = OrientationUnknown
	s.lifecycle = true
	log.Info("pose strategy ready", "smoothing_frames", s.cfg.SmoothingFrames)
	return nil
}

// Cleanup tears the pipeline down. Idempotent.
func (s *Strategy) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle {
		return
	}
	s.lifecycle = false
	s.analyzer = nil
	s.result = detect.ZeroResult()
	s.lastSeen = time.Time{}
	s.lastOrient = OrientationUnknown

	for {
		select {
		case <-s.queue:
		default:
			log.Info("pose strategy stopped")
			return
		}
	}
}

// Active reports whether landmarks were visible recently.
func (s *Strategy) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.lifecycle {
		return false
	}
	return !s.lastSeen.IsZero() && s.now().Sub(s.lastSeen) <= visibleWindow
}

// CurrentResult returns the most recent analysis.
func (s *Strategy) CurrentResult() detect.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// Orientation returns the last classified facing.
func (s *Strategy) Orientation() Orientation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastOrient
}

// IngestFrame hands a landmark frame from the network goroutine to the
// strategy. A full queue drops the oldest frame: the newest pose always wins.
func (s *Strategy) IngestFrame(f Frame) {
	for {
		select {
		case s.queue <- f:
			return
		default:
			select {
			case <-s.queue:
			default:
			}
		}
	}
}

func (s *Strategy) handleSetup(payload ...any) (any, error) {
	return nil, s.Setup()
}

func (s *Strategy) handleCleanup(payload ...any) (any, error) {
	s.Cleanup()
	return nil, nil
}

// handleFrame drains queued frames and scores the newest one. Skipped older
// frames still feed nothing into the velocity history: smoothing operates on
// scored frames only.
func (s *Strategy) handleFrame(payload ...any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle {
		return nil, nil
	}

	var frame *Frame
	for draining := true; draining; {
		select {
		case f := <-s.queue:
			frame = &f
		default:
			draining = false
		}
	}
	if frame == nil {
		return nil, nil
	}

	analysis := s.analyzer.Analyze(frame)
	s.lastOrient = analysis.Orientation

	now := s.now()
	s.result = detect.Result{
		Score:     analysis.Score,
		Confident: analysis.Confident,
		Metrics:   analysis.Metrics,
		Timestamp: float64(now.UnixNano()) / float64(time.Second),
	}
	if frame.HasPose() {
		s.lastSeen = now
	}
	return analysis, nil
}

// handleDrawHUD contributes the pose line to the chained HUD context.
func (s *Strategy) handleDrawHUD(payload ...any) (any, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	ctx, ok := payload[0].(events.Context)
	if !ok {
		return nil, nil
	}

	line := "Pose: No person"
	if s.Active() {
		line = "Pose: " + s.Orientation().String()
	}

	lines, _ := ctx["lines"].([]string)
	lines = append(lines, line)

	nextY, _ := ctx["next_y"].(int)
	return events.Context{
		"lines":  lines,
		"next_y": nextY + 30,
	}, nil
}
