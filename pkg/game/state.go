// Package game keeps the score and combo bookkeeping driven by punch
// detections.
package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/teslashibe/go-punch/internal/config"
	"github.com/teslashibe/go-punch/internal/log"
	"github.com/teslashibe/go-punch/pkg/events"
)

// Snapshot is an immutable view of the game state for broadcasting.
type Snapshot struct {
	Score      int     `json:"score"`
	Combo      int     `json:"combo"`
	TotalHits  int     `json:"total_hits"`
	LastPoints int     `json:"last_points"`
	BestCombo  int     `json:"best_combo"`
	Strength   float64 `json:"strength"`
}

// State tracks the running score. Punches landed within the combo window
// chain into a combo; each combo level past the first adds a flat bonus on
// top of the strength-scaled base points.
type State struct {
	mu sync.Mutex

	cfg config.GameConfig

	score      int
	combo      int
	bestCombo  int
	totalHits  int
	lastPoints int
	lastHit    time.Time
	strength   float64

	now func() time.Time
}

// New creates a game state.
func New(cfg config.GameConfig) *State {
	return &State{
		cfg: cfg,
		now: time.Now,
	}
}

// RegisterHooks subscribes the HUD contribution to the bus.
func (s *State) RegisterHooks(bus *events.Bus) {
	bus.Register(events.EventDrawHUD, s.handleDrawHUD, 1)
}

// RegisterPunch scores one detected punch and returns the updated snapshot.
// Strength is the fused detection score in [0, 1].
func (s *State) RegisterPunch(strength float64) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	window := time.Duration(s.cfg.ComboTimeoutSeconds * float64(time.Second))
	if !s.lastHit.IsZero() && now.Sub(s.lastHit) <= window {
		s.combo++
	} else {
		s.combo = 1
	}
	if s.combo > s.bestCombo {
		s.bestCombo = s.combo
	}

	points := int(strength * float64(s.cfg.BaseScoreMultiplier))
	if s.combo > 1 {
		points += (s.combo - 1) * s.cfg.ComboBonusPoints
	}

	s.score += points
	s.totalHits++
	s.lastPoints = points
	s.lastHit = now
	s.strength = strength

	log.Debug("punch scored", "points", points, "combo", s.combo, "score", s.score)
	return s.snapshotLocked()
}

// Current returns the state with the combo expired if the window has lapsed.
func (s *State) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	window := time.Duration(s.cfg.ComboTimeoutSeconds * float64(time.Second))
	if s.combo > 0 && s.now().Sub(s.lastHit) > window {
		s.combo = 0
	}
	return s.snapshotLocked()
}

// Reset clears all progress.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.score = 0
	s.combo = 0
	s.bestCombo = 0
	s.totalHits = 0
	s.lastPoints = 0
	s.lastHit = time.Time{}
	s.strength = 0
}

func (s *State) snapshotLocked() Snapshot {
	return Snapshot{
		Score:      s.score,
		Combo:      s.combo,
		TotalHits:  s.totalHits,
		LastPoints: s.lastPoints,
		BestCombo:  s.bestCombo,
		Strength:   s.strength,
	}
}

// handleDrawHUD contributes the score line to the chained HUD context.
func (s *State) handleDrawHUD(payload ...any) (any, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	ctx, ok := payload[0].(events.Context)
	if !ok {
		return nil, nil
	}

	snap := s.Current()
	line := fmt.Sprintf("Score: %d", snap.Score)
	if snap.Combo > 1 {
		line += fmt.Sprintf("  (%dx combo)", snap.Combo)
	}

	lines, _ := ctx["lines"].([]string)
	lines = append(lines, line)

	nextY, _ := ctx["next_y"].(int)
	return events.Context{
		"lines":  lines,
		"next_y": nextY + 30,
	}, nil
}
