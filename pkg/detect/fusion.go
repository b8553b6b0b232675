package detect

import (
	"sync"
	"time"

	"github.com/teslashibe/go-punch/internal/log"
)

// FusionConfig tunes the combined decision.
type FusionConfig struct {
	// Cooldown is the minimum interval after a positive detection before
	// another can register.
	Cooldown time.Duration
	// MinCombined is the fallback trigger level when no strategy is
	// independently confident.
	MinCombined float64
	// StaleAfter is how old a strategy result may be and still contribute.
	// Results older than this are treated as absent. Should cover one tick
	// of the driver loop with some slack.
	StaleAfter time.Duration
}

// Decision is the fused per-tick outcome.
type Decision struct {
	Punch   bool
	Score   float64
	Metrics *Metrics
}

// registration binds a strategy to its fusion weight.
type registration struct {
	strategy Strategy
	weight   float64
}

// FusionDetector combines the latest result from each active strategy into
// one cooldown-gated decision. Weights need not sum to 1: the combiner
// normalizes by the sum of weights of contributing strategies only, so a
// silent or inactive modality never dilutes the others.
type FusionDetector struct {
	mu   sync.Mutex
	regs []registration
	cfg  FusionConfig

	lastPunch time.Time

	// now is swappable for deterministic tests.
	now func() time.Time
}

// NewFusionDetector creates a detector with the given tuning.
func NewFusionDetector(cfg FusionConfig) *FusionDetector {
	return &FusionDetector{
		cfg: cfg,
		now: time.Now,
	}
}

// AddStrategy registers a strategy with a nonnegative weight. A zero weight
// keeps the strategy out of the weighted mean but its confidence flag still
// counts.
func (f *FusionDetector) AddStrategy(s Strategy, weight float64) {
	if s == nil {
		return
	}
	if weight < 0 {
		weight = 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regs = append(f.regs, registration{strategy: s, weight: weight})
}

// RemoveStrategy drops every registration of s. Returns true if any was found.
func (f *FusionDetector) RemoveStrategy(s Strategy) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.regs[:0]
	found := false
	for _, r := range f.regs {
		if r.strategy == s {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	f.regs = kept
	return found
}

// StrategyCount returns the number of registered strategies.
func (f *FusionDetector) StrategyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.regs)
}

// Detect computes the fused decision for the current tick. It must be called
// after the tick's ingestion and processing events have completed, so that
// every strategy's CurrentResult reflects this tick.
func (f *FusionDetector) Detect() Decision {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()

	// Cooldown gate short-circuits before any scoring work.
	if !f.lastPunch.IsZero() && now.Sub(f.lastPunch) < f.cfg.Cooldown {
		return Decision{Metrics: NewMetrics()}
	}

	var (
		weightedSum  float64
		weightTotal  float64
		anyConfident bool
	)
	metrics := NewMetrics()

	for _, r := range f.regs {
		if !r.strategy.Active() {
			continue
		}
		res := r.strategy.CurrentResult()
		if f.stale(res, now) {
			continue
		}

		weightedSum += res.Score * r.weight
		weightTotal += r.weight
		if res.Confident {
			anyConfident = true
		}

		name := r.strategy.Name()
		metrics.Set(name+".score", res.Score)
		metrics.Set(name+".confident", res.Confident)
		metrics.Merge(name+".", res.Metrics)
	}

	combined := 0.0
	if weightTotal > 0 {
		combined = weightedSum / weightTotal
	}

	punch := anyConfident || combined > f.cfg.MinCombined
	if punch {
		f.lastPunch = now
		log.Debug("punch detected",
			"combined_score", combined,
			"confident_override", anyConfident && combined <= f.cfg.MinCombined)
	}

	metrics.Set("combined_score", combined)

	return Decision{
		Punch:   punch,
		Score:   combined,
		Metrics: metrics,
	}
}

// ResetCooldown clears the cooldown gate so the next Detect can fire.
func (f *FusionDetector) ResetCooldown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPunch = time.Time{}
}

// stale reports whether a result is too old to contribute this tick. A zero
// timestamp means the strategy never computed anything.
func (f *FusionDetector) stale(res Result, now time.Time) bool {
	if res.Timestamp == 0 {
		return true
	}
	if f.cfg.StaleAfter <= 0 {
		return false
	}
	age := now.Sub(time.Unix(0, int64(res.Timestamp*float64(time.Second))))
	return age > f.cfg.StaleAfter
}
