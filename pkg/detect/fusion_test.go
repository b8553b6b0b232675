package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-punch/pkg/events"
)

// stubStrategy is a fixed-output strategy for fusion tests.
type stubStrategy struct {
	name   string
	active bool
	result Result
}

func (s *stubStrategy) Name() string                    { return s.name }
func (s *stubStrategy) RegisterHooks(bus *events.Bus)   {}
func (s *stubStrategy) Setup() error                    { s.active = true; return nil }
func (s *stubStrategy) Cleanup()                        { s.active = false }
func (s *stubStrategy) Active() bool                    { return s.active }
func (s *stubStrategy) CurrentResult() Result           { return s.result }

// fixedClock returns a controllable now func.
func fixedClock(start time.Time) (*time.Time, func() time.Time) {
	t := start
	return &t, func() time.Time { return t }
}

func newStub(name string, score float64, confident bool, ts time.Time) *stubStrategy {
	return &stubStrategy{
		name:   name,
		active: true,
		result: Result{
			Score:     score,
			Confident: confident,
			Metrics:   NewMetrics(),
			Timestamp: float64(ts.UnixNano()) / float64(time.Second),
		},
	}
}

func TestFusion_WeightedMeanOverContributors(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock, nowFn := fixedClock(now)
	_ = clock

	f := NewFusionDetector(FusionConfig{Cooldown: 500 * time.Millisecond, MinCombined: 0.2})
	f.now = nowFn

	accel := newStub("accelerometer", 0.8, false, now)
	pose := newStub("pose", 0.4, false, now)
	f.AddStrategy(accel, 0.7)
	f.AddStrategy(pose, 0.3)

	d := f.Detect()
	// (0.8*0.7 + 0.4*0.3) / (0.7 + 0.3)
	assert.InDelta(t, 0.68, d.Score, 1e-9)
	assert.True(t, d.Punch, "combined 0.68 > 0.2")
}

func TestFusion_InactiveStrategyContributesNothing(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	_, nowFn := fixedClock(now)

	f := NewFusionDetector(FusionConfig{Cooldown: 500 * time.Millisecond, MinCombined: 0.9})
	f.now = nowFn

	accel := newStub("accelerometer", 0.6, false, now)
	pose := newStub("pose", 1.0, true, now)
	pose.active = false

	f.AddStrategy(accel, 0.7)
	f.AddStrategy(pose, 0.3)

	d := f.Detect()
	// Only the accelerometer contributes: denominator is its weight alone,
	// and the inactive pose strategy's confidence flag is ignored.
	assert.InDelta(t, 0.6, d.Score, 1e-9)
	assert.False(t, d.Punch)
}

func TestFusion_WeightsNeedNotSumToOne(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	_, nowFn := fixedClock(now)

	f := NewFusionDetector(FusionConfig{Cooldown: time.Second, MinCombined: 0.99})
	f.now = nowFn

	f.AddStrategy(newStub("a", 0.5, false, now), 3)
	f.AddStrategy(newStub("b", 0.9, false, now), 1)

	d := f.Detect()
	// (0.5*3 + 0.9*1) / 4
	assert.InDelta(t, 0.6, d.Score, 1e-9)
}

func TestFusion_NoActiveStrategies(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	_, nowFn := fixedClock(now)

	f := NewFusionDetector(FusionConfig{Cooldown: time.Second, MinCombined: 0.2})
	f.now = nowFn

	s := newStub("accelerometer", 0.9, true, now)
	s.active = false
	f.AddStrategy(s, 1)

	d := f.Detect()
	assert.Zero(t, d.Score)
	assert.False(t, d.Punch)
}

func TestFusion_ConfidenceOverridesLowCombined(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	_, nowFn := fixedClock(now)

	f := NewFusionDetector(FusionConfig{Cooldown: time.Second, MinCombined: 0.5})
	f.now = nowFn

	// A highly-confident accelerometer with a silent pose modality: the
	// weighted mean is below the fallback threshold, but the confident
	// modality must not be diluted away.
	accel := newStub("accelerometer", 0.45, true, now)
	f.AddStrategy(accel, 0.7)

	d := f.Detect()
	assert.True(t, d.Punch, "confident strategy must trigger despite combined %.2f <= 0.5", d.Score)
}

func TestFusion_CooldownGate(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	clock, nowFn := fixedClock(start)

	f := NewFusionDetector(FusionConfig{Cooldown: 500 * time.Millisecond, MinCombined: 0.2})
	f.now = nowFn

	s := newStub("accelerometer", 0.9, true, start)
	f.AddStrategy(s, 1)

	first := f.Detect()
	require.True(t, first.Punch)

	// 0.3s later: still inside the cooldown, gate short-circuits.
	*clock = start.Add(300 * time.Millisecond)
	s.result.Timestamp = float64(clock.UnixNano()) / float64(time.Second)
	second := f.Detect()
	assert.False(t, second.Punch)
	assert.Zero(t, second.Score, "cooldown gate returns before scoring")

	// Past the cooldown the same input fires again.
	*clock = start.Add(600 * time.Millisecond)
	s.result.Timestamp = float64(clock.UnixNano()) / float64(time.Second)
	third := f.Detect()
	assert.True(t, third.Punch)
}

func TestFusion_StaleResultSkipped(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	_, nowFn := fixedClock(now)

	f := NewFusionDetector(FusionConfig{
		Cooldown:    time.Second,
		MinCombined: 0.2,
		StaleAfter:  100 * time.Millisecond,
	})
	f.now = nowFn

	fresh := newStub("pose", 0.4, false, now)
	stale := newStub("accelerometer", 1.0, true, now.Add(-time.Second))

	f.AddStrategy(stale, 0.7)
	f.AddStrategy(fresh, 0.3)

	d := f.Detect()
	assert.InDelta(t, 0.4, d.Score, 1e-9, "stale result must not enter the mean or denominator")
	assert.True(t, d.Punch, "0.4 > 0.2 from the fresh contributor alone")
}

func TestFusion_NeverComputedResultSkipped(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	_, nowFn := fixedClock(now)

	f := NewFusionDetector(FusionConfig{Cooldown: time.Second, MinCombined: 0.2})
	f.now = nowFn

	s := &stubStrategy{name: "pose", active: true, result: ZeroResult()}
	f.AddStrategy(s, 1)

	d := f.Detect()
	assert.Zero(t, d.Score)
	assert.False(t, d.Punch)
}

func TestFusion_AddRemoveStrategy(t *testing.T) {
	f := NewFusionDetector(FusionConfig{})
	s := &stubStrategy{name: "a"}

	f.AddStrategy(s, 1)
	f.AddStrategy(s, -2) // negative weight is clamped, registration still counts
	require.Equal(t, 2, f.StrategyCount())

	assert.True(t, f.RemoveStrategy(s))
	assert.Equal(t, 0, f.StrategyCount())
	assert.False(t, f.RemoveStrategy(s))
}

func TestFusion_MergedMetrics(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	_, nowFn := fixedClock(now)

	f := NewFusionDetector(FusionConfig{Cooldown: time.Second, MinCombined: 0.2})
	f.now = nowFn

	s := newStub("accelerometer", 0.5, false, now)
	s.result.Metrics.Set("magnitude", 36.5)
	f.AddStrategy(s, 1)

	d := f.Detect()

	v, ok := d.Metrics.Get("accelerometer.magnitude")
	require.True(t, ok)
	assert.Equal(t, 36.5, v)

	combined, ok := d.Metrics.Get("combined_score")
	require.True(t, ok)
	assert.InDelta(t, 0.5, combined.(float64), 1e-9)
}
