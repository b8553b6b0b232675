package accel

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-punch/pkg/events"
)

func newTestStrategy(t *testing.T) (*Strategy, *time.Time) {
	t.Helper()
	s := NewStrategy(Config{
		Analyzer: MotionAnalyzer{
			Threshold:        20.0,
			ScoringMax:       40.0,
			ConfidenceCutoff: 0.3,
		},
		BufferSize: 5,
		Freshness:  250 * time.Millisecond,
	})
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }
	require.NoError(t, s.Setup())
	return s, &now
}

func TestStrategy_DrainScoresLatestSample(t *testing.T) {
	s, _ := newTestStrategy(t)

	s.Ingest(Sample{X: 1, Y: 1, Z: 1})            // quiet
	s.Ingest(Sample{X: 5.2, Y: 32.7, Z: 14.6})    // punch

	_, err := s.handleDrain()
	require.NoError(t, err)

	res := s.CurrentResult()
	assert.Greater(t, res.Score, 0.6)
	assert.True(t, res.Confident)
	assert.NotZero(t, res.Timestamp)
	assert.True(t, s.Active(), "fresh sample means connected")
}

func TestStrategy_HistoryIsBounded(t *testing.T) {
	s, _ := newTestStrategy(t)

	for i := 0; i < 12; i++ {
		s.Ingest(Sample{X: float64(i)})
	}
	_, err := s.handleDrain()
	require.NoError(t, err)

	assert.Len(t, s.history, 5, "history must keep only the newest BufferSize samples")
	latest, ok := s.LatestSample()
	require.True(t, ok)
	assert.Equal(t, 11.0, latest.X)
}

func TestStrategy_FreshnessHoldThenDecay(t *testing.T) {
	s, now := newTestStrategy(t)

	s.Ingest(Sample{X: 5.2, Y: 32.7, Z: 14.6})
	_, err := s.handleDrain()
	require.NoError(t, err)
	scored := s.CurrentResult()
	require.Greater(t, scored.Score, 0.0)

	// Next tick, no new sample, still inside the freshness window: the
	// previous score is held and re-stamped.
	*now = now.Add(100 * time.Millisecond)
	_, err = s.handleDrain()
	require.NoError(t, err)
	held := s.CurrentResult()
	assert.Equal(t, scored.Score, held.Score)
	assert.Greater(t, held.Timestamp, scored.Timestamp)

	// Past the window the result decays to zero, not confident.
	*now = now.Add(time.Second)
	_, err = s.handleDrain()
	require.NoError(t, err)
	decayed := s.CurrentResult()
	assert.Zero(t, decayed.Score)
	assert.False(t, decayed.Confident)
}

func TestStrategy_ActiveTracksSampleRecency(t *testing.T) {
	s, now := newTestStrategy(t)

	assert.False(t, s.Active(), "no samples yet")

	s.Ingest(Sample{X: 1})
	_, err := s.handleDrain()
	require.NoError(t, err)
	assert.True(t, s.Active())

	*now = now.Add(5 * time.Second)
	assert.False(t, s.Active(), "a silent sensor is disconnected")
}

func TestStrategy_MalformedSampleDropped(t *testing.T) {
	s, _ := newTestStrategy(t)

	s.Ingest(Sample{X: math.NaN()})
	_, err := s.handleDrain()
	require.NoError(t, err)

	assert.Empty(t, s.history)
	assert.Zero(t, s.CurrentResult().Score)
}

func TestStrategy_IngestBeforeSetupIsSafe(t *testing.T) {
	s := NewStrategy(Config{Analyzer: MotionAnalyzer{Threshold: 20, ScoringMax: 40}})

	s.Ingest(Sample{X: 30})
	_, err := s.handleDrain()
	require.NoError(t, err)
	assert.False(t, s.Active())
}

func TestStrategy_CleanupIsIdempotent(t *testing.T) {
	s, _ := newTestStrategy(t)

	s.Ingest(Sample{X: 30})
	s.Cleanup()
	s.Cleanup()

	assert.False(t, s.Active())
	assert.Zero(t, s.CurrentResult().Score)

	// Setup after cleanup starts clean.
	require.NoError(t, s.Setup())
	_, err := s.handleDrain()
	require.NoError(t, err)
	assert.Empty(t, s.history, "queued samples from before cleanup must not leak")
}

func TestStrategy_SetupErrorSurfacesThroughBus(t *testing.T) {
	s, _ := newTestStrategy(t)
	bus := events.NewBus()
	s.RegisterHooks(bus)

	results := bus.Trigger(events.EventSetup)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
}

func TestStrategy_DrawHUDAdvancesCursor(t *testing.T) {
	s, _ := newTestStrategy(t)
	bus := events.NewBus()
	s.RegisterHooks(bus)

	ctx := bus.TriggerChain(events.EventDrawHUD, events.Context{"next_y": 40, "lines": []string{}})

	assert.Equal(t, 70, ctx["next_y"])
	lines := ctx["lines"].([]string)
	require.Len(t, lines, 1)
	assert.Equal(t, "Sensor: Disconnected", lines[0])
}
