package pose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-punch/internal/config"
)

func newTestAnalyzer() *Analyzer {
	cfg := config.Default()
	return NewAnalyzer(cfg.Pose, cfg.Detection.VisualThreshold)
}

func TestAnalyzer_NoPose(t *testing.T) {
	a := newTestAnalyzer()

	// Seed some velocity history first.
	a.Analyze(frontFacing(1.0))
	a.Analyze(frontFacing(1.1))
	samples := a.velocity.SampleCount()

	res := a.Analyze(&Frame{Timestamp: 1.2})

	assert.Zero(t, res.Score)
	assert.False(t, res.Confident)
	assert.Equal(t, OrientationUnknown, res.Orientation)
	v, ok := res.Metrics.Get("no_pose_detected")
	require.True(t, ok)
	assert.Equal(t, true, v)

	assert.Equal(t, samples, a.velocity.SampleCount(),
		"a missed frame must not feed the velocity history")
}

func TestAnalyzer_FirstFrameScoresZero(t *testing.T) {
	a := newTestAnalyzer()
	res := a.Analyze(frontFacing(1.0))

	assert.Equal(t, OrientationFront, res.Orientation)
	assert.Zero(t, res.Score, "no motion baseline on the first frame")
}

func TestAnalyzer_FrontPunchScoresHigh(t *testing.T) {
	a := newTestAnalyzer()

	// Guard stance, then the right wrist drives toward the camera
	// (depth strongly negative) with no lateral travel.
	guard := frontFacing(1.0)
	a.Analyze(guard)

	punch := frontFacing(1.1)
	punch.Landmarks[RightWrist] = Landmark{X: 0.67, Y: 0.7, Z: -0.25, Visibility: 1.0}
	res := a.Analyze(punch)

	assert.Equal(t, OrientationFront, res.Orientation)
	assert.Greater(t, res.Score, 0.8, "fast clean extension should score high")
	assert.True(t, res.Confident)

	penalty, ok := res.Metrics.Get("penalty")
	require.True(t, ok)
	assert.InDelta(t, 1.0, penalty.(float64), 1e-9, "no off-axis travel, no penalty")
}

func TestAnalyzer_FrontLateralGesturePenalized(t *testing.T) {
	base := config.Default()

	clean := NewAnalyzer(base.Pose, base.Detection.VisualThreshold)
	waving := NewAnalyzer(base.Pose, base.Detection.VisualThreshold)

	guard := frontFacing(1.0)
	clean.Analyze(guard)
	waving.Analyze(guard)

	punch := frontFacing(1.1)
	punch.Landmarks[RightWrist] = Landmark{X: 0.67, Y: 0.7, Z: -0.2, Visibility: 1.0}

	wave := frontFacing(1.1)
	wave.Landmarks[RightWrist] = Landmark{X: 0.95, Y: 0.45, Z: -0.2, Visibility: 1.0}

	cleanRes := clean.Analyze(punch)
	waveRes := waving.Analyze(wave)

	extClean, _ := cleanRes.Metrics.Get("extension_score")
	extWave, _ := waveRes.Metrics.Get("extension_score")
	assert.Equal(t, extClean, extWave, "same depth travel, same raw extension")

	pClean, _ := cleanRes.Metrics.Get("penalty")
	pWave, _ := waveRes.Metrics.Get("penalty")
	assert.Less(t, pWave.(float64), pClean.(float64),
		"large lateral/vertical displacement must be penalized")
}

func TestAnalyzer_SideScoring(t *testing.T) {
	a := newTestAnalyzer()

	// Side-on stance: narrow shoulder span, large depth split. The right
	// arm is extended well past the shoulder along the lateral axis.
	f := testFrame(1.0, map[int]Landmark{
		Nose:          {X: 0.52, Y: 0.3, Visibility: 0.9},
		LeftShoulder:  {X: 0.5, Y: 0.5, Z: 0.0, Visibility: 0.9},
		RightShoulder: {X: 0.55, Y: 0.5, Z: 0.3, Visibility: 0.9},
		LeftWrist:     {X: 0.52, Y: 0.7, Visibility: 0.9},
		RightWrist:    {X: 0.95, Y: 0.5, Visibility: 0.9},
	})

	res := a.Analyze(f)

	assert.Equal(t, OrientationSide, res.Orientation)
	assert.Greater(t, res.Score, 0.3, "an extended arm scores from position alone")

	forward, ok := res.Metrics.Get("forward_extension")
	require.True(t, ok)
	assert.InDelta(t, 0.4, forward.(float64), 1e-9)
}

func TestAnalyzer_ScoreClamped(t *testing.T) {
	a := newTestAnalyzer()

	a.Analyze(frontFacing(1.0))

	// An absurdly fast extension still clamps to 1.
	punch := frontFacing(1.01)
	punch.Landmarks[RightWrist] = Landmark{X: 0.67, Y: 0.7, Z: -2.0, Visibility: 1.0}
	res := a.Analyze(punch)

	assert.LessOrEqual(t, res.Score, 1.0)
	assert.Equal(t, 1.0, res.Score)
}

func TestAnalyzer_ResetClearsHistory(t *testing.T) {
	a := newTestAnalyzer()
	a.Analyze(frontFacing(1.0))
	a.Analyze(frontFacing(1.1))
	a.Reset()

	res := a.Analyze(frontFacing(2.0))
	assert.Zero(t, res.Score, "reset must drop the motion baseline")
}
