package pose

import (
	"math"

	"github.com/teslashibe/go-punch/internal/config"
	"github.com/teslashibe/go-punch/pkg/detect"
)

// Analysis is the outcome of scoring one frame.
type Analysis struct {
	Score       float64
	Confident   bool
	Orientation Orientation
	Metrics     *detect.Metrics
}

// Analyzer scores landmark frames for punch-like movement. The scoring axis
// adapts to the subject's facing: depth extension when front-on, lateral
// extension when side-on. It holds only the short per-frame history needed
// for velocity smoothing and extension deltas.
type Analyzer struct {
	cfg             config.PoseConfig
	visualThreshold float64

	orientation OrientationDetector
	velocity    *VelocityTracker

	hasPrev      bool
	prevTime     float64
	prevLeft     Landmark
	prevRight    Landmark
	prevLeftExt  float64
	prevRightExt float64
}

// NewAnalyzer creates a pose analyzer from the tuning config.
func NewAnalyzer(cfg config.PoseConfig, visualThreshold float64) *Analyzer {
	return &Analyzer{
		cfg:             cfg,
		visualThreshold: visualThreshold,
		orientation: OrientationDetector{
			WidthCutoff:      cfg.ShoulderWidthCutoff,
			NoseTolerance:    cfg.NoseAlignmentTolerance,
			DepthCutoff:      cfg.ShoulderDepthCutoff,
			VisibilityCutoff: cfg.ShoulderVisibilityCutoff,
		},
		velocity: NewVelocityTracker(cfg.SmoothingFrames),
	}
}

// Reset clears all per-frame history.
func (a *Analyzer) Reset() {
	a.velocity.Reset()
	a.hasPrev = false
}

// Analyze scores one frame. A frame without a person yields a zero,
// non-confident result with unknown orientation and leaves the velocity and
// extension history untouched.
func (a *Analyzer) Analyze(f *Frame) Analysis {
	if !f.HasPose() {
		metrics := detect.NewMetrics()
		metrics.Set("no_pose_detected", true)
		return Analysis{Orientation: OrientationUnknown, Metrics: metrics}
	}

	orient, orientScore := a.orientation.Classify(f)

	smoothedVel := a.velocity.Observe(f)
	velScore := clamp01(smoothedVel / a.cfg.VelocityThreshold)

	leftExt := f.At(LeftWrist).Z - f.At(LeftShoulder).Z
	rightExt := f.At(RightWrist).Z - f.At(RightShoulder).Z

	metrics := detect.NewMetrics()
	metrics.Set("orientation", orient.String())
	metrics.Set("orientation_score", orientScore)
	metrics.Set("velocity", smoothedVel)

	var extComponent float64
	switch orient {
	case OrientationFront:
		extComponent = a.frontExtension(f, leftExt, rightExt, metrics)
	default:
		extComponent = a.sideExtension(f, velScore, metrics)
	}

	score := clamp01((extComponent*a.cfg.ExtensionWeight + velScore*a.cfg.MovementWeight) * a.cfg.ScoreMultiplier)
	metrics.Set("score", score)

	a.prevTime = f.Timestamp
	a.prevLeft = f.At(LeftWrist)
	a.prevRight = f.At(RightWrist)
	a.prevLeftExt = leftExt
	a.prevRightExt = rightExt
	a.hasPrev = true

	return Analysis{
		Score:       score,
		Confident:   score > a.visualThreshold,
		Orientation: orient,
		Metrics:     metrics,
	}
}

// frontExtension scores the forward drive of the faster hand along the depth
// axis. Extension is wrist depth minus shoulder depth, negative when the
// wrist is forward of the shoulder, so a punch shows as a negative extension
// velocity. Off-axis wrist travel in the same interval damps the score to
// filter waves and other non-punch gestures.
func (a *Analyzer) frontExtension(f *Frame, leftExt, rightExt float64, metrics *detect.Metrics) float64 {
	if !a.hasPrev {
		return 0
	}
	dt := f.Timestamp - a.prevTime
	if dt <= 0 {
		return 0
	}

	leftVel := (a.prevLeftExt - leftExt) / dt
	rightVel := (a.prevRightExt - rightExt) / dt

	extVel := leftVel
	prevWrist, wrist := a.prevLeft, f.At(LeftWrist)
	if rightVel > leftVel {
		extVel = rightVel
		prevWrist, wrist = a.prevRight, f.At(RightWrist)
	}

	extScore := clamp01(extVel / a.cfg.VelocityThreshold)

	dx := wrist.X - prevWrist.X
	dy := wrist.Y - prevWrist.Y
	offAxis := math.Sqrt(dx*dx + dy*dy)
	penalty := clamp01(1 - offAxis/a.cfg.LateralPenaltyMax)

	metrics.Set("extension_velocity", extVel)
	metrics.Set("extension_score", extScore)
	metrics.Set("off_axis", offAxis)
	metrics.Set("penalty", penalty)

	return math.Min(extScore*penalty*a.cfg.FrontMultiplier, 1.0)
}

// sideExtension scores forward movement along the lateral axis for a side-on
// subject, combining the position of the more extended arm with the smoothed
// velocity on a 50/50 split.
func (a *Analyzer) sideExtension(f *Frame, velScore float64, metrics *detect.Metrics) float64 {
	leftForward := math.Abs(f.At(LeftWrist).X - f.At(LeftShoulder).X)
	rightForward := math.Abs(f.At(RightWrist).X - f.At(RightShoulder).X)
	forward := math.Max(leftForward, rightForward)

	posScore := clamp01(forward / a.cfg.MaxSideExtension)

	metrics.Set("forward_extension", forward)
	metrics.Set("position_score", posScore)

	return math.Min((posScore*0.5+velScore*0.5)*a.cfg.SideMultiplier, 1.0)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
