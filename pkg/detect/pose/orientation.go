package pose

import "math"

// Orientation classifies the subject's facing relative to the camera. It
// selects which spatial axis carries the punch signal: depth when facing the
// camera, the lateral axis when side-on.
type Orientation int

const (
	OrientationUnknown Orientation = iota
	OrientationFront
	OrientationSide
)

func (o Orientation) String() string {
	switch o {
	case OrientationFront:
		return "front"
	case OrientationSide:
		return "side"
	default:
		return "unknown"
	}
}

// frontScoreMin is the additive score at which a frame classifies as front.
const frontScoreMin = 3

// OrientationDetector classifies facing from a single frame. Classification
// is recomputed every frame with no hysteresis; rapid reclassification near
// the boundary is expected.
type OrientationDetector struct {
	// WidthCutoff is the normalized shoulder width above which the
	// subject is likely facing the camera.
	WidthCutoff float64
	// NoseTolerance widens the shoulder interval for the nose alignment
	// check.
	NoseTolerance float64
	// DepthCutoff is the shoulder depth difference below which both
	// shoulders are equidistant from the camera.
	DepthCutoff float64
	// VisibilityCutoff is the minimum shoulder visibility for the
	// visibility factor.
	VisibilityCutoff float64
}

// Classify scores the frame's facing. Shoulder width counts double because it
// is the strongest single cue; the remaining factors contribute one point
// each. A total of frontScoreMin or more classifies as front.
func (d OrientationDetector) Classify(f *Frame) (Orientation, int) {
	if !f.HasPose() {
		return OrientationUnknown, 0
	}

	ls := f.At(LeftShoulder)
	rs := f.At(RightShoulder)
	nose := f.At(Nose)

	score := 0

	if math.Abs(ls.X-rs.X) > d.WidthCutoff {
		score += 2
	}

	lo := math.Min(ls.X, rs.X) - d.NoseTolerance
	hi := math.Max(ls.X, rs.X) + d.NoseTolerance
	if nose.X >= lo && nose.X <= hi {
		score++
	}

	if math.Abs(ls.Z-rs.Z) < d.DepthCutoff {
		score++
	}

	if math.Min(ls.Visibility, rs.Visibility) > d.VisibilityCutoff {
		score++
	}

	if score >= frontScoreMin {
		return OrientationFront, score
	}
	return OrientationSide, score
}
