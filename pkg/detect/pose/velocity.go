package pose

import "math"

// VelocityTracker smooths wrist velocity across consecutive frames. It keeps
// the most active hand's speed: the maximum of the left and right wrist
// displacement over the elapsed time, averaged over a short window.
//
// A frame with no detected person must not be observed: a missed frame is
// not a zero-velocity sample, and the history stays untouched.
type VelocityTracker struct {
	window int

	hasPrev   bool
	prevLeft  Landmark
	prevRight Landmark
	prevTime  float64

	speeds []float64
}

// NewVelocityTracker creates a tracker averaging over the given window.
func NewVelocityTracker(window int) *VelocityTracker {
	if window <= 0 {
		window = 3
	}
	return &VelocityTracker{window: window}
}

// Observe records the frame's wrist positions and returns the smoothed
// velocity in normalized units per second. The first observation after a
// reset returns zero.
func (v *VelocityTracker) Observe(f *Frame) float64 {
	left := f.At(LeftWrist)
	right := f.At(RightWrist)

	var instant float64
	if v.hasPrev {
		dt := f.Timestamp - v.prevTime
		if dt > 0 {
			instant = math.Max(
				dist3(v.prevLeft, left),
				dist3(v.prevRight, right),
			) / dt

			v.speeds = append(v.speeds, instant)
			if len(v.speeds) > v.window {
				v.speeds = v.speeds[len(v.speeds)-v.window:]
			}
		}
	}

	v.prevLeft = left
	v.prevRight = right
	v.prevTime = f.Timestamp
	v.hasPrev = true

	return v.Smoothed()
}

// Smoothed returns the mean speed over the current window, zero when empty.
func (v *VelocityTracker) Smoothed() float64 {
	if len(v.speeds) == 0 {
		return 0
	}
	var sum float64
	for _, s := range v.speeds {
		sum += s
	}
	return sum / float64(len(v.speeds))
}

// SampleCount returns how many speed samples the window currently holds.
func (v *VelocityTracker) SampleCount() int { return len(v.speeds) }

// Reset clears all history.
func (v *VelocityTracker) Reset() {
	v.hasPrev = false
	v.speeds = nil
}

func dist3(a, b Landmark) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
