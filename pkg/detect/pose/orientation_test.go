package pose

import "testing"

// testFrame builds a full 33-point frame with every landmark zeroed and full
// visibility, then applies overrides.
func testFrame(ts float64, overrides map[int]Landmark) *Frame {
	lm := make([]Landmark, LandmarkCount)
	for i := range lm {
		lm[i].Visibility = 1.0
	}
	for id, l := range overrides {
		lm[id] = l
	}
	return &Frame{Landmarks: lm, Timestamp: ts}
}

func frontFacing(ts float64) *Frame {
	return testFrame(ts, map[int]Landmark{
		Nose:          {X: 0.475, Y: 0.3, Visibility: 1.0},
		LeftShoulder:  {X: 0.3, Y: 0.5, Z: 0.0, Visibility: 1.0},
		RightShoulder: {X: 0.65, Y: 0.5, Z: 0.02, Visibility: 1.0},
		LeftWrist:     {X: 0.28, Y: 0.7, Z: 0.0, Visibility: 1.0},
		RightWrist:    {X: 0.67, Y: 0.7, Z: 0.0, Visibility: 1.0},
	})
}

func defaultOrientationDetector() OrientationDetector {
	return OrientationDetector{
		WidthCutoff:      0.3,
		NoseTolerance:    0.05,
		DepthCutoff:      0.1,
		VisibilityCutoff: 0.7,
	}
}

func TestOrientation_FrontDeterministic(t *testing.T) {
	d := defaultOrientationDetector()

	// Shoulder width 0.35, nose centered, shoulder depth difference 0.02,
	// full visibility: all four factors fire.
	f := frontFacing(0)

	for i := 0; i < 3; i++ {
		orient, score := d.Classify(f)
		if orient != OrientationFront {
			t.Fatalf("run %d: got %v, want front", i, orient)
		}
		if score != 5 {
			t.Errorf("run %d: score got %d, want 5 (2+1+1+1)", i, score)
		}
	}
}

func TestOrientation_SideOn(t *testing.T) {
	d := defaultOrientationDetector()

	// Narrow shoulders with a large depth split: only nose alignment and
	// visibility fire, total 2 < 3.
	f := testFrame(0, map[int]Landmark{
		Nose:          {X: 0.52, Y: 0.3, Visibility: 0.9},
		LeftShoulder:  {X: 0.5, Y: 0.5, Z: 0.0, Visibility: 0.9},
		RightShoulder: {X: 0.55, Y: 0.5, Z: 0.3, Visibility: 0.9},
	})

	orient, score := d.Classify(f)
	if orient != OrientationSide {
		t.Errorf("got %v (score %d), want side", orient, score)
	}
}

func TestOrientation_FactorBreakdown(t *testing.T) {
	d := defaultOrientationDetector()

	tests := []struct {
		name      string
		overrides map[int]Landmark
		want      int
	}{
		{
			name: "wide but occluded shoulders",
			overrides: map[int]Landmark{
				Nose:          {X: 2.0}, // far outside the shoulder span
				LeftShoulder:  {X: 0.2, Z: 0.0, Visibility: 0.2},
				RightShoulder: {X: 0.7, Z: 0.0, Visibility: 0.2},
			},
			want: 3, // width(2) + depth(1)
		},
		{
			name: "nose off to one side",
			overrides: map[int]Landmark{
				Nose:          {X: 0.9, Visibility: 1.0},
				LeftShoulder:  {X: 0.3, Z: 0.0, Visibility: 1.0},
				RightShoulder: {X: 0.65, Z: 0.0, Visibility: 1.0},
			},
			want: 4, // width(2) + depth(1) + visibility(1)
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testFrame(0, tt.overrides)
			_, score := d.Classify(f)
			if score != tt.want {
				t.Errorf("score: got %d, want %d", score, tt.want)
			}
		})
	}
}

func TestOrientation_NoPose(t *testing.T) {
	d := defaultOrientationDetector()
	orient, score := d.Classify(&Frame{})
	if orient != OrientationUnknown || score != 0 {
		t.Errorf("empty frame: got (%v, %d), want (unknown, 0)", orient, score)
	}
}
