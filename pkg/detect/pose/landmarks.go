// Package pose implements punch detection from camera-derived body-pose
// landmarks. The pose backend is an opaque producer: it ships fixed-shape
// landmark frames (position plus visibility per point) over the phone link,
// and this package scores them with orientation-adaptive extension and
// velocity analysis.
package pose

// LandmarkCount is the fixed length of a landmark frame. Indices follow the
// standard 33-point body-pose topology.
const LandmarkCount = 33

// Anatomical point ids used by the analysis.
const (
	Nose          = 0
	LeftShoulder  = 11
	RightShoulder = 12
	LeftElbow     = 13
	RightElbow    = 14
	LeftWrist     = 15
	RightWrist    = 16
)

// Landmark is one tracked body point. X and Y are normalized image
// coordinates in [0,1]; Z is relative depth with negative values toward the
// camera; Visibility is the backend's confidence in [0,1].
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Frame is one captured landmark set. An empty Landmarks slice means the
// backend saw no person in the frame.
type Frame struct {
	Landmarks []Landmark `json:"landmarks"`
	Timestamp float64    `json:"timestamp"` // unix seconds, capture time
}

// HasPose reports whether the frame contains a full landmark set.
func (f *Frame) HasPose() bool {
	return f != nil && len(f.Landmarks) == LandmarkCount
}

// At returns the landmark at the given point id. Call only on frames where
// HasPose is true.
func (f *Frame) At(id int) Landmark {
	return f.Landmarks[id]
}
