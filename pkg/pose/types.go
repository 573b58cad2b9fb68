package pose

// Landmark names follow two conventions: skeletal joints are side-first
// ("left_knee"), silhouette extent points are level-first ("knee_left",
// "knee_front"). Joints come from the pose model, extents from the
// provider's segmentation pass; both share the same visibility scale.
const (
	PointTopHead       = "top_head"
	PointNose          = "nose"
	PointLeftEar       = "left_ear"
	PointRightEar      = "right_ear"
	PointLeftShoulder  = "left_shoulder"
	PointRightShoulder = "right_shoulder"
	PointLeftElbow     = "left_elbow"
	PointRightElbow    = "right_elbow"
	PointLeftWrist     = "left_wrist"
	PointRightWrist    = "right_wrist"
	PointLeftHip       = "left_hip"
	PointRightHip      = "right_hip"
	PointLeftKnee      = "left_knee"
	PointRightKnee     = "right_knee"
	PointLeftAnkle     = "left_ankle"
	PointRightAnkle    = "right_ankle"
)

// Girth levels with silhouette extents. Front view carries <level>_left and
// <level>_right, side view carries <level>_front and <level>_back.
const (
	LevelNeck  = "neck"
	LevelChest = "chest"
	LevelBust  = "bust"
	LevelWaist = "waist"
	LevelHip   = "hip"
	LevelThigh = "thigh"
	LevelKnee  = "knee"
	LevelCalf  = "calf"
	LevelWrist = "wrist"
	LevelAnkle = "ankle"
)

func WidthPair(level string) (string, string) {
	return level + "_left", level + "_right"
}

func DepthPair(level string) (string, string) {
	return level + "_front", level + "_back"
}

type View string

const (
	ViewFront View = "front"
	ViewSide  View = "side"
)

// Landmark is a named 2D keypoint in pixel coordinates with the model's
// visibility score in [0,1].
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Visibility float64 `json:"visibility"`
}

// LandmarkSet holds one photograph's detected points. It is ephemeral:
// nothing in this module ever persists or transmits it off the device.
type LandmarkSet struct {
	View        View                `json:"view"`
	ImageWidth  int                 `json:"image_width"`
	ImageHeight int                 `json:"image_height"`
	Points      map[string]Landmark `json:"landmarks"`
}

func (s *LandmarkSet) Point(name string) (Landmark, bool) {
	p, ok := s.Points[name]
	return p, ok
}

// Visible reports whether the named point exists with at least the given
// visibility score.
func (s *LandmarkSet) Visible(name string, min float64) bool {
	p, ok := s.Points[name]
	return ok && p.Visibility >= min
}

// MinVisibility returns the lowest visibility among the named points, or
// false if any of them is missing entirely.
func (s *LandmarkSet) MinVisibility(names ...string) (float64, bool) {
	lowest := 1.0
	for _, name := range names {
		p, ok := s.Points[name]
		if !ok {
			return 0, false
		}
		if p.Visibility < lowest {
			lowest = p.Visibility
		}
	}
	return lowest, true
}
