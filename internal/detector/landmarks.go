// Package detector provides hand detection interfaces and the hand pose types
// produced once per camera frame.
package detector

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is a landmark position. X and Y are normalized to [0,1] of the frame,
// with Y growing downward. Z is relative depth and may be zero.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks is one frame's hand pose: the 21 tracked points of a single hand.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Finger identifies one of the four non-thumb fingers by its tip and MCP joint.
type Finger struct {
	Name string
	Tip  int
	MCP  int
}

// Fingers lists the non-thumb fingers from index to pinky.
var Fingers = [4]Finger{
	{Name: "index", Tip: IndexTip, MCP: IndexMCP},
	{Name: "middle", Tip: MiddleTip, MCP: MiddleMCP},
	{Name: "ring", Tip: RingTip, MCP: RingMCP},
	{Name: "pinky", Tip: PinkyTip, MCP: PinkyMCP},
}
