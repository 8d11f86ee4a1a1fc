package gesture

import (
	"math"

	"github.com/ayusman/valentine/internal/detector"
)

// Distance is the Euclidean distance between two landmarks in the image plane.
// Depth is ignored.
func Distance(a, b detector.Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// IsExtended reports whether a finger is straightened outward: its tip is
// farther from the wrist than its MCP joint. This is a proxy for flexion and
// misfires when the hand is turned out of the camera plane.
func IsExtended(tip, mcp, wrist detector.Point3D) bool {
	return Distance(tip, wrist) > Distance(mcp, wrist)
}

// Fingers reports extension for index, middle, ring and pinky, in that order.
func Fingers(hand *detector.HandLandmarks) [4]bool {
	var out [4]bool
	if hand == nil {
		return out
	}
	wrist := hand.Points[detector.Wrist]
	for i, f := range detector.Fingers {
		out[i] = IsExtended(hand.Points[f.Tip], hand.Points[f.MCP], wrist)
	}
	return out
}
