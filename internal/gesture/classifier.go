// Package gesture classifies single-frame hand poses into discrete gestures.
package gesture

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ayusman/valentine/internal/detector"
)

// ErrUnknownGesture is returned by Parse for labels outside the known set.
var ErrUnknownGesture = errors.New("unknown gesture")

// Gesture is a discrete hand-shape label derived from one hand pose.
type Gesture string

const (
	Fist       Gesture = "FIST"
	ThumbsUp   Gesture = "THUMBS_UP"
	ThumbsDown Gesture = "THUMBS_DOWN"
	Victory    Gesture = "VICTORY"
	OK         Gesture = "OK"
	Open       Gesture = "OPEN"
	// None means no confident classification; callers should ignore it.
	None Gesture = "NONE"
)

// All lists every gesture including None.
var All = []Gesture{Fist, ThumbsUp, ThumbsDown, Victory, OK, Open, None}

// Classification thresholds, in normalized image units. Tuned for a
// front-facing camera at arm's length.
const (
	// ThumbMargin is the dead zone between thumb tip and thumb MCP heights
	// inside which a closed hand counts as a plain fist.
	ThumbMargin = 0.05
	// PinchDistance is the largest thumb-to-index gap that still closes an OK ring.
	PinchDistance = 0.05
)

// Parse converts a label such as "thumbs_up" or "THUMBS-UP" to a Gesture.
func Parse(s string) (Gesture, error) {
	label := strings.ToUpper(strings.TrimSpace(s))
	label = strings.ReplaceAll(label, "-", "_")
	label = strings.ReplaceAll(label, " ", "_")
	for _, g := range All {
		if string(g) == label {
			return g, nil
		}
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownGesture, s)
}

// String returns the upper-case label.
func (g Gesture) String() string {
	if g == "" {
		return string(None)
	}
	return string(g)
}

// Classify maps one hand pose to a gesture. It is a pure function of the pose.
//
// Checks run in order and the first match wins; they overlap geometrically,
// so earlier rules mask later ones:
//  1. all four fingers curled: thumb up, thumb down or fist by thumb height
//  2. index and middle raised, ring and pinky curled: victory
//  3. thumb pinching index with middle and ring raised: OK
//  4. all four raised: open
func Classify(hand *detector.HandLandmarks) Gesture {
	if hand == nil {
		return None
	}

	ext := Fingers(hand)
	index, middle, ring, pinky := ext[0], ext[1], ext[2], ext[3]

	if !index && !middle && !ring && !pinky {
		thumbTip := hand.Points[detector.ThumbTip]
		thumbMCP := hand.Points[detector.ThumbMCP]
		switch {
		case thumbTip.Y < thumbMCP.Y-ThumbMargin:
			return ThumbsUp
		case thumbTip.Y > thumbMCP.Y+ThumbMargin:
			return ThumbsDown
		default:
			return Fist
		}
	}

	if index && middle && !ring && !pinky {
		return Victory
	}

	pinch := Distance(hand.Points[detector.ThumbTip], hand.Points[detector.IndexTip])
	if pinch < PinchDistance && middle && ring {
		return OK
	}

	if index && middle && ring && pinky {
		return Open
	}

	return None
}
