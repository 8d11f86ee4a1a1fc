// Package story implements the gesture-driven narrative: the stage machine,
// its timed transitions and the state it publishes to the renderer.
package story

import (
	"fmt"
	"strings"
)

// Stage is a position in the narrative. Stages only move forward.
type Stage int

const (
	// StageIntro shows the heart and waits for a fist.
	StageIntro Stage = iota
	// StageScatter blows the heart apart; it ends on a timer.
	StageScatter
	// StageAskFirst asks the opening question and waits for OK.
	StageAskFirst
	// StageAskSecond asks the real question: thumbs up or down.
	StageAskSecond
	// StageLetter reveals the letter.
	StageLetter
	// StagePoem reveals the poem. Terminal.
	StagePoem
)

var stageNames = [...]string{
	StageIntro:     "INTRO",
	StageScatter:   "SCATTER",
	StageAskFirst:  "ASK_FIRST",
	StageAskSecond: "ASK_SECOND",
	StageLetter:    "LETTER",
	StagePoem:      "POEM",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a stage name.
func (s *Stage) UnmarshalText(text []byte) error {
	name := strings.ToUpper(string(text))
	for i, n := range stageNames {
		if n == name {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", string(text))
}

// Terminal reports whether no further transitions leave this stage.
func (s Stage) Terminal() bool {
	return s == StagePoem
}

// Shape selects the particle animation for a stage.
type Shape int

const (
	// ShapeHeart draws the particle heart.
	ShapeHeart Shape = iota
	// ShapeExplode scatters particles outward.
	ShapeExplode
	// ShapeTextCloud drifts particles behind text.
	ShapeTextCloud
)

func (s Shape) String() string {
	switch s {
	case ShapeHeart:
		return "HEART"
	case ShapeExplode:
		return "EXPLODE"
	case ShapeTextCloud:
		return "TEXT_CLOUD"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// MarshalText encodes the shape by name.
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a shape name.
func (s *Shape) UnmarshalText(text []byte) error {
	for _, shape := range []Shape{ShapeHeart, ShapeExplode, ShapeTextCloud} {
		if strings.EqualFold(shape.String(), string(text)) {
			*s = shape
			return nil
		}
	}
	return fmt.Errorf("unknown shape %q", string(text))
}

// Shape returns the animation the renderer should show for the stage.
func (s Stage) Shape() Shape {
	switch s {
	case StageIntro:
		return ShapeHeart
	case StageScatter:
		return ShapeExplode
	default:
		return ShapeTextCloud
	}
}

// Palette holds the particle colours indexed by a state's colour index.
var Palette = []string{"#ff007f", "#9900ff", "#00ccff", "#ffcc00", "#ff3333"}

// Color returns the palette entry for index, wrapping around.
func Color(index int) string {
	n := len(Palette)
	return Palette[((index%n)+n)%n]
}
