package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Detector extracts hand landmarks from camera frames.
type Detector interface {
	// Detect analyzes a video frame and returns the tracked hands.
	// Returns an empty slice if no hand is in view.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to track. The narrative only
	// ever looks at the first one.
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ScriptPath points at the landmark service script. Empty means search
	// the usual install locations.
	ScriptPath string

	// Python is the interpreter used to run the service. Empty means prefer
	// a project virtualenv, then python3 from PATH.
	Python string

	// IdleTimeout shuts the service down after this long without frames.
	IdleTimeout time.Duration
}

// DefaultConfig returns the tracking settings the narrative was tuned with:
// a single hand, front-facing camera at arm's length.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.7,
		MinTrackingConf: 0.5,
		IdleTimeout:     30 * time.Second,
	}
}
