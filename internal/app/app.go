// Package app ties the camera, the hand detector, the gesture classifier and
// the narrative controller together.
package app

import (
	"log"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/valentine/internal/capture"
	"github.com/ayusman/valentine/internal/detector"
	"github.com/ayusman/valentine/internal/gesture"
	"github.com/ayusman/valentine/internal/store"
	"github.com/ayusman/valentine/internal/story"
)

// DefaultFPS is the frame loop rate when none is configured.
const DefaultFPS = 15

// Config holds the collaborators of an App. Only Controller is required.
type Config struct {
	Controller *story.Controller
	// Store journals every session. Nil disables journaling.
	Store *store.Store
	// Camera and Detector feed the frame loop. Without both, Run returns at once
	// and gestures can only arrive through OnGesture.
	Camera   capture.Camera
	Detector detector.Detector
	FPS      int
}

// App is the running toy.
type App struct {
	config     Config
	controller *story.Controller

	mu          sync.RWMutex
	enabled     bool
	lastGesture gesture.Gesture
	watchers    []func(gesture.Gesture)

	handWatchers  []func(*detector.HandLandmarks)
	frameWatchers []func(*gocv.Mat)

	journal *journal
}

// New creates an App and, when a store is configured, opens the first
// journal session.
func New(config Config) (*App, error) {
	if config.Controller == nil {
		config.Controller = story.New()
	}
	if config.FPS <= 0 {
		config.FPS = DefaultFPS
	}

	a := &App{
		config:      config,
		controller:  config.Controller,
		enabled:     true,
		lastGesture: gesture.None,
	}

	if config.Store != nil {
		j, err := newJournal(config.Store, a.controller.Snapshot())
		if err != nil {
			return nil, err
		}
		a.journal = j
		a.controller.OnChange(j.record)
	}

	return a, nil
}

// OnFrame handles one camera frame's worth of hand tracking. A nil pose means
// no hand was found: the result is None and nothing is forwarded. Otherwise the
// pose is classified and the gesture passed to OnGesture, None included.
func (a *App) OnFrame(pose *detector.HandLandmarks) gesture.Gesture {
	a.publishHand(pose)

	if pose == nil {
		a.setLastGesture(gesture.None)
		return gesture.None
	}

	g := gesture.Classify(pose)
	a.OnGesture(g)
	return g
}

// OnGesture forwards a classified gesture to the controller and reports
// whether the narrative state changed.
func (a *App) OnGesture(g gesture.Gesture) bool {
	a.setLastGesture(g)
	return a.controller.HandleGesture(g)
}

func (a *App) setLastGesture(g gesture.Gesture) {
	a.mu.Lock()
	changed := a.lastGesture != g
	a.lastGesture = g
	watchers := a.watchers
	a.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range watchers {
		fn(g)
	}
}

// WatchGestures registers fn to be called whenever the recognized gesture
// changes, including back to None.
func (a *App) WatchGestures(fn func(gesture.Gesture)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.watchers = append(a.watchers, fn)
}

// WatchHands registers fn to receive the tracked hand of every processed
// frame, or nil when no hand was seen. fn runs on the frame loop and must not
// block.
func (a *App) WatchHands(fn func(*detector.HandLandmarks)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handWatchers = append(a.handWatchers, fn)
}

func (a *App) publishHand(pose *detector.HandLandmarks) {
	a.mu.RLock()
	watchers := a.handWatchers
	a.mu.RUnlock()

	for _, fn := range watchers {
		fn(pose)
	}
}

// WatchFrames registers fn to receive every frame the loop reads from the
// camera, including frames skipped for detection while disabled. The frame is
// only valid for the duration of the call and fn must not block.
func (a *App) WatchFrames(fn func(*gocv.Mat)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frameWatchers = append(a.frameWatchers, fn)
}

func (a *App) publishFrame(frame *gocv.Mat) {
	a.mu.RLock()
	watchers := a.frameWatchers
	a.mu.RUnlock()

	for _, fn := range watchers {
		fn(frame)
	}
}

// LastGesture returns the most recently recognized gesture.
func (a *App) LastGesture() gesture.Gesture {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastGesture
}

// SetEnabled enables or disables camera-driven recognition. Gestures fed
// through OnGesture are handled either way.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether camera-driven recognition is enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Reset restarts the narrative. With a journal configured SessionID changes
// before Reset returns; the session row is written in the background.
func (a *App) Reset() {
	a.controller.Reset()
}

// SessionID returns the current journal session, or "" without a store.
func (a *App) SessionID() string {
	if a.journal == nil {
		return ""
	}
	return a.journal.current()
}

// Snapshot returns the narrative state as published to the renderer.
func (a *App) Snapshot() story.Snapshot {
	return a.controller.Snapshot()
}

// Controller returns the narrative controller.
func (a *App) Controller() *story.Controller {
	return a.controller
}

// Camera returns the camera, which may be nil.
func (a *App) Camera() capture.Camera {
	return a.config.Camera
}

// Store returns the journal store, which may be nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// Flush waits until every journal write queued so far has reached the store.
func (a *App) Flush() {
	if a.journal != nil {
		a.journal.flush()
	}
}

// Close drains the journal and releases the detector. The store stays open;
// it belongs to the caller.
func (a *App) Close() error {
	if a.journal != nil {
		a.journal.close()
	}
	if a.config.Detector == nil {
		return nil
	}
	if err := a.config.Detector.Close(); err != nil {
		log.Printf("error closing detector: %v", err)
		return err
	}
	return nil
}
