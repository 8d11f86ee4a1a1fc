package app

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Run drives the frame loop until ctx is cancelled: read a frame, fan it out
// to frame watchers, extract landmarks, hand the first hand to OnFrame. The
// loop is the camera's only reader. Camera and detector errors are
// logged and the frame skipped. The camera is closed on return.
func (a *App) Run(ctx context.Context) error {
	cam, det := a.config.Camera, a.config.Detector
	if cam == nil || det == nil {
		log.Println("no camera configured, frame loop disabled")
		return nil
	}

	if err := cam.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer func() {
		if err := cam.Close(); err != nil {
			log.Printf("error closing camera: %v", err)
		}
	}()
	cam.SetFPS(a.config.FPS)

	ticker := time.NewTicker(time.Second / time.Duration(a.config.FPS))
	defer ticker.Stop()

	log.Printf("frame loop started at %d fps", a.config.FPS)
	for {
		select {
		case <-ctx.Done():
			log.Println("frame loop stopped")
			return nil
		case <-ticker.C:
			a.step()
		}
	}
}

// step processes a single frame. The frame is handed to frame watchers even
// while recognition is disabled, so the preview keeps running.
func (a *App) step() {
	frame, err := a.config.Camera.ReadFrame()
	if err != nil {
		log.Printf("error reading frame: %v", err)
		return
	}
	defer frame.Close()

	a.publishFrame(frame)

	if !a.IsEnabled() {
		return
	}

	hands, err := a.config.Detector.Detect(frame)
	if err != nil {
		log.Printf("error detecting hands: %v", err)
		return
	}

	if len(hands) == 0 {
		a.OnFrame(nil)
		return
	}
	a.OnFrame(&hands[0])
}
