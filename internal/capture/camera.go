// Package capture reads webcam frames through GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default capture settings.
const (
	DefaultFPS    = 15
	DefaultWidth  = 640
	DefaultHeight = 480
)

// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
var ErrCameraNotOpen = errors.New("camera is not open")

// Camera is a source of frames. Callers own the Mats they receive.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Settings describes the device and the resolution and rate requested from it.
type Settings struct {
	Device int
	Width  int
	Height int
	FPS    int
}

// DefaultSettings returns settings for the first camera at 640x480, 15 fps.
func DefaultSettings() Settings {
	return Settings{
		Device: 0,
		Width:  DefaultWidth,
		Height: DefaultHeight,
		FPS:    DefaultFPS,
	}
}

func (s Settings) withDefaults() Settings {
	if s.Width <= 0 {
		s.Width = DefaultWidth
	}
	if s.Height <= 0 {
		s.Height = DefaultHeight
	}
	if s.FPS <= 0 {
		s.FPS = DefaultFPS
	}
	return s
}

type webcam struct {
	settings Settings
	capture  *gocv.VideoCapture
	mu       sync.Mutex
}

// NewCamera returns a Camera for the configured device. Nothing is opened
// until Open is called.
func NewCamera(s Settings) Camera {
	return &webcam{settings: s.withDefaults()}
}

// Open starts capturing. Opening an open camera is a no-op.
func (c *webcam) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.settings.Device)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.settings.Device, err)
	}

	// Drivers may ignore these; frames are read at whatever size arrives.
	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.settings.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.settings.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(c.settings.FPS))

	c.capture = vc
	return nil
}

// Close releases the device. Closing a closed camera returns nil.
func (c *webcam) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	return err
}

// ReadFrame grabs one frame. The caller must Close the returned Mat.
func (c *webcam) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from camera")
	}
	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}

	return &mat, nil
}

// SetFPS changes the requested frame rate. Values <= 0 are ignored.
func (c *webcam) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.settings.FPS = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *webcam) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings.FPS
}

func (c *webcam) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}
