package server

import (
	"fmt"
	"log"
	"net/http"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/valentine/internal/capture"
)

// StreamHandler serves the camera as an MJPEG preview. It never reads the
// camera itself: frames arrive through Publish from the frame loop, so the
// preview and the classifier see the same frames.
type StreamHandler struct {
	camera capture.Camera

	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

// NewStreamHandler creates a StreamHandler for camera. Feed it with Publish.
func NewStreamHandler(camera capture.Camera) *StreamHandler {
	return &StreamHandler{
		camera:  camera,
		clients: make(map[chan []byte]struct{}),
	}
}

// Publish encodes frame once and hands it to every viewer. Frames are only
// encoded while someone is watching, and a slow viewer skips to the newest.
func (h *StreamHandler) Publish(frame *gocv.Mat) {
	h.mu.Lock()
	viewers := len(h.clients)
	h.mu.Unlock()
	if viewers == 0 || frame == nil || frame.Empty() {
		return
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		log.Printf("encode preview frame: %v", err)
		return
	}
	jpeg := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case <-ch:
		default:
		}
		ch <- jpeg
	}
}

// ServeHTTP streams MJPEG frames until the client goes away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.camera.IsOpen() {
		http.Error(w, capture.ErrCameraNotOpen.Error(), http.StatusServiceUnavailable)
		return
	}

	ch := make(chan []byte, 1)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
	}()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		var jpeg []byte
		select {
		case <-r.Context().Done():
			return
		case jpeg = <-ch:
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(jpeg))
		if _, err := w.Write(jpeg); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

// Viewers reports how many preview clients are connected.
func (h *StreamHandler) Viewers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
