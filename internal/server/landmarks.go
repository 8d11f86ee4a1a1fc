package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/valentine/internal/detector"
	"github.com/ayusman/valentine/internal/gesture"
)

// landmarksMessage is one frame's tracking result. Hand is null when no hand
// was seen.
type landmarksMessage struct {
	Hand      *detector.HandLandmarks `json:"hand"`
	Gesture   gesture.Gesture         `json:"gesture"`
	Timestamp int64                   `json:"timestamp"`
}

// LandmarksHandler pushes the tracked hand of each processed frame to
// websocket clients so the page can draw the skeleton over the preview.
// Clients that fall behind skip to the latest frame.
type LandmarksHandler struct {
	mu      sync.Mutex
	clients map[*landmarkClient]struct{}
}

type landmarkClient struct {
	mu      sync.Mutex
	pending []byte
	wake    chan struct{}
}

// NewLandmarksHandler creates a LandmarksHandler. Feed it with Publish.
func NewLandmarksHandler() *LandmarksHandler {
	return &LandmarksHandler{
		clients: make(map[*landmarkClient]struct{}),
	}
}

// Publish broadcasts one frame's hand. It never blocks on a client.
func (h *LandmarksHandler) Publish(hand *detector.HandLandmarks) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		return
	}

	msg := landmarksMessage{
		Gesture:   gesture.None,
		Timestamp: time.Now().UnixMilli(),
	}
	if hand != nil {
		cp := *hand
		msg.Hand = &cp
		msg.Gesture = gesture.Classify(&cp)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("encode landmarks: %v", err)
		return
	}

	for client := range h.clients {
		client.offer(data)
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LandmarksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	client := &landmarkClient{wake: make(chan struct{}, 1)}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()
	}()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-client.wake:
			data := client.take()
			if data == nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

// Clients reports how many websocket clients are connected.
func (h *LandmarksHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// offer replaces any unsent message with data.
func (c *landmarkClient) offer(data []byte) {
	c.mu.Lock()
	c.pending = data
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *landmarkClient) take() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	data := c.pending
	c.pending = nil
	return data
}
