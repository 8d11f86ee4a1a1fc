package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/valentine/internal/story"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// EventsHandler pushes narrative snapshots to websocket clients: the current
// one on connect, then every change. A slow client skips intermediate
// snapshots and only ever receives newer versions.
type EventsHandler struct {
	current func() story.Snapshot

	mu      sync.Mutex
	clients map[*eventClient]struct{}
}

type eventClient struct {
	mu     sync.Mutex
	latest story.Snapshot
	sent   uint64
	hasNew bool
	wake   chan struct{}
}

// NewEventsHandler creates a handler fed by c's change notifications.
func NewEventsHandler(c *story.Controller) *EventsHandler {
	h := &EventsHandler{
		current: c.Snapshot,
		clients: make(map[*eventClient]struct{}),
	}
	c.OnChange(h.broadcast)
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	client := &eventClient{wake: make(chan struct{}, 1)}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()
	}()

	// Registered first, so a change racing the initial read is not lost.
	client.offer(h.current())

	// The read loop only notices the peer going away.
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
			snap, ok := client.take()
			if !ok {
				continue
			}
			msg, err := json.Marshal(snap)
			if err != nil {
				log.Printf("encode snapshot: %v", err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// broadcast is the controller listener. It never blocks on a client.
func (h *EventsHandler) broadcast(ev story.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.offer(ev.Snapshot)
	}
}

// Clients reports how many websocket clients are connected.
func (h *EventsHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// offer stores snap if it is newer than anything pending or sent.
func (c *eventClient) offer(snap story.Snapshot) {
	c.mu.Lock()
	if c.hasNew && snap.Version <= c.latest.Version {
		c.mu.Unlock()
		return
	}
	if c.sent > 0 && snap.Version <= c.sent {
		c.mu.Unlock()
		return
	}
	c.latest = snap
	c.hasNew = true
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *eventClient) take() (story.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasNew {
		return story.Snapshot{}, false
	}
	c.hasNew = false
	c.sent = c.latest.Version
	return c.latest, true
}
