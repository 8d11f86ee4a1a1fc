// Package api provides the JSON handlers for the valentine HTTP API.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/valentine/internal/gesture"
	"github.com/ayusman/valentine/internal/story"
)

// Narrative is the part of the running app the API drives.
type Narrative interface {
	Snapshot() story.Snapshot
	OnGesture(g gesture.Gesture) bool
	LastGesture() gesture.Gesture
	Reset()
	SessionID() string
}

type errorResponse struct {
	Error string `json:"error"`
}

const timeFormat = time.RFC3339

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
