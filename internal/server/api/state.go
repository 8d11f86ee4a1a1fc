package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/valentine/internal/gesture"
	"github.com/ayusman/valentine/internal/story"
)

// StateHandler serves the narrative state and accepts gestures that did not
// come from the camera.
type StateHandler struct {
	narrative Narrative
}

// NewStateHandler creates a StateHandler for n.
func NewStateHandler(n Narrative) *StateHandler {
	return &StateHandler{narrative: n}
}

type stateResponse struct {
	Snapshot    story.Snapshot  `json:"snapshot"`
	LastGesture gesture.Gesture `json:"lastGesture"`
	Session     string          `json:"session,omitempty"`
}

type gestureRequest struct {
	Gesture string `json:"gesture"`
}

type gestureResponse struct {
	Changed  bool           `json:"changed"`
	Snapshot story.Snapshot `json:"snapshot"`
}

// State handles GET /api/state.
func (h *StateHandler) State(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, stateResponse{
		Snapshot:    h.narrative.Snapshot(),
		LastGesture: h.narrative.LastGesture(),
		Session:     h.narrative.SessionID(),
	})
}

// Gesture handles POST /api/gesture.
func (h *StateHandler) Gesture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req gestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	g, err := gesture.Parse(req.Gesture)
	if err != nil {
		if errors.Is(err, gesture.ErrUnknownGesture) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to parse gesture")
		return
	}

	changed := h.narrative.OnGesture(g)
	writeJSON(w, http.StatusOK, gestureResponse{
		Changed:  changed,
		Snapshot: h.narrative.Snapshot(),
	})
}

// Reset handles POST /api/session/reset.
func (h *StateHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	h.narrative.Reset()
	writeJSON(w, http.StatusOK, stateResponse{
		Snapshot:    h.narrative.Snapshot(),
		LastGesture: h.narrative.LastGesture(),
		Session:     h.narrative.SessionID(),
	})
}
