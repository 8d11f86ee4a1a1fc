package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/valentine/internal/store"
)

// SessionsHandler serves the journal of past sessions.
type SessionsHandler struct {
	store  *store.Store
	active func() string
}

// NewSessionsHandler creates a SessionsHandler over s. active reports the
// session the narrative is writing to, which cannot be deleted; it may be nil.
func NewSessionsHandler(s *store.Store, active func() string) *SessionsHandler {
	return &SessionsHandler{store: s, active: active}
}

// ServeHTTP routes /api/sessions and /api/sessions/{id}.
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	id = strings.Trim(id, "/")

	if id == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

type sessionResponse struct {
	ID          string `json:"id"`
	Stage       string `json:"stage"`
	Completed   bool   `json:"completed"`
	Transitions int    `json:"transitions"`
	StartedAt   string `json:"started_at"`
	UpdatedAt   string `json:"updated_at"`
}

type transitionResponse struct {
	Version     uint64 `json:"version"`
	Cause       string `json:"cause"`
	Gesture     string `json:"gesture"`
	From        string `json:"from"`
	To          string `json:"to"`
	ColorIndex  int    `json:"color_index"`
	Feedback    string `json:"feedback"`
	Dialogue    string `json:"dialogue"`
	InputLocked bool   `json:"input_locked"`
	CreatedAt   string `json:"created_at"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type sessionDetailResponse struct {
	Session     sessionResponse      `json:"session"`
	Transitions []transitionResponse `json:"transitions"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	return sessionResponse{
		ID:          s.ID,
		Stage:       s.Stage,
		Completed:   s.Completed,
		Transitions: s.Transitions,
		StartedAt:   s.StartedAt.Format(timeFormat),
		UpdatedAt:   s.UpdatedAt.Format(timeFormat),
	}
}

func toTransitionResponse(t *store.Transition) transitionResponse {
	return transitionResponse{
		Version:     t.Version,
		Cause:       t.Cause,
		Gesture:     t.Gesture,
		From:        t.FromStage,
		To:          t.ToStage,
		ColorIndex:  t.ColorIndex,
		Feedback:    t.Feedback,
		Dialogue:    t.Dialogue,
		InputLocked: t.InputLocked,
		CreatedAt:   t.CreatedAt.Format(timeFormat),
	}
}

// list handles GET /api/sessions. An optional ?limit= caps the result.
func (h *SessionsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/sessions/{id} and includes the session's transitions.
func (h *SessionsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	transitions, err := h.store.Transitions().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transitions")
		return
	}

	response := sessionDetailResponse{
		Session:     toSessionResponse(sess),
		Transitions: make([]transitionResponse, 0, len(transitions)),
	}
	for _, t := range transitions {
		response.Transitions = append(response.Transitions, toTransitionResponse(t))
	}

	writeJSON(w, http.StatusOK, response)
}

// delete handles DELETE /api/sessions/{id}. The running session is refused
// with 409; reset the narrative first.
func (h *SessionsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if h.active != nil && h.active() == id {
		writeError(w, http.StatusConflict, "Session is in progress")
		return
	}

	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
