package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cascadehq/cascade/internal/model"
)

// HealthzResponse is the response body for GET /healthz.
type HealthzResponse struct {
	Status string `json:"status"`
}

// SessionResponse mirrors the fields of model.Session a local UI
// needs to render without exposing raw undo-stack line contents.
type SessionResponse struct {
	ID           string              `json:"id"`
	ProjectName  string              `json:"project_name"`
	Status       string              `json:"status"`
	CreatedAt    string              `json:"created_at"`
	LastActivity string              `json:"last_activity"`
	MessageCount int                 `json:"message_count"`
	UndoDepth    int                 `json:"undo_depth"`
	Stats        model.SessionStats  `json:"stats"`
}

// ErrorResponse is the standard JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthzResponse{Status: "ok"})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{
		ID:           sess.ID,
		ProjectName:  sess.ProjectName,
		Status:       s.currentStatus(),
		CreatedAt:    sess.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		LastActivity: sess.LastActivity.Format("2006-01-02T15:04:05Z07:00"),
		MessageCount: len(sess.Messages),
		UndoDepth:    len(sess.UndoStack),
		Stats:        sess.Stats,
	})
}

func (s *Server) handleGetSessionStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess.Stats)
}

func (s *Server) currentStatus() string {
	if s.status == nil {
		return "unknown"
	}
	return s.status()
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg})
}
