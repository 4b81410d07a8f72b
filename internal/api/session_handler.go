package api

import (
	"net/http"

	"github.com/phrazzld/focus-api/internal/api/shared"
	"github.com/phrazzld/focus-api/internal/session"
)

// SessionService is the session surface used over HTTP.
// *session.Manager implements it.
type SessionService interface {
	Create(userID string) (string, error)
	Get(id string) (session.Session, error)
	End(id string) bool
}

// SessionHandler serves explicit session management.
type SessionHandler struct {
	sessions SessionService
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(sessions SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// CreateSession handles POST /api/sessions.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	id, err := h.sessions.Create(userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, SessionResponse{SessionID: id})
}

// GetSession handles GET /api/sessions/{id}.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sess)
}

// EndSession handles DELETE /api/sessions/{id}.
func (h *SessionHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	if !h.sessions.End(sess.ID) {
		// ended concurrently
		HandleAPIError(w, r, session.ErrSessionNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) ownedSession(w http.ResponseWriter, r *http.Request) (session.Session, bool) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return session.Session{}, false
	}
	id, ok := requirePathParam(w, r, "id")
	if !ok {
		return session.Session{}, false
	}

	sess, err := h.sessions.Get(id)
	if err != nil {
		HandleAPIError(w, r, err)
		return session.Session{}, false
	}
	if sess.UserID != userID {
		HandleAPIError(w, r, ErrNotOwner)
		return session.Session{}, false
	}
	return sess, true
}
