package session

import (
	"context"

	"github.com/phrazzld/focus-api/internal/events"
)

// ActivityHandler keeps sessions in step with the tasks that run on their
// behalf: each terminal task event releases the task's hold on its session
// and counts as activity.
type ActivityHandler struct {
	manager *Manager
}

// NewActivityHandler returns an events.EventHandler bound to manager.
func NewActivityHandler(manager *Manager) *ActivityHandler {
	return &ActivityHandler{manager: manager}
}

// HandleEvent implements events.EventHandler.
func (h *ActivityHandler) HandleEvent(_ context.Context, event *events.TaskEvent) error {
	if event.SessionID == "" {
		return nil
	}
	h.manager.UntrackTask(event.SessionID)
	h.manager.RecordActivity(event.SessionID)
	return nil
}

var _ events.EventHandler = (*ActivityHandler)(nil)
