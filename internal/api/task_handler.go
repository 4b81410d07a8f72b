package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/phrazzld/focus-api/internal/api/shared"
	"github.com/phrazzld/focus-api/internal/dispatch"
	"github.com/phrazzld/focus-api/internal/platform/logger"
	"github.com/phrazzld/focus-api/internal/platform/postgres"
	"github.com/phrazzld/focus-api/internal/task"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// RequestDispatcher admits requests. *dispatch.Dispatcher implements it.
type RequestDispatcher interface {
	HandleRequest(ctx context.Context, userID string, req dispatch.Request) (dispatch.Response, error)
}

// TaskLookup answers status polls. *task.Manager implements it.
type TaskLookup interface {
	Lookup(id string) (task.TaskInfo, error)
}

// TaskHistory lists persisted task records. *postgres.TaskHistoryStore
// implements it.
type TaskHistory interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]postgres.TaskRecord, error)
}

// TaskHandler serves request submission and task status.
type TaskHandler struct {
	dispatcher RequestDispatcher
	tasks      TaskLookup
	history    TaskHistory
}

// NewTaskHandler creates a TaskHandler. history may be nil when no database
// is configured.
func NewTaskHandler(dispatcher RequestDispatcher, tasks TaskLookup, history TaskHistory) *TaskHandler {
	return &TaskHandler{
		dispatcher: dispatcher,
		tasks:      tasks,
		history:    history,
	}
}

// SubmitRequest handles POST /api/requests. It answers 202 once the task is
// queued; refusals carry the dispatcher's response body with a mapped status.
func (h *TaskHandler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req dispatch.Request
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		if errors.Is(err, shared.ErrEmptyBody) {
			HandleAPIError(w, r, err)
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	resp, err := h.dispatcher.HandleRequest(r.Context(), userID, req)
	if err != nil {
		status := MapErrorToStatusCode(err)
		resp.Status = dispatch.StatusError
		resp.Error = GetSafeErrorMessage(err)
		logger.FromContext(r.Context()).Debug("request not queued",
			"status_code", status,
			"task_type", req.Type,
			"error", err)
		shared.RespondWithJSON(w, r, status, resp)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, resp)
}

// GetTask handles GET /api/tasks/{id}. Only the owner may see a task.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := requirePathParam(w, r, "id")
	if !ok {
		return
	}

	info, err := h.tasks.Lookup(id)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	if info.UserID != userID {
		HandleAPIError(w, r, ErrNotOwner)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, info)
}

// ListTasks handles GET /api/tasks, returning the caller's persisted task
// history, newest first.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if h.history == nil {
		shared.RespondWithError(w, r, http.StatusNotFound, "Task history is not enabled")
		return
	}

	limit, err := queryLimit(r, defaultHistoryLimit, maxHistoryLimit)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.history.ListByUser(r.Context(), userID, limit)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	if records == nil {
		records = []postgres.TaskRecord{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskListResponse{Tasks: records, Count: len(records)})
}
