package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/focus-api/internal/api/shared"
	"github.com/phrazzld/focus-api/internal/dispatch"
	"github.com/phrazzld/focus-api/internal/platform/postgres"
	"github.com/phrazzld/focus-api/internal/service/auth"
	"github.com/phrazzld/focus-api/internal/session"
	"github.com/phrazzld/focus-api/internal/task"
)

// ErrNotOwner is returned when a caller asks for another user's resource.
// It is reported as not found so ids cannot be probed.
var ErrNotOwner = errors.New("resource belongs to another user")

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	case errors.Is(err, dispatch.ErrValidation),
		errors.Is(err, session.ErrInvalidUser),
		errors.Is(err, task.ErrInvalidTask),
		errors.Is(err, shared.ErrEmptyBody):
		return http.StatusBadRequest

	case errors.Is(err, task.ErrAdmissionRejected):
		return http.StatusUnprocessableEntity

	case errors.Is(err, task.ErrQueueFull):
		return http.StatusTooManyRequests

	case errors.Is(err, task.ErrManagerStopped):
		return http.StatusServiceUnavailable

	case errors.Is(err, task.ErrTaskNotFound),
		errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, postgres.ErrNotFound),
		errors.Is(err, ErrNotOwner):
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err. Validation
// errors originate in the caller's own input and are returned verbatim.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, dispatch.ErrValidation):
		return err.Error()
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, session.ErrInvalidUser):
		return "User id is required"
	case errors.Is(err, task.ErrAdmissionRejected):
		return "Request exceeds the per-task resource ceiling"
	case errors.Is(err, task.ErrQueueFull):
		return "Too many queued requests, try again later"
	case errors.Is(err, task.ErrManagerStopped):
		return "Service is shutting down"
	case errors.Is(err, task.ErrTaskNotFound),
		errors.Is(err, postgres.ErrNotFound):
		return "Task not found"
	case errors.Is(err, session.ErrSessionNotFound):
		return "Session not found"
	case errors.Is(err, ErrNotOwner):
		return "Not found"
	case MapErrorToStatusCode(err) == http.StatusUnauthorized:
		return "Invalid token"
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the mapped status and safe message for err and logs
// the redacted detail.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}
