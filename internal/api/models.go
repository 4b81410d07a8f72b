package api

import (
	"github.com/phrazzld/focus-api/internal/platform/postgres"
	"github.com/phrazzld/focus-api/internal/resource"
	"github.com/phrazzld/focus-api/internal/session"
	"github.com/phrazzld/focus-api/internal/task"
)

// SessionResponse is returned by POST /api/sessions.
type SessionResponse struct {
	SessionID string `json:"session_id"`
}

// TaskListResponse is returned by GET /api/tasks.
type TaskListResponse struct {
	Tasks []postgres.TaskRecord `json:"tasks"`
	Count int                   `json:"count"`
}

// StatsResponse is returned by GET /api/stats.
type StatsResponse struct {
	Resources map[resource.Kind]resource.Usage `json:"resources"`
	Tasks     task.TaskCounts                  `json:"tasks"`
	Sessions  session.Stats                    `json:"sessions"`
}
