package api

import (
	"net/http"

	"github.com/phrazzld/focus-api/internal/api/shared"
	"github.com/phrazzld/focus-api/internal/metrics"
)

// StatsHandler serves the aggregate scheduler and session view.
type StatsHandler struct {
	scheduler metrics.SchedulerStats
	sessions  metrics.SessionStats
}

// NewStatsHandler creates a StatsHandler over the same read models the
// metrics collector polls.
func NewStatsHandler(scheduler metrics.SchedulerStats, sessions metrics.SessionStats) *StatsHandler {
	return &StatsHandler{scheduler: scheduler, sessions: sessions}
}

// GetStats handles GET /api/stats.
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.scheduler.Stats()
	shared.RespondWithJSON(w, r, http.StatusOK, StatsResponse{
		Resources: stats.Resources,
		Tasks:     stats.Tasks,
		Sessions:  h.sessions.Stats(),
	})
}
