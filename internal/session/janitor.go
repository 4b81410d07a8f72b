package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor periodically reaps inactive sessions.
type Janitor struct {
	cron    *cron.Cron
	manager *Manager
	logger  *slog.Logger
}

// NewJanitor schedules CleanupInactive on manager every interval.
func NewJanitor(manager *Manager, interval time.Duration, logger *slog.Logger) (*Janitor, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("reap interval must be positive, got %s", interval)
	}

	logger = logger.With("component", "session_janitor")
	j := &Janitor{
		cron:    cron.New(cron.WithLogger(cronLogger{logger: logger})),
		manager: manager,
		logger:  logger,
	}

	if _, err := j.cron.AddFunc("@every "+interval.String(), j.reap); err != nil {
		return nil, fmt.Errorf("failed to schedule session reaper: %w", err)
	}
	return j, nil
}

func (j *Janitor) reap() {
	removed := j.manager.CleanupInactive()
	j.logger.Debug("session reap pass finished", "removed", removed)
}

// Start begins running scheduled reaps in the background.
func (j *Janitor) Start() {
	j.logger.Info("starting session janitor")
	j.cron.Start()
}

// Stop halts the schedule and waits for a running reap to finish or for ctx
// to expire.
func (j *Janitor) Stop(ctx context.Context) error {
	done := j.cron.Stop()
	select {
	case <-done.Done():
		j.logger.Info("session janitor stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for session janitor: %w", ctx.Err())
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
