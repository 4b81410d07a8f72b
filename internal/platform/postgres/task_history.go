package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/focus-api/internal/events"
)

const defaultListLimit = 50

// TaskRecord is a persisted terminal task.
type TaskRecord struct {
	TaskID     string          `json:"task_id"`
	UserID     string          `json:"user_id"`
	SessionID  string          `json:"session_id"`
	Type       string          `json:"type"`
	Priority   string          `json:"priority"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt time.Time       `json:"finished_at"`
}

// TaskHistoryStore records terminal task events in the task_history table.
type TaskHistoryStore struct {
	db     DBTX
	logger *slog.Logger
}

// NewTaskHistoryStore creates a store over db.
func NewTaskHistoryStore(db DBTX, logger *slog.Logger) *TaskHistoryStore {
	return &TaskHistoryStore{
		db:     db,
		logger: logger.With("component", "task_history_store"),
	}
}

// HandleEvent implements events.EventHandler by upserting the task record.
func (s *TaskHistoryStore) HandleEvent(ctx context.Context, event *events.TaskEvent) error {
	query := `
		INSERT INTO task_history
			(task_id, user_id, session_id, type, priority, status, error, result, created_at, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (task_id) DO UPDATE SET
			status = EXCLUDED.status,
			error = EXCLUDED.error,
			result = EXCLUDED.result,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at
	`

	var result interface{}
	if len(event.Result) > 0 {
		result = string(event.Result)
	}
	var startedAt interface{}
	if !event.StartedAt.IsZero() {
		startedAt = event.StartedAt
	}

	_, err := s.db.ExecContext(ctx, query,
		event.TaskID,
		event.UserID,
		event.SessionID,
		event.Type,
		event.Priority,
		event.Status,
		event.Error,
		result,
		event.CreatedAt,
		startedAt,
		event.FinishedAt,
	)
	if err != nil {
		s.logger.Error("failed to record task",
			"task_id", event.TaskID,
			"status", event.Status,
			"error", err)
		return fmt.Errorf("failed to record task %s: %w", event.TaskID, MapError(err))
	}
	return nil
}

const selectColumns = `task_id, user_id, session_id, type, priority, status, error, result, created_at, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (TaskRecord, error) {
	var (
		rec       TaskRecord
		result    []byte
		startedAt sql.NullTime
	)
	if err := row.Scan(
		&rec.TaskID,
		&rec.UserID,
		&rec.SessionID,
		&rec.Type,
		&rec.Priority,
		&rec.Status,
		&rec.Error,
		&result,
		&rec.CreatedAt,
		&startedAt,
		&rec.FinishedAt,
	); err != nil {
		return TaskRecord{}, err
	}
	if len(result) > 0 {
		rec.Result = json.RawMessage(result)
	}
	if startedAt.Valid {
		t := startedAt.Time
		rec.StartedAt = &t
	}
	return rec, nil
}

// Get returns the record for taskID.
func (s *TaskHistoryStore) Get(ctx context.Context, taskID string) (TaskRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM task_history WHERE task_id = $1`, taskID)

	rec, err := scanRecord(row)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("failed to get task record", "task_id", taskID, "error", err)
		}
		return TaskRecord{}, MapError(err)
	}
	return rec, nil
}

// ListByUser returns the user's most recently finished tasks, newest first.
func (s *TaskHistoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]TaskRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM task_history WHERE user_id = $1 ORDER BY finished_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		s.logger.Error("failed to list task records", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list task records: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	records := make([]TaskRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task records: %w", err)
	}
	return records, nil
}

var _ events.EventHandler = (*TaskHistoryStore)(nil)
