package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/focus-api/internal/config"
	"github.com/phrazzld/focus-api/internal/dispatch"
	"github.com/phrazzld/focus-api/internal/platform/gemini"
	"github.com/phrazzld/focus-api/internal/platform/hostinfo"
	"github.com/phrazzld/focus-api/internal/resource"
	"github.com/phrazzld/focus-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCollaborator answers every content call immediately.
type stubCollaborator struct {
	validate *validator.Validate
}

func (s stubCollaborator) Validate(input interface{}) error { return s.validate.Struct(input) }

func (stubCollaborator) SimplifyText(_ context.Context, in gemini.SimplifyInput) (*gemini.SimplifiedText, error) {
	return &gemini.SimplifiedText{Simplified: strings.ToLower(in.Text)}, nil
}

func (stubCollaborator) GenerateQuestions(context.Context, gemini.QuestionsInput) (*gemini.QuestionSet, error) {
	return &gemini.QuestionSet{}, nil
}

func (stubCollaborator) SummarizeVideo(context.Context, gemini.VideoInput) (*gemini.VideoSummary, error) {
	return &gemini.VideoSummary{Summary: "a lecture"}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 0, LogLevel: "debug", ShutdownTimeoutSeconds: 5},
		Auth: config.AuthConfig{
			JWTSecret:            "test-jwt-secret-that-is-32-chars-long",
			TokenLifetimeMinutes: 60,
		},
		LLM: config.LLMConfig{GeminiAPIKey: "unused", ModelName: "gemini-2.0-flash", MaxRetries: 1, RetryDelaySeconds: 1},
		Scheduler: config.SchedulerConfig{
			CPUCap: 100, CPUCeiling: 100,
			MemoryCapMB: 0, MemoryCeilingMB: 4096,
			GPUCap: 100, GPUCeiling: 100,
			QueueSize:             100,
			DefaultTimeoutSeconds: 30,
			MaxTimeoutSeconds:     60,
			GracePeriodSeconds:    1,
			HistorySize:           100,
			HistoryTTLMinutes:     10,
		},
		Session: config.SessionConfig{InactivityMinutes: 30, ReapIntervalSeconds: 60},
		Cache:   config.CacheConfig{Enabled: true, Size: 10, TTLMinutes: 5},
	}
}

func fixedMemory(mb uint64) hostinfo.MemoryProbe {
	return func() (uint64, error) { return mb, nil }
}

func newTestApp(t *testing.T) *application {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := newApplication(testConfig(), logger, nil,
		stubCollaborator{validate: validator.New()}, fixedMemory(16384))
	require.NoError(t, err)

	app.start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, app.cleanup(ctx))
	})
	return app
}

func TestSchedulerLimits(t *testing.T) {
	t.Parallel()
	cfg := testConfig().Scheduler

	limits, err := schedulerLimits(cfg, fixedMemory(16384))
	require.NoError(t, err)
	assert.Equal(t, resource.Limit{HardCap: 16384, Ceiling: 4096}, limits[resource.Memory])
	assert.Equal(t, resource.Limit{HardCap: 100, Ceiling: 100}, limits[resource.CPU])
	assert.Equal(t, resource.Limit{HardCap: 100, Ceiling: 100}, limits[resource.GPU])

	cfg.MemoryCapMB = 2048
	limits, err = schedulerLimits(cfg, func() (uint64, error) {
		t.Error("probe must not be called when the cap is configured")
		return 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, resource.Limit{HardCap: 2048, Ceiling: 2048}, limits[resource.Memory])

	cfg.MemoryCapMB = 0
	_, err = schedulerLimits(cfg, func() (uint64, error) { return 0, errors.New("no /proc") })
	assert.Error(t, err)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)
	router := app.setupRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "focus_resource_capacity")
	assert.Contains(t, body, "focus_queue_size")
	assert.Contains(t, body, "go_goroutines")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_RequestRoundTrip(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)
	router := app.setupRouter()

	token, err := app.jwtService.GenerateToken(context.Background(), "alice")
	require.NoError(t, err)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/api/requests",
		`{"type":"text_processing","priority":"high","content":{"text":"Hello World"}}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp dispatch.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, dispatch.StatusQueued, resp.Status)
	require.NotEmpty(t, resp.TaskID)

	var info task.TaskInfo
	require.Eventually(t, func() bool {
		rec := do(http.MethodGet, "/api/tasks/"+resp.TaskID, "")
		if rec.Code != http.StatusOK {
			return false
		}
		info = task.TaskInfo{}
		return json.Unmarshal(rec.Body.Bytes(), &info) == nil && info.Status == task.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
	assert.JSONEq(t, `{"simplified":"hello world"}`, string(info.Result))
	assert.Equal(t, "high", info.Priority)

	rec = do(http.MethodGet, "/api/sessions/"+resp.SessionID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodPost, "/api/requests", `{"type":"image_processing","content":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodGet, "/api/tasks", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Contains(t, string(stats["tasks"]), `"completed":1`)
}
