package shared

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	traced := SetTraceID(ctx)
	assert.Len(t, GetTraceID(traced), 32)
	assert.Empty(t, GetTraceID(ctx))

	assert.Empty(t, GetTraceID(context.WithValue(ctx, TraceIDKey, 123)))
	assert.NotEqual(t, generateTraceID(), generateTraceID())
}

func TestUserIDContext(t *testing.T) {
	t.Parallel()
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = UserIDFromContext(WithUserID(context.Background(), ""))
	assert.False(t, ok)

	id, ok := UserIDFromContext(WithUserID(context.Background(), "alice"))
	assert.True(t, ok)
	assert.Equal(t, "alice", id)
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()
	type payload struct {
		Type string `json:"type"`
	}

	decode := func(body string) (payload, error) {
		var p payload
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		err := DecodeJSON(httptest.NewRecorder(), req, &p)
		return p, err
	}

	p, err := decode(`{"type":"text_processing"}`)
	require.NoError(t, err)
	assert.Equal(t, "text_processing", p.Type)

	_, err = decode("")
	assert.ErrorIs(t, err, ErrEmptyBody)

	_, err = decode(`{"type":`)
	assert.Error(t, err)

	_, err = decode(`{} {}`)
	assert.Error(t, err)

	_, err = decode(`{"type":"` + strings.Repeat("a", MaxBodyBytes) + `"}`)
	assert.Error(t, err)
}

func TestRespondWithError(t *testing.T) {
	t.Parallel()
	req := httptest.NewRequest(http.MethodGet, "/api/tasks/x", nil)
	req = req.WithContext(SetTraceID(req.Context()))
	rec := httptest.NewRecorder()

	RespondWithErrorAndLog(rec, req, http.StatusInternalServerError, "An unexpected error occurred",
		assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "An unexpected error occurred", body["error"])
	assert.Equal(t, GetTraceID(req.Context()), body["trace_id"])
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
	assert.NotContains(t, body, "Code")
}
