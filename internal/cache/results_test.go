package cache

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_Canonical(t *testing.T) {
	t.Parallel()

	a, err := Key("text_processing", json.RawMessage(`{"text":"hello","language":"en"}`))
	require.NoError(t, err)
	b, err := Key("text_processing", json.RawMessage(`{ "language": "en",  "text": "hello" }`))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "text_processing_"))

	c, err := Key("question_generation", json.RawMessage(`{"text":"hello","language":"en"}`))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	_, err = Key("text_processing", json.RawMessage(`{"text":`))
	assert.Error(t, err)
}

func TestResults_AddGet(t *testing.T) {
	t.Parallel()
	r := NewResults(2, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, ok := r.Get("missing")
	assert.False(t, ok)

	r.Add("k1", json.RawMessage(`{"v":1}`))
	r.Add("k2", json.RawMessage(`{"v":2}`))
	r.Add("k3", json.RawMessage(`{"v":3}`))
	assert.Equal(t, 2, r.Len())

	_, ok = r.Get("k1")
	assert.False(t, ok, "oldest entry evicted")

	v, ok := r.Get("k3")
	require.True(t, ok)
	assert.JSONEq(t, `{"v":3}`, string(v))

	r.Purge()
	assert.Zero(t, r.Len())
}

func TestResults_Expiry(t *testing.T) {
	t.Parallel()
	r := NewResults(10, 20*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r.Add("k", json.RawMessage(`{}`))
	require.Eventually(t, func() bool {
		_, ok := r.Get("k")
		return !ok
	}, time.Second, 5*time.Millisecond)
}
