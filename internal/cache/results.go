// Package cache memoizes collaborator results for identical requests.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Results is a size- and age-bounded cache of operation results keyed by
// operation type and request content.
type Results struct {
	lru    *expirable.LRU[string, json.RawMessage]
	logger *slog.Logger
}

// NewResults creates a cache holding at most size entries, each for ttl.
func NewResults(size int, ttl time.Duration, logger *slog.Logger) *Results {
	logger = logger.With("component", "result_cache")
	onEvict := func(key string, _ json.RawMessage) {
		logger.Debug("cache entry evicted", "key", key)
	}
	return &Results{
		lru:    expirable.NewLRU[string, json.RawMessage](size, onEvict, ttl),
		logger: logger,
	}
}

// Key derives the cache key for an operation. Content is canonicalised first,
// so key order and whitespace in the request do not matter.
func Key(opType string, content json.RawMessage) (string, error) {
	var decoded interface{}
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return "", fmt.Errorf("canonicalising content: %w", err)
	}
	canonical, err := json.Marshal(decoded)
	if err != nil {
		return "", fmt.Errorf("canonicalising content: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return opType + "_" + hex.EncodeToString(sum[:]), nil
}

// Get returns the cached result for key.
func (r *Results) Get(key string) (json.RawMessage, bool) {
	v, ok := r.lru.Get(key)
	if ok {
		r.logger.Debug("cache hit", "key", key)
	}
	return v, ok
}

// Add stores a result under key.
func (r *Results) Add(key string, result json.RawMessage) {
	r.lru.Add(key, result)
}

// Len returns the number of live entries.
func (r *Results) Len() int {
	return r.lru.Len()
}

// Purge drops every entry.
func (r *Results) Purge() {
	r.lru.Purge()
}
