package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/phrazzld/focus-api/internal/config"
	"github.com/phrazzld/focus-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-jwt-secret-that-is-32-chars-long"

func TestIssue(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, issue(&out, "alice", secret, 5))

	svc, err := auth.NewJWTService(config.AuthConfig{JWTSecret: secret, TokenLifetimeMinutes: 5})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(context.Background(), strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)
}

func TestIssue_Errors(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, issue(&out, "alice", "short", 5))
	assert.ErrorIs(t, issue(&out, "", secret, 5), auth.ErrInvalidSubject)
	assert.Error(t, issue(&out, "alice", secret, 0))
	assert.Empty(t, out.String())
}
