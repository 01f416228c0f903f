package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/go-app-shell/pkg/log"
	"github.com/klwxsrx/go-app-shell/pkg/observability"
)

func TestObserver_RequestID(t *testing.T) {
	observer := observability.New()

	_, ok := observer.RequestID(context.Background())
	assert.False(t, ok)

	ctx := observer.WithRequestID(context.Background(), "req-1")
	id, ok := observer.RequestID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)
}

func TestObserver_WithRequestID_AddsLogField(t *testing.T) {
	var out bytes.Buffer
	logger := log.New(log.LevelInfo, log.WithOutput(&out))
	observer := observability.New(observability.WithFieldsLogging(logger, observability.LogFieldRequestID))

	ctx := observer.WithRequestID(context.Background(), "req-2")
	logger.Info(ctx, "handled")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	assert.Equal(t, "req-2", entry["requestID"])
}

func TestNewRequestID_IsUUID(t *testing.T) {
	_, err := uuid.Parse(observability.NewRequestID())
	assert.NoError(t, err)
}
