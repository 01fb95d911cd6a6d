package correlation

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := ID(context.Background())
	assert.False(t, ok)

	ctx := WithID(context.Background(), "abc123")
	id, ok := ID(ctx)
	require.True(t, ok)
	assert.Equal(t, "abc123", id)

	_, ok = ID(WithID(context.Background(), ""))
	assert.False(t, ok, "empty id is treated as absent")
}

func TestHandlerInjectsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil)))

	logger.InfoContext(WithID(context.Background(), "deadbeef"), "invoke")
	assert.Contains(t, buf.String(), "correlation_id=deadbeef")

	buf.Reset()
	logger.InfoContext(context.Background(), "invoke")
	assert.NotContains(t, buf.String(), "correlation_id")
}
