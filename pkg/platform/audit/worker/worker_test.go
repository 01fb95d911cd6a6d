package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance/pkg/platform/audit"
	"attendance/pkg/platform/audit/store/memory"
)

func TestWorker_DrainsUntilClosed(t *testing.T) {
	store := memory.NewInMemoryStore()
	inbox := make(chan audit.Event, 3)
	inbox <- audit.Event{DeviceID: "a", Action: audit.ActionPunch}
	inbox <- audit.Event{DeviceID: "a", Action: audit.ActionQuery}
	inbox <- audit.Event{DeviceID: "b", Action: audit.ActionClick}
	close(inbox)

	require.NoError(t, NewWorker(store, inbox, nil).Run(context.Background()))

	events, err := store.ListByDevice(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestWorker_StopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewWorker(memory.NewInMemoryStore(), make(chan audit.Event), nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
