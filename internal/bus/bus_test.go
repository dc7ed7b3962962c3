package bus

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBusFallsBackToNull(t *testing.T) {
	logger := log.New(io.Discard, "", 0)

	b := NewBus("", logger)
	_, ok := b.(*NullBus)
	assert.True(t, ok, "empty URL disables Redis")

	// An unreachable broker also degrades to the null bus.
	b = NewBus("redis://127.0.0.1:1/0", logger)
	_, ok = b.(*NullBus)
	assert.True(t, ok)
}

func TestNullBus(t *testing.T) {
	nb := NewNullBus(log.New(io.Discard, "", 0))
	ctx := context.Background()

	require.NoError(t, nb.PublishEvidence(ctx, EvidenceMessage{CaseID: 1, RecordID: 2}))
	require.NoError(t, nb.HealthCheck(ctx))
	require.NoError(t, nb.Close())
}
