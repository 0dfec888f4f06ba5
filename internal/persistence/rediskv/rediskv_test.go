package rediskv

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyclaim.ai/internal/territory"
)

// setupStore skips the test if Redis is not available.
func setupStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	s, err := Dial(addr, 0, Options{Prefix: "test:" + uuid.NewString() + ":", StreamLen: 100})
	if err != nil {
		t.Skipf("Skipping Redis test: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_LatestIgnoresStaleSeq(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	id := uuid.New()
	t.Cleanup(func() { _ = s.Drop(context.Background(), id) })
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, id, territory.Delta{Seq: 5, Kind: territory.DeltaBank, At: at, Payload: "50"}))
	require.NoError(t, s.Save(ctx, id, territory.Delta{Seq: 3, Kind: territory.DeltaBank, At: at, Payload: "30"}))
	require.NoError(t, s.Save(ctx, id, territory.Delta{Seq: 6, Kind: territory.DeltaFlags, At: at, Payload: []string{"LOCKED"}}))

	latest, err := s.Latest(ctx, id)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, uint64(5), latest[territory.DeltaBank].Seq)
	assert.JSONEq(t, `"50"`, string(latest[territory.DeltaBank].Payload))

	stream, err := s.Stream(ctx, id, 10)
	require.NoError(t, err)
	require.Len(t, stream, 3)
	assert.Equal(t, uint64(3), stream[1].Seq)
}

func TestStore_Drop(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, s.Save(ctx, id, territory.Delta{Seq: 1, Kind: territory.DeltaMembers}))
	require.NoError(t, s.Drop(ctx, id))

	latest, err := s.Latest(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, latest)
}
