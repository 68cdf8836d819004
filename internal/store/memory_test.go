package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetPut(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(map[string]string{"routing-api": "{'weight': 10}"})

	value, exists, err := s.Get(ctx, "routing-api")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "{'weight': 10}", value)

	_, exists, err = s.Get(ctx, "routing-app")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.Put(ctx, "routing-app", "{'weight': 0}"))
	value, exists, err = s.Get(ctx, "routing-app")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "{'weight': 0}", value)

	assert.Error(t, s.Put(ctx, "", "x"))
}

func TestMemoryStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryStore(map[string]string{"k": "v"})
	_, _, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStoreSeedIsCopied(t *testing.T) {
	seed := map[string]string{"k": "v"}
	s := NewMemoryStore(seed)
	seed["k"] = "changed"

	value, _, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
}
